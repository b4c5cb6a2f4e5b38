package api

import (
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/library"
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State          string  `json:"state"`
	Playing        bool    `json:"playing"`
	CurrentTime    float64 `json:"current_time"`
	TotalDuration  float64 `json:"total_duration"`
	ClipCount      int     `json:"clip_count"`
	SelectedClipID string  `json:"selected_clip_id,omitempty"`
	ActiveClipID   string  `json:"active_clip_id,omitempty"`
	Tool           string  `json:"tool"`
	AssetsCount    int     `json:"assets_count"`
}

type TimelineResponse struct {
	Clips          []timeline.Clip  `json:"clips"`
	TotalDuration  float64          `json:"total_duration"`
	CurrentTime    float64          `json:"current_time"`
	SelectedClipID string           `json:"selected_clip_id,omitempty"`
	Settings       SettingsResponse `json:"settings"`
}

type SettingsResponse struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

type AddClipResponse struct {
	ClipID string `json:"clip_id"`
}

type UpdateClipRequest struct {
	Name      *string  `json:"name,omitempty"`
	TrimStart *float64 `json:"trim_start,omitempty"`
	TrimEnd   *float64 `json:"trim_end,omitempty"`
	StartTime *float64 `json:"start_time,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
}

type SplitRequest struct {
	Offset float64 `json:"offset"`
}

type SplitResponse struct {
	FirstID  string `json:"first_id"`
	SecondID string `json:"second_id"`
}

type ReorderRequest struct {
	Track string `json:"track"`
	From  int    `json:"from"`
	To    int    `json:"to"`
}

type SelectRequest struct {
	ClipID string `json:"clip_id"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type ToolRequest struct {
	Tool string `json:"tool"`
}

type ClickRequest struct {
	ClipID      string  `json:"clip_id"`
	ClickPx     float64 `json:"click_px"`
	PxPerSecond float64 `json:"px_per_second"`
}

type TrimBeginRequest struct {
	ClipID         string  `json:"clip_id"`
	Handle         string  `json:"handle"`
	SourceDuration float64 `json:"source_duration"`
}

type TrimMoveRequest struct {
	Time float64 `json:"time"`
}

type TrimBoundsResponse struct {
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
}

type AssetResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Name      string `json:"name"`
	Prompt    string `json:"prompt,omitempty"`
	Size      int64  `json:"size"`
	HasLocal  bool   `json:"has_local"`
	CreatedAt string `json:"created_at"`
}

type AssetsResponse struct {
	Assets []AssetResponse `json:"assets"`
}

type ExportRequest struct {
	Filename string `json:"filename"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func AssetToResponse(a *library.Asset) AssetResponse {
	return AssetResponse{
		ID:        a.ID,
		Type:      a.Type,
		URL:       a.URL,
		Name:      a.Name,
		Prompt:    a.Prompt,
		Size:      a.Size,
		HasLocal:  a.LocalPath != "",
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

func (r UpdateClipRequest) ToUpdate() timeline.ClipUpdate {
	return timeline.ClipUpdate{
		Name:      r.Name,
		TrimStart: r.TrimStart,
		TrimEnd:   r.TrimEnd,
		StartTime: r.StartTime,
		Volume:    r.Volume,
	}
}
