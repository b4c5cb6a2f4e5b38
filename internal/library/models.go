// Package library manages the media assets available to the editor: items
// accepted from the generation history provider, local uploads, and the
// mapping from source URLs to local files. All provider-shape quirks are
// normalized here; the timeline never sees source-specific field names.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

const (
	StatusSuccess = "success"

	// DefaultDropDuration substitutes for drag payloads that carry no
	// duration. Arbitrary but fixed.
	DefaultDropDuration = 5.0
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("file exceeds maximum size")
	ErrNotAccepted     = errors.New("item not accepted")
	ErrAssetNotFound   = errors.New("asset not found")
)

// Asset is a media source known to the library.
type Asset struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	LocalPath string    `json:"local_path,omitempty"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Item is the canonical shape of a history/asset provider entry.
type Item struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	URL       string `json:"url"`
	Prompt    string `json:"prompt"`
	CreatedAt string `json:"created_at"`
	Status    string `json:"status"`
}

// RawItem mirrors the varying shapes providers return: the playable URL may
// arrive as url, video_url, or the first element of result.
type RawItem struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	URL       string   `json:"url"`
	VideoURL  string   `json:"video_url"`
	Result    []string `json:"result"`
	Prompt    string   `json:"prompt"`
	CreatedAt string   `json:"created_at"`
	Status    string   `json:"status"`
}

// Normalize collapses a raw provider item into the canonical shape. Items
// are accepted only with status success, a video or audio type, and a
// resolvable URL.
func Normalize(raw RawItem) (Item, error) {
	if raw.Status != StatusSuccess {
		return Item{}, fmt.Errorf("%w: status %q", ErrNotAccepted, raw.Status)
	}
	if raw.Type != string(timeline.TrackVideo) && raw.Type != string(timeline.TrackAudio) {
		return Item{}, fmt.Errorf("%w: type %q", ErrNotAccepted, raw.Type)
	}

	url := raw.URL
	if url == "" {
		url = raw.VideoURL
	}
	if url == "" && len(raw.Result) > 0 {
		url = raw.Result[0]
	}
	if url == "" {
		return Item{}, fmt.Errorf("%w: no playable url", ErrNotAccepted)
	}

	return Item{
		ID:        raw.ID,
		Type:      raw.Type,
		URL:       url,
		Prompt:    raw.Prompt,
		CreatedAt: raw.CreatedAt,
		Status:    raw.Status,
	}, nil
}

// DragPayload is the serializable drop-to-add format.
type DragPayload struct {
	Type     string  `json:"type"`
	URL      string  `json:"url"`
	Name     string  `json:"name,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// ParseDragPayload decodes a drop payload into a clip input. A missing
// duration gets the fixed fallback, a missing name is derived from the URL.
func ParseDragPayload(data []byte) (timeline.ClipInput, error) {
	var p DragPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return timeline.ClipInput{}, fmt.Errorf("invalid drag payload: %w", err)
	}

	track := timeline.Track(p.Type)
	if track != timeline.TrackVideo && track != timeline.TrackAudio {
		return timeline.ClipInput{}, ErrUnsupportedType
	}
	if p.URL == "" {
		return timeline.ClipInput{}, fmt.Errorf("invalid drag payload: url is required")
	}

	name := p.Name
	if name == "" {
		name = baseName(p.URL)
	}
	duration := p.Duration
	if duration <= 0 {
		duration = DefaultDropDuration
	}

	return timeline.ClipInput{
		Type:      track,
		SourceURL: p.URL,
		Name:      name,
		Duration:  duration,
	}, nil
}

// ValidateUpload checks a local upload's MIME type and size against the
// accepted prefixes and the configured ceiling.
func ValidateUpload(contentType string, size, maxBytes int64) error {
	if !strings.HasPrefix(contentType, "video/") && !strings.HasPrefix(contentType, "audio/") {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, size, maxBytes)
	}
	return nil
}

func baseName(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.Index(trimmed, "?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "untitled"
	}
	return trimmed
}
