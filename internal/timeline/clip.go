package timeline

import "errors"

// Track identifies the lane a clip sits on. Tracks are independent: the
// model never checks for overlap between video and audio clips.
type Track string

const (
	TrackVideo Track = "video"
	TrackAudio Track = "audio"
)

var (
	ErrClipNotFound    = errors.New("clip not found")
	ErrInvalidType     = errors.New("clip type must be video or audio")
	ErrInvalidDuration = errors.New("clip duration must be greater than zero")
	ErrInvalidTrim     = errors.New("invalid trim bounds")
	ErrInvalidSplit    = errors.New("split offset outside clip bounds")
	ErrInvalidIndex    = errors.New("reorder index out of range")
)

// Clip is a trimmed reference to a media source placed on the global
// timeline. Duration is always TrimEnd - TrimStart; any mutation that
// touches the trim bounds recomputes it in the same operation.
type Clip struct {
	ID        string  `json:"id"`
	Type      Track   `json:"type"`
	SourceURL string  `json:"source_url"`
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`
	TrimStart float64 `json:"trim_start"`
	TrimEnd   float64 `json:"trim_end"`
	StartTime float64 `json:"start_time"`

	// SourceVideoID links an auto-derived audio clip back to the video clip
	// it was extracted from. Display only: deleting the video clip does not
	// delete the audio clip.
	SourceVideoID string `json:"source_video_id,omitempty"`

	Volume float64 `json:"volume"`
}

// End returns the clip's end position on the global timeline.
func (c *Clip) End() float64 {
	return c.StartTime + c.Duration
}

// ClipInput describes a clip to be added. Duration is the length of the
// original source in seconds.
type ClipInput struct {
	Type      Track   `json:"type"`
	SourceURL string  `json:"source_url"`
	Name      string  `json:"name"`
	Duration  float64 `json:"duration"`
}

// ClipUpdate is a shallow merge of optional clip fields. Nil fields are
// left untouched.
type ClipUpdate struct {
	Name      *string  `json:"name,omitempty"`
	TrimStart *float64 `json:"trim_start,omitempty"`
	TrimEnd   *float64 `json:"trim_end,omitempty"`
	StartTime *float64 `json:"start_time,omitempty"`
	Volume    *float64 `json:"volume,omitempty"`
}

// Settings holds static project metadata. Editing operations never touch it.
type Settings struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}
