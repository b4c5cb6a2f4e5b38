package editor

import (
	"log/slog"

	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

// Controller dispatches interactions against one session.
type Controller struct {
	sess   *timeline.Session
	tool   Tool
	logger *slog.Logger
}

// NewController creates a controller in select mode.
func NewController(sess *timeline.Session, logger *slog.Logger) *Controller {
	return &Controller{sess: sess, tool: ToolSelect, logger: logger}
}

// Tool returns the active tool mode.
func (c *Controller) Tool() Tool {
	return c.tool
}

// SetTool switches the active tool mode.
func (c *Controller) SetTool(t Tool) error {
	if !ValidTool(string(t)) {
		return ErrUnknownTool
	}
	c.tool = t
	return nil
}

// HandleClipClick routes a click on a clip to the operation the active tool
// calls for: selection, a split at the click position, or deletion.
// clickPx is the click's horizontal position on the rendering surface and
// pxPerSecond its fixed scale.
func (c *Controller) HandleClipClick(clipID string, clickPx, pxPerSecond float64) error {
	switch c.tool {
	case ToolSelect:
		return c.sess.Select(clipID)
	case ToolSplit:
		return c.SplitAtPixel(clipID, clickPx, pxPerSecond)
	case ToolDelete:
		return c.sess.RemoveClip(clipID)
	}
	return ErrUnknownTool
}

// SplitAtPixel converts an absolute pixel position into a split offset
// within the clip and applies it. Splits landing within MinSplitMargin of
// either edge are rejected.
func (c *Controller) SplitAtPixel(clipID string, clickPx, pxPerSecond float64) error {
	clip, ok := c.sess.Clip(clipID)
	if !ok {
		return timeline.ErrClipNotFound
	}
	if pxPerSecond <= 0 {
		return timeline.ErrInvalidSplit
	}

	absolute := clickPx / pxPerSecond
	offset := absolute - clip.StartTime

	if offset < MinSplitMargin || offset > clip.Duration-MinSplitMargin {
		return ErrSplitTooClose
	}

	_, _, err := c.sess.SplitClip(clipID, offset)
	if err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("clip split at pixel", "clip_id", clipID, "offset", offset)
	}
	return nil
}

// ApplyTrim is the numeric trim path: the same guards as drag-to-trim,
// applied immediately with no drag phase. sourceDuration is the original
// media duration as reported by the player's metadata; the clip itself only
// carries offsets into it.
func (c *Controller) ApplyTrim(clipID string, trimStart, trimEnd, sourceDuration float64) error {
	if _, ok := c.sess.Clip(clipID); !ok {
		return timeline.ErrClipNotFound
	}

	if trimStart < 0 || trimEnd > sourceDuration {
		return ErrTrimOutOfBounds
	}
	if trimEnd-trimStart < MinTrimSeparation {
		return ErrTrimOutOfBounds
	}

	return c.sess.UpdateClip(clipID, timeline.ClipUpdate{
		TrimStart: &trimStart,
		TrimEnd:   &trimEnd,
	})
}
