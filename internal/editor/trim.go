package editor

import (
	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

// Handle names the trim handle a drag gesture grabs.
type Handle string

const (
	HandleStart Handle = "start"
	HandleEnd   Handle = "end"
)

// TrimDrag holds the provisional trim bounds during one drag gesture. The
// session is mutated only on End; Move updates the provisional bounds with
// the same guards the commit uses, so the handles can never cross and never
// get closer than MinTrimSeparation even mid-drag.
//
// Callers attach the gesture's pointer listeners for its lifetime only and
// must End or Cancel it on release or teardown.
type TrimDrag struct {
	ctrl           *Controller
	clipID         string
	handle         Handle
	sourceDuration float64

	trimStart float64
	trimEnd   float64
	done      bool
}

// BeginTrim starts a drag gesture on one of the clip's trim handles.
// sourceDuration is the original media duration from player metadata.
func (c *Controller) BeginTrim(clipID string, handle Handle, sourceDuration float64) (*TrimDrag, error) {
	clip, ok := c.sess.Clip(clipID)
	if !ok {
		return nil, timeline.ErrClipNotFound
	}
	if handle != HandleStart && handle != HandleEnd {
		return nil, ErrNoActiveDrag
	}
	if sourceDuration <= 0 {
		return nil, ErrTrimOutOfBounds
	}

	return &TrimDrag{
		ctrl:           c,
		clipID:         clipID,
		handle:         handle,
		sourceDuration: sourceDuration,
		trimStart:      clip.TrimStart,
		trimEnd:        clip.TrimEnd,
	}, nil
}

// Move updates the grabbed handle to a new source-time position. The value
// is clamped to the source bounds and to MinTrimSeparation from the other
// handle rather than rejected, matching drag behavior.
func (d *TrimDrag) Move(t float64) error {
	if d.done {
		return ErrNoActiveDrag
	}

	switch d.handle {
	case HandleStart:
		if t < 0 {
			t = 0
		}
		if t > d.trimEnd-MinTrimSeparation {
			t = d.trimEnd - MinTrimSeparation
		}
		d.trimStart = t
	case HandleEnd:
		if t > d.sourceDuration {
			t = d.sourceDuration
		}
		if t < d.trimStart+MinTrimSeparation {
			t = d.trimStart + MinTrimSeparation
		}
		d.trimEnd = t
	}
	return nil
}

// Bounds returns the provisional trim bounds, for rendering the drag.
func (d *TrimDrag) Bounds() (start, end float64) {
	return d.trimStart, d.trimEnd
}

// End commits the provisional bounds to the timeline and finishes the
// gesture.
func (d *TrimDrag) End() error {
	if d.done {
		return ErrNoActiveDrag
	}
	d.done = true
	return d.ctrl.ApplyTrim(d.clipID, d.trimStart, d.trimEnd, d.sourceDuration)
}

// Cancel abandons the gesture without touching the timeline.
func (d *TrimDrag) Cancel() {
	d.done = true
}
