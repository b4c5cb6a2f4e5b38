// Package playback keeps the logical global clock and the media element's
// local clock consistent in both directions without feedback loops: while
// playing, the media clock is the single writer and the global clock
// follows; while scrubbing, the global clock is the single writer and the
// media element is only nudged when drift exceeds a tolerance.
package playback

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

// State of the synchronizer with respect to the active clip.
type State int

const (
	// StateIdle means no playable clip sits under the playhead.
	StateIdle State = iota
	// StateSeeking means the media element is being moved toward the
	// target local time.
	StateSeeking
	// StateSynced means the media clock is within DriftTolerance of the
	// target while paused.
	StateSynced
	// StatePlaying means the media clock is advancing and drives the
	// global clock every frame.
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeking:
		return "seeking"
	case StateSynced:
		return "synced"
	case StatePlaying:
		return "playing"
	}
	return "unknown"
}

const (
	// DriftTolerance is the maximum clock disagreement, in seconds, left
	// uncorrected while scrubbing. Below it, timeupdate noise from the
	// element is ignored rather than thrashing it with seeks.
	DriftTolerance = 0.2

	// BoundaryGuard is how close, in seconds, the media clock may get to
	// the clip's trim end before the synchronizer advances to the next
	// clip.
	BoundaryGuard = 0.05

	// BoundaryNudge is added past a clip's end when jumping the global
	// clock over a boundary, so the resolver lands inside the next clip.
	BoundaryNudge = 0.01

	// DefaultFrameInterval approximates one animation frame.
	DefaultFrameInterval = time.Second / 60
)

// MediaElement is the single external playback primitive. One element is
// active at a time, loaded with the source of the clip under the playhead.
// Its local clock is positioned within the original source, so the local
// target for a clip is TrimStart plus the offset into the clip.
type MediaElement interface {
	CurrentTime() float64
	Seek(t float64)
	Play() error
	Pause()
	Ready() bool
	SetSource(url string)
}

// Synchronizer drives one MediaElement from the timeline session.
type Synchronizer struct {
	sess   *timeline.Session
	elem   MediaElement
	logger *slog.Logger

	frameInterval time.Duration
	running       atomic.Bool

	mu            sync.Mutex
	state         State
	activeClipID  string
	playRequested bool
}

// NewSynchronizer creates a synchronizer over the session and element.
func NewSynchronizer(sess *timeline.Session, elem MediaElement, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		sess:          sess,
		elem:          elem,
		logger:        logger,
		frameInterval: DefaultFrameInterval,
	}
}

// State returns the current synchronizer state.
func (y *Synchronizer) State() State {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.state
}

// ActiveClipID returns the id of the clip the element is loaded with, or ""
// when idle.
func (y *Synchronizer) ActiveClipID() string {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.activeClipID
}

// Run drives the frame loop until ctx is cancelled. Only one loop runs at a
// time; a second call returns immediately.
func (y *Synchronizer) Run(ctx context.Context) {
	if y.running.Swap(true) {
		return
	}
	defer y.running.Store(false)

	if y.logger != nil {
		y.logger.Info("playback loop started", "frame_interval", y.frameInterval)
	}

	ticker := time.NewTicker(y.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if y.logger != nil {
				y.logger.Info("playback loop stopping")
			}
			return
		case <-ticker.C:
			y.Tick()
		}
	}
}

// Play starts playback from the current playhead position.
func (y *Synchronizer) Play() {
	y.sess.SetPlaying(true)

	y.mu.Lock()
	y.playRequested = false
	y.mu.Unlock()

	y.Tick()
}

// Pause stops playback immediately. The playhead keeps its position.
func (y *Synchronizer) Pause() {
	y.sess.SetPlaying(false)
	y.elem.Pause()

	y.mu.Lock()
	if y.state == StatePlaying {
		y.state = StateSynced
	}
	y.playRequested = false
	y.mu.Unlock()
}

// Seek moves the global clock and makes it the writer for the next ticks:
// a seek during playback drops back to Seeking so the element is
// repositioned before its clock resumes driving. While paused the media
// element is only repositioned when the resulting drift exceeds
// DriftTolerance.
func (y *Synchronizer) Seek(t float64) {
	y.sess.SetCurrentTime(t)

	y.mu.Lock()
	if y.state == StatePlaying {
		y.state = StateSeeking
	}
	y.mu.Unlock()

	y.Tick()
}

// Tick performs one frame step. The production loop calls it from Run;
// tests call it directly.
func (y *Synchronizer) Tick() {
	y.mu.Lock()
	defer y.mu.Unlock()

	t := y.sess.CurrentTime()
	clip, offset, ok := y.sess.ClipAt(timeline.TrackVideo, t)
	if !ok {
		y.handleNoClipLocked(t)
		return
	}

	if clip.ID != y.activeClipID {
		y.switchClipLocked(clip, offset)
		return
	}

	target := clip.TrimStart + offset

	if !y.elem.Ready() {
		// Losing readiness (source load, autoplay rejection) drops the play
		// latch so play is re-requested once the element comes back.
		y.playRequested = false
		y.state = StateSeeking
		return
	}

	if y.sess.Playing() {
		y.tickPlayingLocked(clip, target)
		return
	}

	// Scrub direction: global clock is the writer, correct the element
	// only past the tolerance.
	drift := y.elem.CurrentTime() - target
	if drift < 0 {
		drift = -drift
	}
	if drift > DriftTolerance {
		y.elem.Seek(target)
		y.state = StateSeeking
	} else {
		y.state = StateSynced
	}
}

// handleNoClipLocked runs when no clip sits under the playhead. While
// playing, a gap left by a removal plays through to the next clip; past the
// last clip, playback stops and the playhead rewinds.
func (y *Synchronizer) handleNoClipLocked(t float64) {
	if !y.sess.Playing() {
		y.state = StateIdle
		y.activeClipID = ""
		return
	}

	next, ok := y.sess.NextClip(timeline.TrackVideo, t)
	if !ok {
		y.finishLocked()
		return
	}

	y.sess.SetCurrentTime(next.StartTime)
	y.state = StateSeeking
}

func (y *Synchronizer) switchClipLocked(clip timeline.Clip, offset float64) {
	y.activeClipID = clip.ID
	y.playRequested = false
	y.elem.SetSource(clip.SourceURL)
	y.elem.Seek(clip.TrimStart + offset)
	y.state = StateSeeking

	if y.logger != nil {
		y.logger.Debug("active clip switched", "clip_id", clip.ID, "local_time", clip.TrimStart+offset)
	}
}

func (y *Synchronizer) tickPlayingLocked(clip timeline.Clip, target float64) {
	if y.state == StateSeeking {
		drift := y.elem.CurrentTime() - target
		if drift < 0 {
			drift = -drift
		}
		if drift > DriftTolerance {
			y.elem.Seek(target)
			return
		}
	}

	if !y.playRequested {
		y.playRequested = true
		if err := y.elem.Play(); err != nil {
			// Recoverable: autoplay policy or similar. Playing stays true,
			// the playhead simply stalls until the element starts.
			if y.logger != nil {
				y.logger.Warn("media element rejected play", "clip_id", clip.ID, "error", err)
			}
		}
	}

	local := y.elem.CurrentTime() - clip.TrimStart
	if local >= clip.Duration-BoundaryGuard {
		y.crossBoundaryLocked(clip)
		return
	}

	// Playing direction: media clock is the writer.
	y.sess.SetCurrentTime(clip.StartTime + local)
	y.state = StatePlaying
}

func (y *Synchronizer) crossBoundaryLocked(clip timeline.Clip) {
	if _, ok := y.sess.NextClip(timeline.TrackVideo, clip.End()); !ok {
		y.finishLocked()
		return
	}

	// Jump just past the boundary; the next tick resolves the following
	// clip and re-seeks while playback keeps running.
	y.sess.SetCurrentTime(clip.End() + BoundaryNudge)
	y.state = StateSeeking

	if y.logger != nil {
		y.logger.Debug("clip boundary crossed", "clip_id", clip.ID)
	}
}

func (y *Synchronizer) finishLocked() {
	y.sess.SetPlaying(false)
	y.sess.SetCurrentTime(0)
	y.elem.Pause()
	y.state = StateIdle
	y.activeClipID = ""
	y.playRequested = false

	if y.logger != nil {
		y.logger.Info("playback finished")
	}
}
