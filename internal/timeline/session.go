// Package timeline owns all clip state for an editing session. Every
// structural mutation goes through the Session; nothing else writes clips.
package timeline

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/cutdeck/cutdeck-agent/internal/timeutil"
)

// Session is the authoritative in-memory timeline for one editing session.
// It is created per session and torn down with it; nothing is persisted.
//
// Mutations replace the clip slice wholesale (copy-on-write), so a snapshot
// taken by a reader never observes a half-applied operation.
type Session struct {
	mu sync.RWMutex

	clips          []*Clip
	currentTime    float64
	playing        bool
	selectedClipID string
	settings       Settings

	logger *slog.Logger
}

// NewSession creates an empty timeline session.
func NewSession(settings Settings, logger *slog.Logger) *Session {
	return &Session{settings: settings, logger: logger}
}

// Settings returns the static project settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// AddClip appends a clip at the end of its track: the new clip's start time
// is the sum of the durations of the existing clips on the same track.
// Adding a video clip atomically creates a derived audio clip at the same
// start time, linked via SourceVideoID. Returns the new clip's id.
func (s *Session) AddClip(in ClipInput) (string, error) {
	if in.Type != TrackVideo && in.Type != TrackAudio {
		return "", ErrInvalidType
	}
	if in.Duration <= 0 {
		return "", ErrInvalidDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := 0.0
	for _, c := range s.clips {
		if c.Type == in.Type {
			startTime += c.Duration
		}
	}

	clip := &Clip{
		ID:        timeutil.NewID(),
		Type:      in.Type,
		SourceURL: in.SourceURL,
		Name:      in.Name,
		Duration:  in.Duration,
		TrimStart: 0,
		TrimEnd:   in.Duration,
		StartTime: startTime,
		Volume:    1.0,
	}

	next := append(s.snapshotLocked(), clip)

	if in.Type == TrackVideo {
		next = append(next, &Clip{
			ID:            timeutil.NewID(),
			Type:          TrackAudio,
			SourceURL:     in.SourceURL,
			Name:          in.Name + " (audio)",
			Duration:      in.Duration,
			TrimStart:     0,
			TrimEnd:       in.Duration,
			StartTime:     startTime,
			SourceVideoID: clip.ID,
			Volume:        1.0,
		})
	}

	s.clips = next

	if s.logger != nil {
		s.logger.Info("clip added", "clip_id", clip.ID, "type", clip.Type, "duration", clip.Duration, "start_time", clip.StartTime)
	}
	return clip.ID, nil
}

// RemoveClip deletes a clip. Later clips keep their start times, so removal
// may leave a gap; only ReorderClips closes gaps. Removing a video clip does
// not remove its derived audio clip. Clears the selection if the removed
// clip was selected.
func (s *Session) RemoveClip(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrClipNotFound
	}

	next := make([]*Clip, 0, len(s.clips)-1)
	next = append(next, s.clips[:idx]...)
	next = append(next, s.clips[idx+1:]...)
	s.clips = next

	if s.selectedClipID == id {
		s.selectedClipID = ""
	}

	if s.logger != nil {
		s.logger.Info("clip removed", "clip_id", id)
	}
	return nil
}

// UpdateClip shallow-merges the non-nil fields of upd into the clip. When a
// trim bound changes, the duration is recomputed from the new bounds in the
// same operation so the duration invariant holds after every mutation.
func (s *Session) UpdateClip(id string, upd ClipUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrClipNotFound
	}

	c := *s.clips[idx]

	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.TrimStart != nil {
		c.TrimStart = *upd.TrimStart
	}
	if upd.TrimEnd != nil {
		c.TrimEnd = *upd.TrimEnd
	}
	if upd.TrimStart != nil || upd.TrimEnd != nil {
		if c.TrimStart < 0 || c.TrimStart >= c.TrimEnd {
			return ErrInvalidTrim
		}
		c.Duration = c.TrimEnd - c.TrimStart
	}
	if upd.StartTime != nil {
		if *upd.StartTime < 0 {
			return ErrInvalidTrim
		}
		c.StartTime = *upd.StartTime
	}
	if upd.Volume != nil {
		c.Volume = *upd.Volume
	}

	next := s.snapshotLocked()
	next[idx] = &c
	s.clips = next
	return nil
}

// SplitClip replaces a clip with two fresh-id clips whose trim bounds tile
// the original interval: the first keeps [TrimStart, TrimStart+offset) at
// the original start time, the second keeps [TrimStart+offset, TrimEnd)
// starting offset seconds later. No-op error unless 0 < offset < Duration.
func (s *Session) SplitClip(id string, offset float64) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return "", "", ErrClipNotFound
	}

	old := s.clips[idx]
	if offset <= 0 || offset >= old.Duration {
		return "", "", ErrInvalidSplit
	}

	first := *old
	first.ID = timeutil.NewID()
	first.TrimEnd = old.TrimStart + offset
	first.Duration = offset

	second := *old
	second.ID = timeutil.NewID()
	second.TrimStart = old.TrimStart + offset
	second.Duration = old.TrimEnd - second.TrimStart
	second.StartTime = old.StartTime + offset

	next := s.snapshotLocked()
	next[idx] = &first
	next = append(next[:idx+1], append([]*Clip{&second}, next[idx+1:]...)...)
	s.clips = next

	if s.selectedClipID == id {
		s.selectedClipID = ""
	}

	if s.logger != nil {
		s.logger.Info("clip split", "clip_id", id, "offset", offset, "first_id", first.ID, "second_id", second.ID)
	}
	return first.ID, second.ID, nil
}

// ReorderClips moves the clip at position from to position to within the
// given track's start-time ordering, then recomputes every start time on
// that track as prefix sums of the durations in the new order. This is the
// one operation that recomputes start times globally; it collapses any gaps
// left by earlier removals.
func (s *Session) ReorderClips(track Track, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := s.trackOrderLocked(track)
	if from < 0 || from >= len(ordered) || to < 0 || to >= len(ordered) {
		return ErrInvalidIndex
	}

	moved := ordered[from]
	ordered = append(ordered[:from], ordered[from+1:]...)
	ordered = append(ordered[:to], append([]*Clip{moved}, ordered[to:]...)...)

	next := s.snapshotLocked()
	cursor := 0.0
	for _, c := range ordered {
		repl := *c
		repl.StartTime = cursor
		cursor += repl.Duration
		for i, existing := range next {
			if existing.ID == repl.ID {
				next[i] = &repl
				break
			}
		}
	}
	s.clips = next

	if s.logger != nil {
		s.logger.Info("clips reordered", "track", track, "from", from, "to", to)
	}
	return nil
}

// Clear empties the timeline and resets playback and selection state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clips = nil
	s.selectedClipID = ""
	s.currentTime = 0
	s.playing = false
}

// TotalDuration is the end of the furthest clip, 0 for an empty timeline.
func (s *Session) TotalDuration() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalLocked()
}

// ClipAt resolves the clip under global time t on the given track, and the
// local offset into that clip. A boundary instant belongs to the later clip.
func (s *Session) ClipAt(track Track, t float64) (Clip, float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.trackOrderLocked(track) {
		if t >= c.StartTime && t < c.End() {
			return *c, t - c.StartTime, true
		}
	}
	return Clip{}, 0, false
}

// NextClip returns the first clip on the track starting at or after t.
func (s *Session) NextClip(track Track, t float64) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.trackOrderLocked(track) {
		if c.StartTime >= t {
			return *c, true
		}
	}
	return Clip{}, false
}

// Clip returns a copy of the clip with the given id.
func (s *Session) Clip(id string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return Clip{}, false
	}
	return *s.clips[idx], true
}

// Clips returns copies of all clips, ordered by track then start time.
func (s *Session) Clips() []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Clip, 0, len(s.clips))
	for _, c := range s.trackOrderLocked(TrackVideo) {
		out = append(out, *c)
	}
	for _, c := range s.trackOrderLocked(TrackAudio) {
		out = append(out, *c)
	}
	return out
}

// TrackClips returns copies of the track's clips in start-time order.
func (s *Session) TrackClips(track Track) []Clip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.trackOrderLocked(track)
	out := make([]Clip, len(ordered))
	for i, c := range ordered {
		out[i] = *c
	}
	return out
}

// Select marks a clip as the single selection. An empty id clears it.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexLocked(id) < 0 {
		return ErrClipNotFound
	}
	s.selectedClipID = id
	return nil
}

// SelectedClipID returns the selected clip id, or "" when nothing is
// selected.
func (s *Session) SelectedClipID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedClipID
}

// CurrentTime returns the global playhead position.
func (s *Session) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTime
}

// SetCurrentTime moves the playhead, clamped to [0, TotalDuration].
func (s *Session) SetCurrentTime(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t < 0 {
		t = 0
	}
	if total := s.totalLocked(); t > total {
		t = total
	}
	s.currentTime = t
}

// Playing reports the playback state.
func (s *Session) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying toggles the playback state.
func (s *Session) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing
}

// ClipCount returns the number of clips across all tracks.
func (s *Session) ClipCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}

func (s *Session) totalLocked() float64 {
	total := 0.0
	for _, c := range s.clips {
		if end := c.End(); end > total {
			total = end
		}
	}
	return total
}

func (s *Session) indexLocked(id string) int {
	for i, c := range s.clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) snapshotLocked() []*Clip {
	next := make([]*Clip, len(s.clips))
	copy(next, s.clips)
	return next
}

// trackOrderLocked returns the track's clips sorted by start time, stable
// over insertion order for equal starts.
func (s *Session) trackOrderLocked(track Track) []*Clip {
	ordered := make([]*Clip, 0, len(s.clips))
	for _, c := range s.clips {
		if c.Type == track {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})
	return ordered
}
