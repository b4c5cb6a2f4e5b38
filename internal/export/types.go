package export

import (
	"context"
	"errors"
)

var (
	ErrNoClips = errors.New("no video clips to export")
)

// Transcoder is the external transcoding capability. It must tolerate being
// invoked many times per export; the exporter initiates a single Load
// before the first call and nothing else about its lifecycle.
type Transcoder interface {
	Load(ctx context.Context) error
	// Trim re-encodes src down to [start, end) seconds and returns the
	// path of the trimmed copy.
	Trim(ctx context.Context, src string, start, end float64) (string, error)
	// Concat merges the ordered sources into one artifact at out.
	Concat(ctx context.Context, srcs []string, out string) error
}

// Prober reports the duration of a media source in seconds.
type Prober interface {
	Probe(ctx context.Context, src string) (float64, error)
}

// SourceFetcher resolves a clip's source URL to a local file path, fetching
// the bytes if they are not already local.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Progress receives coarse export progress, 0 to 100. The first half of the
// range tracks per-clip trimming; the remainder is the concat step.
type Progress func(percent int)

// Result describes a finished export.
type Result struct {
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
}
