// Package export produces one concatenated media artifact from the video
// track: fetch each clip's source, trim where the clip uses a sub-range,
// then concatenate in start-time order. Any per-clip failure fails the
// whole export; there is no partial output.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/cutdeck/cutdeck-agent/internal/timeline"
)

// Exporter runs the export pipeline against an external transcoder.
type Exporter struct {
	trans  Transcoder
	prober Prober
	fetch  SourceFetcher
	logger *slog.Logger
}

// NewExporter creates an exporter over the given capabilities.
func NewExporter(trans Transcoder, prober Prober, fetch SourceFetcher, logger *slog.Logger) *Exporter {
	return &Exporter{trans: trans, prober: prober, fetch: fetch, logger: logger}
}

// Export renders the session's video track to outPath. onProgress may be
// nil. Intermediate trimmed files are removed when the export finishes,
// successfully or not; a failed export also removes outPath.
func (e *Exporter) Export(ctx context.Context, sess *timeline.Session, outPath string, onProgress Progress) (*Result, error) {
	clips := sess.TrackClips(timeline.TrackVideo)
	if len(clips) == 0 {
		return nil, ErrNoClips
	}

	if err := e.trans.Load(ctx); err != nil {
		return nil, fmt.Errorf("transcoder unavailable: %w", err)
	}

	report := func(p int) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	report(0)

	var intermediates []string
	defer func() {
		for _, p := range intermediates {
			os.Remove(p)
		}
	}()

	segments := make([]string, 0, len(clips))
	for i, clip := range clips {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export cancelled: %w", err)
		}

		src, err := e.fetch.Fetch(ctx, clip.SourceURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch source for clip %s: %w", clip.ID, err)
		}

		trimmed, err := e.trimIfNeeded(ctx, clip, src)
		if err != nil {
			return nil, fmt.Errorf("failed to trim clip %s: %w", clip.ID, err)
		}
		if trimmed != src {
			intermediates = append(intermediates, trimmed)
		}

		segments = append(segments, trimmed)
		report((i + 1) * 50 / len(clips))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("export cancelled: %w", err)
	}

	if err := e.trans.Concat(ctx, segments, outPath); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("failed to concatenate segments: %w", err)
	}
	report(100)

	if e.logger != nil {
		e.logger.Info("export complete", "output", outPath, "clips", len(clips))
	}
	return &Result{OutputPath: outPath, ClipCount: len(clips)}, nil
}

// trimIfNeeded passes untrimmed clips through unmodified. A clip needs
// trimming when its trim start is past zero or its trim end stops short of
// the probed source duration.
func (e *Exporter) trimIfNeeded(ctx context.Context, clip timeline.Clip, src string) (string, error) {
	sourceDur, err := e.prober.Probe(ctx, src)
	if err != nil {
		return "", err
	}

	if clip.TrimStart <= 0 && clip.TrimEnd >= sourceDur {
		return src, nil
	}
	return e.trans.Trim(ctx, src, clip.TrimStart, clip.TrimEnd)
}
