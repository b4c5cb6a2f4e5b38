// Package ffmpeg implements the export transcoding capability on top of the
// ffmpeg and ffprobe binaries.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cutdeck/cutdeck-agent/internal/timeutil"
)

// Executor runs ffmpeg operations. It is safe for repeated invocations; the
// binary lookup happens once, on the first Load.
type Executor struct {
	ffmpegPath  string
	ffprobePath string
	workDir     string
	logger      *slog.Logger

	loadOnce sync.Once
	loadErr  error
	resolved string
	probeBin string
}

// NewExecutor creates an executor. ffmpegPath may be a bare binary name to
// resolve from PATH. Trimmed intermediates are written to workDir.
func NewExecutor(ffmpegPath, workDir string, logger *slog.Logger) *Executor {
	return &Executor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: "ffprobe",
		workDir:     workDir,
		logger:      logger,
	}
}

// Load resolves the ffmpeg and ffprobe binaries. Subsequent calls return
// the first result.
func (e *Executor) Load(ctx context.Context) error {
	e.loadOnce.Do(func() {
		resolved, err := exec.LookPath(e.ffmpegPath)
		if err != nil {
			e.loadErr = fmt.Errorf("ffmpeg not found: %w", err)
			return
		}
		probeBin, err := exec.LookPath(e.ffprobePath)
		if err != nil {
			e.loadErr = fmt.Errorf("ffprobe not found: %w", err)
			return
		}
		e.resolved = resolved
		e.probeBin = probeBin

		if err := os.MkdirAll(e.workDir, 0o755); err != nil {
			e.loadErr = fmt.Errorf("failed to create work dir: %w", err)
			return
		}

		if e.logger != nil {
			e.logger.Info("ffmpeg resolved", "path", resolved)
		}
	})
	return e.loadErr
}

// Trim re-encodes src down to [start, end) and returns the trimmed copy's
// path. Re-encoding keeps the cut accurate at non-keyframe positions.
func (e *Executor) Trim(ctx context.Context, src string, start, end float64) (string, error) {
	if end <= start {
		return "", fmt.Errorf("invalid trim range [%v, %v)", start, end)
	}
	if err := e.Load(ctx); err != nil {
		return "", err
	}

	out := filepath.Join(e.workDir, fmt.Sprintf("trim-%s%s", timeutil.NewID(), filepath.Ext(src)))
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", src,
		"-ss", timeutil.FormatTimestamp(start),
		"-t", timeutil.FormatTimestamp(end - start),
		"-c:v", "libx264",
		"-c:a", "aac",
		out,
	}

	if err := e.run(ctx, args); err != nil {
		os.Remove(out)
		return "", err
	}
	return out, nil
}

// Concat merges the ordered sources into one artifact via the concat
// demuxer, copying streams without re-encoding.
func (e *Executor) Concat(ctx context.Context, srcs []string, outPath string) error {
	if len(srcs) == 0 {
		return fmt.Errorf("no input files provided")
	}
	if outPath == "" {
		return fmt.Errorf("output path is required")
	}
	if err := e.Load(ctx); err != nil {
		return err
	}

	listFile, err := e.writeConcatList(srcs)
	if err != nil {
		return fmt.Errorf("failed to write concat list: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outPath,
	}
	return e.run(ctx, args)
}

// Probe returns the duration of a media file in seconds.
func (e *Executor) Probe(ctx context.Context, src string) (float64, error) {
	if err := e.Load(ctx); err != nil {
		return 0, err
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		src,
	}

	cmd := exec.CommandContext(ctx, e.probeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	dur, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", src)
	}
	return dur, nil
}

func (e *Executor) run(ctx context.Context, args []string) error {
	if err := e.Load(ctx); err != nil {
		return err
	}

	if e.logger != nil {
		e.logger.Debug("executing ffmpeg", "args", args)
	}

	cmd := exec.CommandContext(ctx, e.resolved, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg failed: %w: %s", err, string(output))
	}
	return nil
}

func (e *Executor) writeConcatList(srcs []string) (string, error) {
	f, err := os.CreateTemp(e.workDir, "concat-*.txt")
	if err != nil {
		return "", err
	}
	defer f.Close()

	for _, src := range srcs {
		abs, err := filepath.Abs(src)
		if err != nil {
			os.Remove(f.Name())
			return "", err
		}
		if _, err := fmt.Fprintf(f, "file '%s'\n", abs); err != nil {
			os.Remove(f.Name())
			return "", err
		}
	}
	return f.Name(), nil
}
