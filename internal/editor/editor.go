// Package editor runs the media editing operations (trim, concat, filter,
// upscale, music overlay) with ffmpeg. Every call gets a private workspace
// directory; inputs are written under fixed names, the engine is invoked with
// an explicit argument array, and a fixed output name is read back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"mediavault/internal/config"
)

var (
	// ErrInvalidInput marks caller mistakes; the handler maps it to 400.
	ErrInvalidInput = errors.New("invalid editor input")
	ErrNoRanges     = fmt.Errorf("%w: no valid range left after clamping", ErrInvalidInput)
	ErrNoFilters    = fmt.Errorf("%w: at least one filter is required", ErrInvalidInput)
	ErrTooFewVideos = fmt.Errorf("%w: at least two videos are required", ErrInvalidInput)
	ErrEmptyOutput  = errors.New("output file is empty")
)

// OperationError is returned when the engine fails. Its message names only the
// operation; the engine diagnostics are logged.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string { return e.Op + " failed" }
func (e *OperationError) Unwrap() error { return e.Err }

// Editor orchestrates ffmpeg calls inside per-request workspaces.
type Editor struct {
	runner     Runner
	prober     Prober
	workDir    string
	staleAfter time.Duration
	log        *zap.Logger
}

const defaultStaleAfter = 6 * time.Hour

// New creates an Editor that shells out to the configured ffmpeg and ffprobe binaries.
func New(cfg config.EditorConfig, log *zap.Logger) *Editor {
	e := NewWithRunner(
		&execRunner{bin: cfg.FfmpegPath, log: log},
		&ffprobe{ffmpegBin: cfg.FfmpegPath, ffprobeBin: cfg.FfprobePath},
		cfg.WorkDir,
		log,
	)
	if cfg.StaleAfter > 0 {
		e.staleAfter = cfg.StaleAfter
	}
	return e
}

// NewWithRunner creates an Editor with explicit engine and probe implementations.
func NewWithRunner(r Runner, p Prober, workDir string, log *zap.Logger) *Editor {
	return &Editor{runner: r, prober: p, workDir: workDir, staleAfter: defaultStaleAfter, log: log}
}

func (e *Editor) run(ctx context.Context, ws *Workspace, op string, args ...string) error {
	if err := e.runner.Run(ctx, ws.Dir, args...); err != nil {
		e.log.Error("editor_engine_failed",
			zap.String("op", op),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return &OperationError{Op: op, Err: err}
	}
	return nil
}

// duration returns the media length in seconds, or 0 when it cannot be probed.
func (e *Editor) duration(ws *Workspace, name string) float64 {
	d, err := e.prober.Duration(ws.Path(name))
	if err != nil {
		e.log.Warn("editor_probe_failed", zap.String("file", name), zap.Error(err))
		return 0
	}
	return d
}

func (e *Editor) open() (*Workspace, error) {
	ws, err := NewWorkspace(e.workDir)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// Trim cuts every range out of the video and joins them in order.
func (e *Editor) Trim(ctx context.Context, video io.Reader, ranges []Range) (*Output, error) {
	return e.trim(ctx, video, ranges, trimVideo)
}

// TrimAudio is Trim for audio tracks. A single range is returned without a concat pass.
func (e *Editor) TrimAudio(ctx context.Context, audio io.Reader, ranges []Range) (*Output, error) {
	return e.trim(ctx, audio, ranges, trimAudio)
}

type trimSpec struct {
	op         string
	input      string
	segmentExt string
	manifest   string
	output     string
	joinSingle bool
}

var (
	trimVideo = trimSpec{
		op: "trim", input: "input.mp4", segmentExt: ".mp4",
		manifest: "concat_list.txt", output: "final_output.mp4", joinSingle: true,
	}
	trimAudio = trimSpec{
		op: "trim-audio", input: "input_audio.mp3", segmentExt: ".mp3",
		manifest: "audio_concat_list.txt", output: "final_audio.mp3",
	}
)

func (e *Editor) trim(ctx context.Context, in io.Reader, ranges []Range, spec trimSpec) (_ *Output, err error) {
	ws, err := e.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Close()
		}
	}()

	if err := ws.Write(spec.input, in); err != nil {
		return nil, err
	}

	kept := ClampRanges(ranges, e.duration(ws, spec.input))
	if len(kept) == 0 {
		return nil, ErrNoRanges
	}

	if len(kept) == 1 && !spec.joinSingle {
		if err := e.run(ctx, ws, spec.op, cutArgs(kept[0], spec.input, spec.output)...); err != nil {
			return nil, err
		}
		return ws.Output(spec.output)
	}

	segments := make([]string, len(kept))
	for i, r := range kept {
		segments[i] = fmt.Sprintf("cut_%d%s", i, spec.segmentExt)
		if err := e.run(ctx, ws, spec.op, cutArgs(r, spec.input, segments[i])...); err != nil {
			return nil, err
		}
	}
	if err := ws.Write(spec.manifest, strings.NewReader(concatManifest(segments))); err != nil {
		return nil, err
	}
	if err := e.run(ctx, ws, spec.op, concatCopyArgs(spec.manifest, spec.output)...); err != nil {
		return nil, err
	}
	return ws.Output(spec.output)
}

// Concat normalizes every video to 1280x720 at 30fps and joins them in order.
func (e *Editor) Concat(ctx context.Context, videos []io.Reader) (_ *Output, err error) {
	if len(videos) < 2 {
		return nil, ErrTooFewVideos
	}
	ws, err := e.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Close()
		}
	}()

	encoded := make([]string, len(videos))
	for i, v := range videos {
		in := fmt.Sprintf("input%d.mp4", i)
		if err := ws.Write(in, v); err != nil {
			return nil, err
		}
		encoded[i] = fmt.Sprintf("encoded%d.mp4", i)
		if err := e.run(ctx, ws, "concat", encodeArgs(in, encoded[i])...); err != nil {
			return nil, err
		}
	}
	if err := ws.Write("list.txt", strings.NewReader(concatManifest(encoded))); err != nil {
		return nil, err
	}
	if err := e.run(ctx, ws, "concat", concatCopyArgs("list.txt", "concat.mp4")...); err != nil {
		return nil, err
	}
	return ws.Output("concat.mp4")
}

// Filter applies the selected visual filters after normalizing to 1280x720 at 30fps.
func (e *Editor) Filter(ctx context.Context, video io.Reader, filters []Filter) (*Output, error) {
	chain, err := FilterChain(filters)
	if err != nil {
		return nil, err
	}
	return e.single(ctx, "filter", video, "input.mp4", "filtered.mp4", filterArgs(chain))
}

// Upscale re-encodes the video to 1920x1080.
func (e *Editor) Upscale(ctx context.Context, video io.Reader) (*Output, error) {
	return e.single(ctx, "upscale", video, "input.mp4", "output.mp4", upscaleArgs())
}

func (e *Editor) single(ctx context.Context, op string, in io.Reader, inName, outName string, args []string) (_ *Output, err error) {
	ws, err := e.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Close()
		}
	}()

	if err := ws.Write(inName, in); err != nil {
		return nil, err
	}
	if err := e.run(ctx, ws, op, args...); err != nil {
		return nil, err
	}
	return ws.Output(outName)
}

// AddMusic replaces the video's audio track with the given music, cut to the shorter stream.
func (e *Editor) AddMusic(ctx context.Context, video, music io.Reader) (_ *Output, err error) {
	ws, err := e.open()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			ws.Close()
		}
	}()

	if err := ws.Write("video.mp4", video); err != nil {
		return nil, err
	}
	if err := ws.Write("music.mp3", music); err != nil {
		return nil, err
	}
	if err := e.run(ctx, ws, "music", musicArgs()...); err != nil {
		return nil, err
	}
	return ws.Output("video_with_music.mp4")
}

// Cleanup removes workspaces left by a crash. Only workspaces older than the
// stale age are touched, so calls in flight in another process sharing the
// work dir survive. It is safe to call at start-up.
func (e *Editor) Cleanup() error {
	base := e.workDir
	if base == "" {
		base = os.TempDir()
	}
	matches, err := globWorkspaces(base)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-e.staleAfter)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(m); err != nil {
			e.log.Warn("editor_workspace_cleanup_failed", zap.String("dir", m), zap.Error(err))
			continue
		}
		e.log.Info("editor_workspace_removed", zap.String("dir", m))
	}
	return nil
}
