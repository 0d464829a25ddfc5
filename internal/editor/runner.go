package editor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/floostack/transcoder/ffmpeg"
	"go.uber.org/zap"
)

// Runner invokes the engine with args inside dir.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// Prober reports the duration of a media file in seconds.
type Prober interface {
	Duration(path string) (float64, error)
}

type execRunner struct {
	bin string
	log *zap.Logger
}

// Run executes ffmpeg. The process is killed when ctx is cancelled.
func (r *execRunner) Run(ctx context.Context, dir string, args ...string) error {
	full := append([]string{"-hide_banner", "-nostdin", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, r.bin, full...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 2048 {
			msg = msg[len(msg)-2048:]
		}
		r.log.Debug("ffmpeg_stderr", zap.String("dir", dir), zap.String("stderr", msg))
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

type ffprobe struct {
	ffmpegBin  string
	ffprobeBin string
}

func (p *ffprobe) Duration(path string) (float64, error) {
	md, err := ffmpeg.New(&ffmpeg.Config{
		FfmpegBinPath:  p.ffmpegBin,
		FfprobeBinPath: p.ffprobeBin,
	}).Input(path).GetMetadata()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	raw := md.GetFormat().GetDuration()
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return d, nil
}
