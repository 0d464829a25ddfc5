package editor

import (
	"fmt"
	"strconv"
	"strings"
)

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// cutArgs copies [Start, End) of input without re-encoding.
func cutArgs(r Range, input, output string) []string {
	return []string{
		"-ss", seconds(r.Start),
		"-to", seconds(r.End),
		"-i", input,
		"-c", "copy",
		"-y", output,
	}
}

// concatCopyArgs joins the files listed in manifest with the concat demuxer.
func concatCopyArgs(manifest, output string) []string {
	return []string{"-f", "concat", "-safe", "0", "-i", manifest, "-c", "copy", "-y", output}
}

func concatManifest(files []string) string {
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "file '%s'\n", f)
	}
	return b.String()
}

// encodeArgs normalizes a clip so heterogeneous inputs can be stream-copied together.
func encodeArgs(input, output string) []string {
	return []string{
		"-i", input,
		"-vf", "scale=1280:720",
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-y", output,
	}
}

func filterArgs(chain string) []string {
	return []string{"-i", "input.mp4", "-vf", chain, "-c:a", "copy", "-y", "filtered.mp4"}
}

func upscaleArgs() []string {
	return []string{
		"-i", "input.mp4",
		"-vf", "scale=1920:1080",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-y", "output.mp4",
	}
}

func musicArgs() []string {
	return []string{
		"-i", "video.mp4",
		"-i", "music.mp3",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-shortest",
		"-y", "video_with_music.mp4",
	}
}
