package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Vishalytig/shortsbot/internal/ports"
)

// endTolerance absorbs container rounding between ffprobe's duration and
// transcript timestamps near the end of the source.
const endTolerance = 500 * time.Millisecond

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudioMono16k writes the 16 kHz mono WAV every ASR engine expects.
func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error {
	_, err := runTool(ctx, "ffmpeg extract audio", a.ffmpeg,
		"-y",
		"-i", inMP4,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	return err
}

// RenderClip cuts [start, end) out of inMP4 into outMP4, re-encoded as
// H.264/AAC. An existing outMP4 is overwritten. Every failure wraps
// ports.ErrClipExtraction.
func (a *Adapter) RenderClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string, burnASS string) error {
	if start < 0 || end <= start {
		return fmt.Errorf("%w: invalid window %s-%s", ports.ErrClipExtraction, start, end)
	}
	total, err := a.MediaDuration(ctx, inMP4)
	if err != nil {
		return fmt.Errorf("%w: %w", ports.ErrClipExtraction, err)
	}
	if end > total+endTolerance {
		return fmt.Errorf("%w: window %s-%s exceeds source duration %s", ports.ErrClipExtraction, start, end, total)
	}

	args := []string{
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inMP4,
	}
	if burnASS != "" {
		args = append(args, "-vf", "subtitles="+escapeFilterPath(burnASS))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-c:a", "aac",
		"-b:a", "160k",
		"-movflags", "+faststart",
		outMP4,
	)
	if _, err := runTool(ctx, "ffmpeg render clip", a.ffmpeg, args...); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrClipExtraction, err)
	}
	return nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// MediaDuration reads the container duration reported by ffprobe.
func (a *Adapter) MediaDuration(ctx context.Context, inMP4 string) (time.Duration, error) {
	b, err := runTool(ctx, "ffprobe duration", a.ffprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_entries", "format=duration",
		inMP4,
	)
	if err != nil {
		return 0, err
	}
	var out ffprobeOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	s := strings.TrimSpace(out.Format.Duration)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", inMP4)
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(math.Round(sec * float64(time.Second))), nil
}

// runTool runs bin and returns its stdout. On failure the error carries the
// combined output so the cause is visible to the user.
func runTool(ctx context.Context, op, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w\n%s%s", op, err, stdout.String(), stderr.String())
	}
	return []byte(stdout.String()), nil
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	return p
}
