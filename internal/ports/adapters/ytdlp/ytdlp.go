package ytdlp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/Vishalytig/shortsbot/internal/types"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// Download fetches the best single-file MP4 rendition of url into outPath.
func (a *Adapter) Download(ctx context.Context, url, outPath string) (types.SourceInfo, error) {
	id, err := ExtractVideoID(url)
	if err != nil {
		return types.SourceInfo{}, err
	}
	args := []string{
		"-f", "best[ext=mp4]",
		"--no-playlist",
		"--force-overwrites",
		"--print", "title",
		"--no-simulate",
		"-o", outPath,
		WatchURL(id),
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return types.SourceInfo{}, fmt.Errorf("yt-dlp download: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("yt-dlp produced no file: %w", err)
	}
	if st.Size() == 0 {
		return types.SourceInfo{}, fmt.Errorf("yt-dlp produced an empty file: %s", outPath)
	}
	title, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return types.SourceInfo{VideoID: id, Title: strings.TrimSpace(title), Path: outPath}, nil
}
