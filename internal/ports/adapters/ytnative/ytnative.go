package ytnative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kkdai/youtube/v2"

	"github.com/Vishalytig/shortsbot/internal/ports/adapters/ytdlp"
	"github.com/Vishalytig/shortsbot/internal/types"
)

// Adapter downloads progressive MP4 streams in-process, without yt-dlp.
// YouTube only serves progressive (audio+video) MP4 up to 360p/720p, so the
// yt-dlp engine usually yields better quality.
type Adapter struct {
	client youtube.Client
}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Download(ctx context.Context, url, outPath string) (types.SourceInfo, error) {
	id, err := ytdlp.ExtractVideoID(url)
	if err != nil {
		return types.SourceInfo{}, err
	}
	video, err := a.client.GetVideoContext(ctx, id)
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("youtube metadata: %w", err)
	}
	format, err := pickFormat(video.Formats)
	if err != nil {
		return types.SourceInfo{}, err
	}
	stream, _, err := a.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return types.SourceInfo{}, fmt.Errorf("youtube stream: %w", err)
	}
	defer stream.Close()

	f, err := os.Create(outPath)
	if err != nil {
		return types.SourceInfo{}, err
	}
	if _, err := io.Copy(f, stream); err != nil {
		_ = f.Close()
		return types.SourceInfo{}, fmt.Errorf("youtube download: %w", err)
	}
	if err := f.Close(); err != nil {
		return types.SourceInfo{}, err
	}
	return types.SourceInfo{VideoID: id, Title: video.Title, Path: outPath}, nil
}

// pickFormat chooses the highest-bitrate MP4 format that carries audio.
func pickFormat(formats youtube.FormatList) (*youtube.Format, error) {
	candidates := formats.WithAudioChannels().Type("video/mp4")
	if len(candidates) == 0 {
		return nil, errors.New("no progressive mp4 format with audio")
	}
	best := &candidates[0]
	for i := range candidates {
		if candidates[i].Bitrate > best.Bitrate {
			best = &candidates[i]
		}
	}
	return best, nil
}
