package ports

import (
	"context"
	"time"

	"github.com/Vishalytig/shortsbot/internal/types"
)

type Downloader interface {
	Download(ctx context.Context, url, outPath string) (types.SourceInfo, error)
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, inMP4, outWav string) error
	RenderClip(ctx context.Context, inMP4 string, start, end time.Duration, outMP4 string, burnASS string) error
	MediaDuration(ctx context.Context, inMP4 string) (time.Duration, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// OracleRequest carries what the highlight-suggestion model needs to propose windows.
type OracleRequest struct {
	Transcript types.Transcript
	MinClip    time.Duration
	MaxClip    time.Duration
	MaxClips   int
}

// Oracle returns freeform text listing highlight windows, roughly one
// "MM:SS - MM:SS: label" entry per line.
type Oracle interface {
	Suggest(ctx context.Context, req OracleRequest) (string, error)
}
