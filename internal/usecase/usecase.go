package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vishalytig/shortsbot/internal/domain/highlights"
	"github.com/Vishalytig/shortsbot/internal/domain/subtitles"
	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/types"
)

const (
	ModeKeywords = "keywords"
	ModeModel    = "model"
)

type Deps struct {
	Source ports.Downloader
	Video  ports.VideoTool
	ASR    ports.ASR
	// Oracle is only consulted in model mode.
	Oracle ports.Oracle
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	SourceURL     string
	Mode          string
	Keywords      []string
	Bounds        highlights.Bounds
	BurnSubtitles bool
	CacheDir      string
	// OutDir must already contain clips/ (and subtitles/ when burning).
	OutDir string
	Logf   func(format string, args ...any)
}

type Result struct {
	Source     types.SourceInfo
	Transcript types.Transcript
	Plan       types.ClipPlan
	Manifest   types.Manifest
}

// Empty reports that no window survived selection. It is a normal outcome,
// not an error.
func (r Result) Empty() bool { return len(r.Plan) == 0 }

// Run downloads, transcribes, selects and cuts. Download, transcription and
// oracle failures abort the run; a clip that fails to render is recorded in
// the manifest and the remaining clips are still attempted.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	logf := in.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	if in.Mode != ModeKeywords && in.Mode != ModeModel {
		return Result{}, fmt.Errorf("unknown selection mode %q", in.Mode)
	}

	logf("downloading %s", in.SourceURL)
	src, err := u.d.Source.Download(ctx, in.SourceURL, filepath.Join(in.CacheDir, "source.mp4"))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	logf("downloaded %q", src.Title)

	wav := filepath.Join(in.CacheDir, "audio.wav")
	logf("extracting audio")
	if err := u.d.Video.ExtractAudioMono16k(ctx, src.Path, wav); err != nil {
		return Result{}, fmt.Errorf("%w: extract audio: %w", ports.ErrTranscription, err)
	}
	logf("transcribing")
	tr, err := u.d.ASR.Transcribe(ctx, wav, in.CacheDir)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ports.ErrTranscription, err)
	}
	logf("transcript: %d segments", len(tr.Segments))

	mode, err := u.selectionMode(ctx, in, tr)
	if err != nil {
		return Result{}, err
	}
	plan := highlights.Extract(tr.Segments, mode, in.Bounds)
	logf("selected %d clip(s) in %s mode", len(plan), mode.Name())

	res := Result{
		Source:     src,
		Transcript: tr,
		Plan:       plan,
		Manifest: types.Manifest{
			Source:     in.SourceURL,
			VideoID:    src.VideoID,
			Title:      src.Title,
			Mode:       mode.Name(),
			MinClipSec: in.Bounds.MinClip.Seconds(),
			MaxClipSec: in.Bounds.MaxClip.Seconds(),
			MaxClips:   in.Bounds.MaxClips,
			Clips:      []types.ManifestClip{},
		},
	}

	for i, c := range plan {
		idx := i + 1
		mc, err := u.materialize(ctx, in, src.Path, tr, idx, c)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			logf("clip %d/%d failed: %v", idx, len(plan), err)
			res.Manifest.Failed = append(res.Manifest.Failed, types.ClipFailure{Index: idx, Error: err.Error()})
			continue
		}
		logf("clip %d/%d: %s", idx, len(plan), mc.File)
		res.Manifest.Clips = append(res.Manifest.Clips, mc)
	}
	return res, nil
}

func (u Usecase) selectionMode(ctx context.Context, in Input, tr types.Transcript) (highlights.Mode, error) {
	if in.Mode == ModeKeywords {
		return highlights.KeywordMatch{Keywords: in.Keywords}, nil
	}
	if u.d.Oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", ports.ErrOracle)
	}
	if len(tr.Segments) == 0 {
		return highlights.ModelAssisted{}, nil
	}
	out, err := u.d.Oracle.Suggest(ctx, ports.OracleRequest{
		Transcript: tr,
		MinClip:    in.Bounds.MinClip,
		MaxClip:    in.Bounds.MaxClip,
		MaxClips:   in.Bounds.MaxClips,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ports.ErrOracle, err)
	}
	return highlights.ModelAssisted{Output: out}, nil
}

func (u Usecase) materialize(
	ctx context.Context,
	in Input,
	srcPath string,
	tr types.Transcript,
	idx int,
	c types.Candidate,
) (types.ManifestClip, error) {
	name := fmt.Sprintf("clip_%d", idx)
	clipRel := filepath.Join("clips", name+".mp4")
	clipPath := filepath.Join(in.OutDir, clipRel)

	burnASS := ""
	subsRel := ""
	if in.BurnSubtitles {
		subsRel = filepath.Join("subtitles", name+".ass")
		burnASS = filepath.Join(in.OutDir, subsRel)
		if err := os.WriteFile(burnASS, []byte(subtitles.RenderClipASS(tr, c)), 0o644); err != nil {
			return types.ManifestClip{}, fmt.Errorf("%w: write subtitles: %w", ports.ErrClipExtraction, err)
		}
	}

	if err := u.d.Video.RenderClip(ctx, srcPath, c.Start, c.End, clipPath, burnASS); err != nil {
		if rmErr := os.Remove(clipPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = errors.Join(err, rmErr)
		}
		if !errors.Is(err, ports.ErrClipExtraction) {
			err = fmt.Errorf("%w: %w", ports.ErrClipExtraction, err)
		}
		return types.ManifestClip{}, err
	}

	return types.ManifestClip{
		Index:     idx,
		StartSec:  c.Start.Seconds(),
		EndSec:    c.End.Seconds(),
		Label:     c.Label,
		File:      filepath.ToSlash(clipRel),
		Subtitles: filepath.ToSlash(subsRel),
	}, nil
}
