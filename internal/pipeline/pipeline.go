package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/Vishalytig/shortsbot/internal/config"
	"github.com/Vishalytig/shortsbot/internal/domain/highlights"
	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/fasterwhisper"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/ffmpeg"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/openai"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/whispercpp"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/ytdlp"
	"github.com/Vishalytig/shortsbot/internal/ports/adapters/ytnative"
	"github.com/Vishalytig/shortsbot/internal/usecase"
)

type Config struct {
	SourceURL     string
	Mode          string
	Keywords      []string
	Bounds        highlights.Bounds
	BurnSubtitles bool
	OutDir        string
	// RunName, when set, is used verbatim as the run directory name.
	RunName string
	Logf    func(format string, args ...any)

	// CacheDir is the base directory for local artifacts (source video, audio, etc.).
	// If empty, defaults to ".cache".
	CacheDir string

	DownloadEngine string
	ASREngine      string
	WhisperModel   string

	FFmpegPath      string
	FFprobePath     string
	YtDlpPath       string
	WhisperBin      string
	WhisperModelDir string
	PythonPath      string

	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIAllowedHosts []string
	OpenAIModel        string
	TranscriptionModel string
	MaxPromptChars     int
}

// FromConfig maps loaded settings onto a pipeline config for one source.
func FromConfig(c *config.Config, sourceURL string) Config {
	return Config{
		SourceURL:          strings.TrimSpace(sourceURL),
		Mode:               c.Selection.Mode,
		Keywords:           c.KeywordList(),
		Bounds:             c.Bounds(),
		BurnSubtitles:      c.Render.BurnSubtitles,
		OutDir:             c.Paths.OutDir,
		CacheDir:           c.Paths.CacheDir,
		DownloadEngine:     c.Engines.Download,
		ASREngine:          c.Engines.ASR,
		WhisperModel:       c.Engines.WhisperModel,
		FFmpegPath:         c.Tools.FFmpeg,
		FFprobePath:        c.Tools.FFprobe,
		YtDlpPath:          c.Tools.YtDlp,
		WhisperBin:         c.Tools.WhisperCpp,
		WhisperModelDir:    c.Tools.WhisperModelDir,
		PythonPath:         c.Tools.Python,
		OpenAIAPIKey:       c.LLM.APIKey,
		OpenAIBaseURL:      c.LLM.BaseURL,
		OpenAIAllowedHosts: c.LLM.AllowedHosts,
		OpenAIModel:        c.LLM.Model,
		TranscriptionModel: c.LLM.TranscriptionModel,
		MaxPromptChars:     c.LLM.MaxPromptChars,
	}
}

func (c Config) Validate() error {
	if c.SourceURL == "" {
		return errors.New("source URL is empty")
	}
	if _, err := ytdlp.ExtractVideoID(c.SourceURL); err != nil {
		return fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}
	if c.Mode != usecase.ModeKeywords && c.Mode != usecase.ModeModel {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Bounds.MaxClips <= 0 {
		return errors.New("clips must be > 0")
	}
	if c.Bounds.MinClip <= 0 {
		return errors.New("min clip must be > 0")
	}
	if c.Bounds.MinClip > c.Bounds.MaxClip {
		return errors.New("min clip must be <= max clip")
	}
	if c.ASREngine == config.ASRWhisperCpp && c.WhisperModel == "" {
		return errors.New("whisper model is required")
	}
	if c.Mode == usecase.ModeModel || c.ASREngine == config.ASROpenAI {
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required (set it in .env)")
		}
		return openai.ValidateBaseURL(c.OpenAIBaseURL, c.OpenAIAllowedHosts)
	}
	return nil
}

// Report describes where a run's artifacts were written.
type Report struct {
	RunDir       string
	ManifestPath string
	Result       usecase.Result
}

func Run(ctx context.Context, cfg Config) (Report, error) {
	deps, err := buildDeps(cfg)
	if err != nil {
		return Report{}, err
	}
	return run(ctx, cfg, deps, time.Now().UTC())
}

func buildDeps(cfg Config) (usecase.Deps, error) {
	deps := usecase.Deps{Video: ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)}

	switch cfg.DownloadEngine {
	case config.DownloadYtDlp, "":
		deps.Source = ytdlp.New(cfg.YtDlpPath)
	case config.DownloadNative:
		deps.Source = ytnative.New()
	default:
		return usecase.Deps{}, fmt.Errorf("unknown download engine %q", cfg.DownloadEngine)
	}

	switch cfg.ASREngine {
	case config.ASRWhisperCpp, "":
		deps.ASR = whispercpp.New(cfg.WhisperBin, whispercpp.ModelPath(cfg.WhisperModelDir, cfg.WhisperModel))
	case config.ASRFasterWhisper:
		deps.ASR = fasterwhisper.New(cfg.PythonPath, cfg.WhisperModel)
	case config.ASROpenAI:
		deps.ASR = openai.NewTranscriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscriptionModel)
	default:
		return usecase.Deps{}, fmt.Errorf("unknown ASR engine %q", cfg.ASREngine)
	}

	if cfg.Mode == usecase.ModeModel {
		deps.Oracle = openai.NewOracle(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel).
			WithMaxPromptChars(cfg.MaxPromptChars)
	}
	return deps, nil
}

func run(ctx context.Context, cfg Config, deps usecase.Deps, now time.Time) (Report, error) {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	videoID, err := ytdlp.ExtractVideoID(cfg.SourceURL)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ports.ErrSourceUnavailable, err)
	}

	uc := usecase.New(deps)

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", hash(videoID))
	logf("preparing workspace")
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return Report{}, err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := filepath.Join(outDir, cfg.RunName)
	if cfg.RunName == "" {
		runOutDir = buildRunOutDir(outDir, videoID, now)
	}
	clipsDir := filepath.Join(runOutDir, "clips")
	if err := os.MkdirAll(clipsDir, 0o755); err != nil {
		return Report{}, err
	}
	if cfg.BurnSubtitles {
		if err := os.MkdirAll(filepath.Join(runOutDir, "subtitles"), 0o755); err != nil {
			return Report{}, err
		}
	}
	logf("output run dir: %s", runOutDir)

	res, err := uc.Run(ctx, usecase.Input{
		SourceURL:     cfg.SourceURL,
		Mode:          cfg.Mode,
		Keywords:      cfg.Keywords,
		Bounds:        cfg.Bounds,
		BurnSubtitles: cfg.BurnSubtitles,
		CacheDir:      cacheDir,
		OutDir:        runOutDir,
		Logf:          logf,
	})
	if err != nil {
		return Report{RunDir: runOutDir, Result: res}, err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return Report{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return Report{}, err
	}
	logf("manifest written (%d clips, %d failed): %s", len(res.Manifest.Clips), len(res.Manifest.Failed), manifestPath)
	return Report{RunDir: runOutDir, ManifestPath: manifestPath, Result: res}, nil
}

func buildRunOutDir(outRoot, videoID string, now time.Time) string {
	name := normalizePathSegment(videoID)
	if name == "" {
		name = "video"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", videoID, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.VideoTool  = (*ffmpeg.Adapter)(nil)
	_ ports.Downloader = (*ytdlp.Adapter)(nil)
	_ ports.Downloader = (*ytnative.Adapter)(nil)
	_ ports.ASR        = (*whispercpp.Adapter)(nil)
	_ ports.ASR        = (*fasterwhisper.Adapter)(nil)
	_ ports.ASR        = (*openai.Transcriber)(nil)
	_ ports.Oracle     = (*openai.Oracle)(nil)
)
