package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Vishalytig/shortsbot/internal/domain/highlights"
)

//go:embed sample_config.toml
var sampleConfig string

// Selection controls how highlight windows are chosen.
type Selection struct {
	Mode       string `toml:"mode"`
	Keywords   string `toml:"keywords"`
	MinClipSec int    `toml:"min_clip_sec"`
	MaxClipSec int    `toml:"max_clip_sec"`
	MaxClips   int    `toml:"max_clips"`
}

// Engines picks the downloader and transcription backends.
type Engines struct {
	Download     string `toml:"download"`
	ASR          string `toml:"asr"`
	WhisperModel string `toml:"whisper_model"`
}

// Tools lists external executables and model locations.
type Tools struct {
	FFmpeg          string `toml:"ffmpeg"`
	FFprobe         string `toml:"ffprobe"`
	YtDlp           string `toml:"yt_dlp"`
	WhisperCpp      string `toml:"whisper_cpp"`
	WhisperModelDir string `toml:"whisper_model_dir"`
	Python          string `toml:"python"`
}

// LLM holds the OpenAI-compatible endpoint used for model-assisted selection
// and remote transcription.
type LLM struct {
	APIKey             string   `toml:"api_key"`
	BaseURL            string   `toml:"base_url"`
	AllowedHosts       []string `toml:"allowed_hosts"`
	Model              string   `toml:"model"`
	TranscriptionModel string   `toml:"transcription_model"`
	MaxPromptChars     int      `toml:"max_prompt_chars"`
}

type Paths struct {
	OutDir   string `toml:"out_dir"`
	CacheDir string `toml:"cache_dir"`
	LogFile  string `toml:"log_file"`
}

type Render struct {
	BurnSubtitles bool `toml:"burn_subtitles"`
}

type Server struct {
	Bind               string `toml:"bind"`
	RequestsPerMinute  int    `toml:"requests_per_minute"`
	Burst              int    `toml:"burst"`
	MaxRequestBodySize int64  `toml:"max_request_body_bytes"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for shortsbot.
type Config struct {
	Selection Selection `toml:"selection"`
	Engines   Engines   `toml:"engines"`
	Tools     Tools     `toml:"tools"`
	LLM       LLM       `toml:"llm"`
	Paths     Paths     `toml:"paths"`
	Render    Render    `toml:"render"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

const DefaultFileName = "shortsbot.toml"

// Load builds a config from defaults, the TOML file at path (or
// ./shortsbot.toml when path is empty) and the environment. It reports the
// resolved path and whether the file existed. Callers apply flag overrides and
// then call Validate.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	} else if path != "" {
		return nil, "", false, fmt.Errorf("config file %s does not exist", resolvedPath)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, "", false, err
	}
	cfg.normalize()
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = DefaultFileName
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, fmt.Errorf("resolve config path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return abs, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", abs)
	}
	return abs, true, nil
}

// SampleConfig returns the commented sample TOML written by `config init`.
func SampleConfig() string {
	return sampleConfig
}

// WriteSample writes the sample config to path, refusing to overwrite unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	return os.WriteFile(path, []byte(sampleConfig), 0o644)
}

// Bounds converts the selection settings into domain bounds.
func (c *Config) Bounds() highlights.Bounds {
	return highlights.Bounds{
		MinClip:  time.Duration(c.Selection.MinClipSec) * time.Second,
		MaxClip:  time.Duration(c.Selection.MaxClipSec) * time.Second,
		MaxClips: c.Selection.MaxClips,
	}
}

// KeywordList returns the parsed keyword list.
func (c *Config) KeywordList() []string {
	return highlights.ParseKeywords(c.Selection.Keywords)
}

// NeedsLLM reports whether the configured run talks to the LLM endpoint.
func (c *Config) NeedsLLM() bool {
	return c.Selection.Mode == ModeModel || c.Engines.ASR == ASROpenAI
}

func (c *Config) normalize() {
	c.Selection.Mode = strings.ToLower(strings.TrimSpace(c.Selection.Mode))
	c.Engines.Download = strings.ToLower(strings.TrimSpace(c.Engines.Download))
	c.Engines.ASR = strings.ToLower(strings.TrimSpace(c.Engines.ASR))
	c.Engines.WhisperModel = strings.ToLower(strings.TrimSpace(c.Engines.WhisperModel))
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Paths.OutDir == "" {
		c.Paths.OutDir = defaultOutDir
	}
	if c.Paths.CacheDir == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
}
