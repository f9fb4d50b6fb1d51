package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSelection(); err != nil {
		return err
	}
	if err := c.validateEngines(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSelection() error {
	s := c.Selection
	switch s.Mode {
	case ModeKeywords:
		if len(c.KeywordList()) == 0 {
			return errors.New("selection.keywords: at least one keyword is required in keywords mode")
		}
	case ModeModel:
	default:
		return fmt.Errorf("selection.mode: unsupported value %q (want %s or %s)", s.Mode, ModeKeywords, ModeModel)
	}
	if s.MinClipSec <= 0 {
		return errors.New("selection.min_clip_sec must be > 0")
	}
	if s.MaxClipSec < s.MinClipSec {
		return errors.New("selection.max_clip_sec must be >= min_clip_sec")
	}
	if s.MaxClips <= 0 {
		return errors.New("selection.max_clips must be > 0")
	}
	return nil
}

func (c *Config) validateEngines() error {
	switch c.Engines.Download {
	case DownloadYtDlp, DownloadNative:
	default:
		return fmt.Errorf("engines.download: unsupported value %q", c.Engines.Download)
	}
	switch c.Engines.ASR {
	case ASRWhisperCpp, ASRFasterWhisper:
		if !slices.Contains(WhisperModels, c.Engines.WhisperModel) {
			return fmt.Errorf("engines.whisper_model: unsupported value %q (want one of %v)", c.Engines.WhisperModel, WhisperModels)
		}
	case ASROpenAI:
	default:
		return fmt.Errorf("engines.asr: unsupported value %q", c.Engines.ASR)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if !c.NeedsLLM() {
		return nil
	}
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required for model mode and the openai ASR engine (set OPENAI_API_KEY)")
	}
	if c.LLM.MaxPromptChars < 0 {
		return errors.New("llm.max_prompt_chars must be >= 0")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RequestsPerMinute <= 0 {
		return errors.New("server.requests_per_minute must be > 0")
	}
	if c.Server.Burst <= 0 {
		return errors.New("server.burst must be > 0")
	}
	if c.Server.MaxRequestBodySize <= 0 {
		return errors.New("server.max_request_body_bytes must be > 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
