package config

import (
	"fmt"
	"strconv"
	"strings"
)

// applyEnv overlays SHORTSBOT_* and OPENAI_* variables. lookup is os.LookupEnv
// outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %q is not an integer", key, v)
		}
		*dst = n
		return nil
	}

	str("SHORTSBOT_MODE", &c.Selection.Mode)
	str("SHORTSBOT_KEYWORDS", &c.Selection.Keywords)
	for key, dst := range map[string]*int{
		"SHORTSBOT_MIN_CLIP_SEC":     &c.Selection.MinClipSec,
		"SHORTSBOT_MAX_CLIP_SEC":     &c.Selection.MaxClipSec,
		"SHORTSBOT_MAX_CLIPS":        &c.Selection.MaxClips,
		"SHORTSBOT_MAX_PROMPT_CHARS": &c.LLM.MaxPromptChars,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	str("SHORTSBOT_DOWNLOAD_ENGINE", &c.Engines.Download)
	str("SHORTSBOT_ASR_ENGINE", &c.Engines.ASR)
	str("SHORTSBOT_WHISPER_MODEL", &c.Engines.WhisperModel)
	str("SHORTSBOT_FFMPEG", &c.Tools.FFmpeg)
	str("SHORTSBOT_FFPROBE", &c.Tools.FFprobe)
	str("SHORTSBOT_YT_DLP", &c.Tools.YtDlp)
	str("SHORTSBOT_WHISPER_CPP", &c.Tools.WhisperCpp)
	str("SHORTSBOT_WHISPER_MODEL_DIR", &c.Tools.WhisperModelDir)
	str("SHORTSBOT_PYTHON", &c.Tools.Python)
	str("SHORTSBOT_OUT_DIR", &c.Paths.OutDir)
	str("SHORTSBOT_CACHE_DIR", &c.Paths.CacheDir)
	str("SHORTSBOT_LOG_FILE", &c.Paths.LogFile)
	str("SHORTSBOT_BIND", &c.Server.Bind)
	str("SHORTSBOT_LOG_LEVEL", &c.Logging.Level)
	str("SHORTSBOT_LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("SHORTSBOT_BURN_SUBTITLES"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("SHORTSBOT_BURN_SUBTITLES: %q is not a boolean", v)
		}
		c.Render.BurnSubtitles = b
	}

	str("OPENAI_API_KEY", &c.LLM.APIKey)
	str("OPENAI_BASE_URL", &c.LLM.BaseURL)
	str("OPENAI_MODEL", &c.LLM.Model)
	if v, ok := lookup("OPENAI_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		c.LLM.AllowedHosts = nil
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.LLM.AllowedHosts = append(c.LLM.AllowedHosts, h)
			}
		}
	}
	return nil
}
