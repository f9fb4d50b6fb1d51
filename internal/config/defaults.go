package config

const (
	ModeKeywords = "keywords"
	ModeModel    = "model"

	DownloadYtDlp  = "ytdlp"
	DownloadNative = "native"

	ASRWhisperCpp    = "whispercpp"
	ASRFasterWhisper = "fasterwhisper"
	ASROpenAI        = "openai"
)

const (
	defaultMode            = ModeKeywords
	defaultKeywords        = "important,summary,highlight"
	defaultMinClipSec      = 25
	defaultMaxClipSec      = 45
	defaultMaxClips        = 10
	defaultDownloadEngine  = DownloadYtDlp
	defaultASREngine       = ASRWhisperCpp
	defaultWhisperModel    = "tiny"
	defaultOutDir          = "out"
	defaultCacheDir        = ".cache"
	defaultFFmpeg          = "ffmpeg"
	defaultFFprobe         = "ffprobe"
	defaultYtDlp           = "yt-dlp"
	defaultWhisperCpp      = ".cache/bin/whisper-cli"
	defaultWhisperModelDir = ".cache/models"
	defaultPython          = "python3"
	defaultLLMModel        = "gpt-4o-mini"
	defaultTranscribeModel = "whisper-1"
	defaultMaxPromptChars  = 12000
	defaultBind            = "127.0.0.1:8080"
	defaultRequestsPerMin  = 6
	defaultBurst           = 2
	defaultMaxRequestBody  = 64 << 10
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// WhisperModels lists the accepted local model sizes.
var WhisperModels = []string{"tiny", "base", "small"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Selection: Selection{
			Mode:       defaultMode,
			Keywords:   defaultKeywords,
			MinClipSec: defaultMinClipSec,
			MaxClipSec: defaultMaxClipSec,
			MaxClips:   defaultMaxClips,
		},
		Engines: Engines{
			Download:     defaultDownloadEngine,
			ASR:          defaultASREngine,
			WhisperModel: defaultWhisperModel,
		},
		Tools: Tools{
			FFmpeg:          defaultFFmpeg,
			FFprobe:         defaultFFprobe,
			YtDlp:           defaultYtDlp,
			WhisperCpp:      defaultWhisperCpp,
			WhisperModelDir: defaultWhisperModelDir,
			Python:          defaultPython,
		},
		LLM: LLM{
			Model:              defaultLLMModel,
			TranscriptionModel: defaultTranscribeModel,
			MaxPromptChars:     defaultMaxPromptChars,
		},
		Paths: Paths{
			OutDir:   defaultOutDir,
			CacheDir: defaultCacheDir,
		},
		Server: Server{
			Bind:               defaultBind,
			RequestsPerMinute:  defaultRequestsPerMin,
			Burst:              defaultBurst,
			MaxRequestBodySize: defaultMaxRequestBody,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
