package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Vishalytig/shortsbot/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// ModelPath maps a model size such as "tiny" or "base" to the ggml file
// whisper.cpp's download script produces inside dir.
func ModelPath(dir, size string) string {
	return filepath.Join(dir, "ggml-"+size+".bin")
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	if _, err := os.Stat(a.model); err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp model: %w", err)
	}
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", "auto",
		"-bs", "5",
		"-ojf",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decodeOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text   string  `json:"text"`
		Tokens []token `json:"tokens"`
	} `json:"transcription"`
}

type token struct {
	Offsets struct {
		From int64 `json:"from"`
		To   int64 `json:"to"`
	} `json:"offsets"`
	Text string `json:"text"`
}

// decodeOutput converts whisper.cpp's -ojf file (millisecond offsets) into a
// transcript in seconds, keeping the engine's segment order.
func decodeOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}
	tr := types.Transcript{Language: out.Result.Language}
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.Offsets.To <= s.Offsets.From {
			continue
		}
		tr.Segments = append(tr.Segments, types.Segment{
			Start: float64(s.Offsets.From) / 1000,
			End:   float64(s.Offsets.To) / 1000,
			Text:  text,
			Words: mergeTokens(s.Tokens),
		})
	}
	return tr, nil
}

// mergeTokens joins sub-word tokens into words. A token with a leading space
// starts a new word; control tokens such as [_BEG_] are skipped.
func mergeTokens(toks []token) []types.Word {
	var words []types.Word
	for _, tk := range toks {
		if strings.HasPrefix(tk.Text, "[_") || strings.TrimSpace(tk.Text) == "" {
			continue
		}
		start := float64(tk.Offsets.From) / 1000
		end := float64(tk.Offsets.To) / 1000
		if len(words) == 0 || strings.HasPrefix(tk.Text, " ") {
			words = append(words, types.Word{Start: start, End: end, Word: strings.TrimSpace(tk.Text)})
			continue
		}
		last := &words[len(words)-1]
		last.Word += strings.TrimSpace(tk.Text)
		if end > last.End {
			last.End = end
		}
	}
	return words
}
