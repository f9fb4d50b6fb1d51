package fasterwhisper

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Vishalytig/shortsbot/internal/types"
)

//go:embed assets/transcribe.py
var helperScript []byte

// Adapter runs the faster-whisper Python package through an embedded helper
// script, on CPU with int8 weights. Segments carry word timings.
type Adapter struct {
	python string
	model  string
}

func New(pythonPath, model string) *Adapter {
	if pythonPath == "" {
		pythonPath = "python3"
	}
	if model == "" {
		model = "tiny"
	}
	return &Adapter{python: pythonPath, model: model}
}

type helperOutput struct {
	Language string `json:"language"`
	Segments []struct {
		Start float64      `json:"start"`
		End   float64      `json:"end"`
		Text  string       `json:"text"`
		Words []types.Word `json:"words"`
	} `json:"segments"`
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	script := filepath.Join(cacheDir, "faster_whisper.py")
	if err := os.WriteFile(script, helperScript, 0o644); err != nil {
		return types.Transcript{}, fmt.Errorf("write helper script: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, a.python, script,
		"--audio", wavPath,
		"--model", a.model,
		"--device", "cpu",
		"--compute-type", "int8",
		"--beam-size", "5",
	)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("faster-whisper failed: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}

	var parsed helperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return types.Transcript{}, fmt.Errorf("parse faster-whisper output: %w", err)
	}
	tr := types.Transcript{Language: parsed.Language}
	for _, s := range parsed.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		seg := types.Segment{Start: s.Start, End: s.End, Text: text}
		for _, w := range s.Words {
			w.Word = strings.TrimSpace(w.Word)
			if w.Word == "" || w.End < w.Start {
				continue
			}
			seg.Words = append(seg.Words, w)
		}
		tr.Segments = append(tr.Segments, seg)
	}
	return tr, nil
}
