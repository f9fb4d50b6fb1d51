package openai

import (
	"context"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Vishalytig/shortsbot/internal/types"
)

// Transcriber uploads audio to an OpenAI-compatible /audio/transcriptions
// endpoint and maps the verbose_json segments and word timings.
type Transcriber struct {
	client *goopenai.Client
	key    string
	model  string
}

func NewTranscriber(apiKey, baseURL, model string) *Transcriber {
	if model == "" {
		model = goopenai.Whisper1
	}
	return &Transcriber{client: newClient(apiKey, baseURL), key: apiKey, model: model}
}

func (t *Transcriber) Transcribe(ctx context.Context, wavPath, _ string) (types.Transcript, error) {
	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: wavPath,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []goopenai.TranscriptionTimestampGranularity{
			goopenai.TranscriptionTimestampGranularityWord,
			goopenai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		return types.Transcript{}, apiError("transcription", err, t.key)
	}

	tr := types.Transcript{Language: resp.Language}
	for _, s := range resp.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" || s.End <= s.Start {
			continue
		}
		tr.Segments = append(tr.Segments, types.Segment{Start: s.Start, End: s.End, Text: text})
	}

	words := make([]types.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" || w.End < w.Start {
			continue
		}
		words = append(words, types.Word{Start: w.Start, End: w.End, Word: text})
	}
	attachWords(tr.Segments, words)
	return tr, nil
}

// attachWords assigns each word to the segment containing its start time.
// Both inputs are in time order; words outside every segment are dropped.
func attachWords(segs []types.Segment, words []types.Word) {
	i := 0
	for _, w := range words {
		for i < len(segs) && w.Start >= segs[i].End {
			i++
		}
		if i == len(segs) {
			return
		}
		if w.Start < segs[i].Start {
			continue
		}
		segs[i].Words = append(segs[i].Words, w)
	}
}
