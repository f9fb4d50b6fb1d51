package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/types"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultMaxPromptChars = 12000
)

const systemPrompt = "You pick short-form highlight clips from video transcripts. " +
	"Answer with one clip per line in the form MM:SS - MM:SS: short title. " +
	"Use only times that appear in the transcript. No other text."

// Oracle asks a chat-completions model for highlight windows. The reply is
// returned untouched; parsing and validation happen in the highlights package.
type Oracle struct {
	client         *goopenai.Client
	key            string
	model          string
	maxPromptChars int
}

func NewOracle(apiKey, baseURL, model string) *Oracle {
	if model == "" {
		model = DefaultModel
	}
	return &Oracle{
		client:         newClient(apiKey, baseURL),
		key:            apiKey,
		model:          model,
		maxPromptChars: DefaultMaxPromptChars,
	}
}

// WithMaxPromptChars bounds how much transcript text is sent; n <= 0 keeps the default.
func (o *Oracle) WithMaxPromptChars(n int) *Oracle {
	if n > 0 {
		o.maxPromptChars = n
	}
	return o
}

func (o *Oracle) Suggest(ctx context.Context, req ports.OracleRequest) (string, error) {
	if len(req.Transcript.Segments) == 0 {
		return "", errors.New("empty transcript")
	}
	resp, err := o.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: o.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: buildPrompt(req, o.maxPromptChars)},
		},
	})
	if err != nil {
		return "", apiError("chat completion", err, o.key)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices (model=%s)", o.model)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat completion: empty reply (model=%s)", o.model)
	}
	return content, nil
}

func buildPrompt(req ports.OracleRequest, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest up to %d highlight clips, each between %d and %d seconds long.\n\n",
		req.MaxClips, int(req.MinClip.Seconds()), int(req.MaxClip.Seconds()))
	b.WriteString("Transcript:\n")
	b.WriteString(timestampedTranscript(req.Transcript, maxChars))
	return b.String()
}

// timestampedTranscript renders "[MM:SS] text" lines, cut to at most maxChars runes.
func timestampedTranscript(tr types.Transcript, maxChars int) string {
	var b strings.Builder
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "[%s] %s\n", mmss(s.Start), text)
	}
	return truncate(b.String(), maxChars)
}

func mmss(sec float64) string {
	d := time.Duration(math.Round(sec * float64(time.Second))).Truncate(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", m, s)
}

func newClient(apiKey, baseURL string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = normalizeBaseURL(baseURL)
	return goopenai.NewClientWithConfig(cfg)
}

func apiError(op string, err error, key string) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("%s: status %d: %s", op, apiErr.HTTPStatusCode, truncate(redactSecrets(apiErr.Message, key), 400))
		return &redactedError{msg: msg, cause: err}
	}
	return &redactedError{msg: op + ": " + truncate(redactSecrets(err.Error(), key), 400), cause: err}
}
