package types

import (
	"strings"
	"time"
)

type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Text joins the trimmed segment texts with single spaces.
func (t Transcript) Text() string {
	parts := make([]string, 0, len(t.Segments))
	for _, s := range t.Segments {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, " ")
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Candidate is a highlight window in source time.
type Candidate struct {
	Start time.Duration
	End   time.Duration
	Label string
}

func (c Candidate) Duration() time.Duration { return c.End - c.Start }

// ClipPlan is the accepted, order-preserving list of highlight windows for one run.
type ClipPlan []Candidate

// SourceInfo describes the downloaded source media.
type SourceInfo struct {
	VideoID string
	Title   string
	Path    string
}

type ClipFailure struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

type Manifest struct {
	Source     string         `json:"source"`
	VideoID    string         `json:"video_id,omitempty"`
	Title      string         `json:"title,omitempty"`
	Mode       string         `json:"mode"`
	MinClipSec float64        `json:"min_clip_sec"`
	MaxClipSec float64        `json:"max_clip_sec"`
	MaxClips   int            `json:"max_clips"`
	Clips      []ManifestClip `json:"clips"`
	Failed     []ClipFailure  `json:"failed,omitempty"`
}

type ManifestClip struct {
	Index     int     `json:"index"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Label     string  `json:"label"`
	File      string  `json:"file"`
	Subtitles string  `json:"subtitles,omitempty"`
}
