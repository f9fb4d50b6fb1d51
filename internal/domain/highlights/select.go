package highlights

import (
	"math"
	"strings"
	"time"

	"github.com/Vishalytig/shortsbot/internal/types"
)

// Bounds holds the duration band and the count cap applied to every run.
type Bounds struct {
	MinClip  time.Duration
	MaxClip  time.Duration
	MaxClips int
}

func (b Bounds) admits(c types.Candidate) bool {
	d := c.Duration()
	return c.End > c.Start && d >= b.MinClip && d <= b.MaxClip
}

// Mode selects how candidates are discovered. It is implemented by
// KeywordMatch and ModelAssisted only.
type Mode interface {
	Name() string
	extract(segs []types.Segment, b Bounds) types.ClipPlan
}

// KeywordMatch accepts segments whose text contains any keyword as a
// case-insensitive substring.
type KeywordMatch struct {
	Keywords []string
}

func (KeywordMatch) Name() string { return "keywords" }

// extract scans segments in order and stops as soon as the cap is reached, so
// segments after that point are never looked at.
func (m KeywordMatch) extract(segs []types.Segment, b Bounds) types.ClipPlan {
	if b.MaxClips <= 0 {
		return types.ClipPlan{}
	}
	kws := make([]string, 0, len(m.Keywords))
	for _, kw := range m.Keywords {
		if kw = strings.ToLower(kw); kw != "" {
			kws = append(kws, kw)
		}
	}
	plan := types.ClipPlan{}
	if len(kws) == 0 {
		return plan
	}
	for _, s := range segs {
		if !containsAny(strings.ToLower(s.Text), kws) {
			continue
		}
		c := types.Candidate{Start: dur(s.Start), End: dur(s.End), Label: strings.TrimSpace(s.Text)}
		if !b.admits(c) {
			continue
		}
		plan = append(plan, c)
		if len(plan) >= b.MaxClips {
			break
		}
	}
	return plan
}

// ModelAssisted selects the windows listed in a language model's freeform
// answer.
type ModelAssisted struct {
	Output string
}

func (ModelAssisted) Name() string { return "model" }

// extract parses every entry first and only then filters and truncates.
func (m ModelAssisted) extract(_ []types.Segment, b Bounds) types.ClipPlan {
	return Validate(ParseTimestamps(m.Output), b)
}

// Extract turns a transcript into a clip plan using the given mode.
func Extract(segs []types.Segment, mode Mode, b Bounds) types.ClipPlan {
	if mode == nil {
		return types.ClipPlan{}
	}
	return mode.extract(segs, b)
}

func containsAny(text string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// dur rounds to the nearest nanosecond so decimal seconds such as 47.01-2.01
// measure exactly 45s.
func dur(sec float64) time.Duration { return time.Duration(math.Round(sec * float64(time.Second))) }
