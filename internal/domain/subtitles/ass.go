package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Vishalytig/shortsbot/internal/types"
)

// RenderClipASS renders the transcript text that falls inside clip as an ASS
// subtitle file with clip-local timestamps. Word timings produce karaoke
// lines; otherwise each overlapping segment becomes one dialogue line.
func RenderClipASS(tr types.Transcript, clip types.Candidate) string {
	if words := collectWords(tr, clip.Start, clip.End); len(words) > 0 {
		return renderEvents(packWords(words), true)
	}
	return renderEvents(segmentLines(tr, clip.Start, clip.End), false)
}

type cue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Cues  []cue
}

// clampToWindow clamps [s, e) to the window and shifts it to window-local time.
func clampToWindow(s, e, start, end time.Duration) (time.Duration, time.Duration, bool) {
	if e <= start || s >= end {
		return 0, 0, false
	}
	if s < start {
		s = start
	}
	if e > end {
		e = end
	}
	return s - start, e - start, true
}

func collectWords(tr types.Transcript, start, end time.Duration) []cue {
	var out []cue
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			ws, we, ok := clampToWindow(dur(w.Start), dur(w.End), start, end)
			if !ok {
				continue
			}
			out = append(out, cue{Start: ws, End: we, Text: sanitizeASS(text)})
		}
	}
	return out
}

func segmentLines(tr types.Transcript, start, end time.Duration) []line {
	var out []line
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		ss, se, ok := clampToWindow(dur(s.Start), dur(s.End), start, end)
		if !ok {
			continue
		}
		out = append(out, line{Start: ss, End: se, Cues: []cue{{Start: ss, End: se, Text: sanitizeASS(text)}}})
	}
	return out
}

func packWords(words []cue) []line {
	const (
		charBudget = 42
		wordBudget = 9
	)
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen + wl
		if curLen > 0 {
			nextLen++
		}
		if len(cur.Cues) >= wordBudget || nextLen > charBudget {
			cur.End = cur.Cues[len(cur.Cues)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Cues = append(cur.Cues, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderEvents(lines []line, karaoke bool) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Shorts,,0,0,0,,", assTime(ln.Start), assTime(ln.End))
		for i, c := range ln.Cues {
			if karaoke {
				cs := int((c.End - c.Start) / (10 * time.Millisecond))
				if cs < 1 {
					cs = 1
				}
				fmt.Fprintf(&b, "{\\k%d}", cs)
			}
			b.WriteString(c.Text)
			if i < len(ln.Cues)-1 {
				b.WriteByte(' ')
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Shorts, Arial, 64, &H00FFFFFF, &H0000D7FF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 80,80,90,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(math.Round(sec * float64(time.Second))) }
