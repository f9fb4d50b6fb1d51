package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Vishalytig/shortsbot/internal/domain/highlights"
	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/types"
)

type fakeSource struct {
	err error
}

func (f fakeSource) Download(_ context.Context, _ string, outPath string) (types.SourceInfo, error) {
	if f.err != nil {
		return types.SourceInfo{}, f.err
	}
	return types.SourceInfo{VideoID: "dQw4w9WgXcQ", Title: "Talk", Path: outPath}, nil
}

type fakeVideoTool struct {
	audioErr      error
	failStarts    map[time.Duration]error
	renderBurnASS []string
	renderStarts  []time.Duration
	renderOuts    []string
}

func (f *fakeVideoTool) ExtractAudioMono16k(_ context.Context, _, _ string) error {
	return f.audioErr
}

func (f *fakeVideoTool) RenderClip(
	_ context.Context,
	_ string,
	start time.Duration,
	_ time.Duration,
	outMP4 string,
	burnASS string,
) error {
	f.renderBurnASS = append(f.renderBurnASS, burnASS)
	f.renderStarts = append(f.renderStarts, start)
	f.renderOuts = append(f.renderOuts, outMP4)
	if err := f.failStarts[start]; err != nil {
		return err
	}
	return nil
}

func (f *fakeVideoTool) MediaDuration(_ context.Context, _ string) (time.Duration, error) {
	return 0, nil
}

type fakeASR struct {
	tr  types.Transcript
	err error
}

func (f fakeASR) Transcribe(_ context.Context, _, _ string) (types.Transcript, error) {
	return f.tr, f.err
}

type fakeOracle struct {
	out   string
	err   error
	calls *int
}

func (f fakeOracle) Suggest(_ context.Context, _ ports.OracleRequest) (string, error) {
	if f.calls != nil {
		*f.calls++
	}
	return f.out, f.err
}

func testTranscript() types.Transcript {
	return types.Transcript{
		Segments: []types.Segment{
			{Start: 0, End: 5, Text: "intro"},
			{
				Start: 10, End: 40, Text: "the Important bit",
				Words: []types.Word{
					{Start: 10.1, End: 10.4, Word: "the"},
					{Start: 10.5, End: 11.2, Word: "Important"},
					{Start: 11.3, End: 12.0, Word: "bit"},
				},
			},
			{Start: 50, End: 80, Text: "a summary"},
			{Start: 90, End: 125, Text: "final highlight"},
		},
	}
}

func testBounds() highlights.Bounds {
	return highlights.Bounds{MinClip: 25 * time.Second, MaxClip: 45 * time.Second, MaxClips: 10}
}

func newOutDir(t *testing.T, subs bool) string {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(filepath.Join(out, "clips"), 0o755); err != nil {
		t.Fatalf("mkdir clips dir: %v", err)
	}
	if subs {
		if err := os.MkdirAll(filepath.Join(out, "subtitles"), 0o755); err != nil {
			t.Fatalf("mkdir subtitles dir: %v", err)
		}
	}
	return out
}

func keywordInput(t *testing.T, outDir string) Input {
	return Input{
		SourceURL: "https://youtu.be/dQw4w9WgXcQ",
		Mode:      ModeKeywords,
		Keywords:  []string{"important", "summary", "highlight"},
		Bounds:    testBounds(),
		CacheDir:  t.TempDir(),
		OutDir:    outDir,
	}
}

func TestRun_KeywordModeCutsEveryPlannedClip(t *testing.T) {
	t.Parallel()

	video := &fakeVideoTool{}
	uc := New(Deps{Source: fakeSource{}, Video: video, ASR: fakeASR{tr: testTranscript()}})
	outDir := newOutDir(t, false)

	res, err := uc.Run(context.Background(), keywordInput(t, outDir))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Empty() || len(res.Plan) != 3 {
		t.Fatalf("expected 3 planned clips, got %+v", res.Plan)
	}
	if len(res.Manifest.Clips) != 3 || len(res.Manifest.Failed) != 0 {
		t.Fatalf("unexpected manifest: %+v", res.Manifest)
	}
	for i, want := range []string{"clips/clip_1.mp4", "clips/clip_2.mp4", "clips/clip_3.mp4"} {
		if res.Manifest.Clips[i].File != want {
			t.Fatalf("clip %d file = %q, want %q", i, res.Manifest.Clips[i].File, want)
		}
	}
	if video.renderOuts[0] != filepath.Join(outDir, "clips", "clip_1.mp4") {
		t.Fatalf("unexpected render path: %s", video.renderOuts[0])
	}
	if res.Manifest.Mode != "keywords" || res.Manifest.VideoID != "dQw4w9WgXcQ" || res.Manifest.MinClipSec != 25 {
		t.Fatalf("unexpected manifest header: %+v", res.Manifest)
	}
	if res.Manifest.Clips[0].Label != "the Important bit" {
		t.Fatalf("label = %q", res.Manifest.Clips[0].Label)
	}
}

func TestRun_ClipFailureIsIsolated(t *testing.T) {
	t.Parallel()

	video := &fakeVideoTool{failStarts: map[time.Duration]error{
		50 * time.Second: errors.New("encoder exploded"),
	}}
	uc := New(Deps{Source: fakeSource{}, Video: video, ASR: fakeASR{tr: testTranscript()}})

	res, err := uc.Run(context.Background(), keywordInput(t, newOutDir(t, false)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(video.renderStarts) != 3 {
		t.Fatalf("expected all 3 clips attempted, got %d", len(video.renderStarts))
	}
	if len(res.Manifest.Clips) != 2 {
		t.Fatalf("expected 2 successful clips, got %+v", res.Manifest.Clips)
	}
	if res.Manifest.Clips[0].Index != 1 || res.Manifest.Clips[1].Index != 3 {
		t.Fatalf("expected clips 1 and 3, got %+v", res.Manifest.Clips)
	}
	if len(res.Manifest.Failed) != 1 || res.Manifest.Failed[0].Index != 2 {
		t.Fatalf("expected clip 2 recorded as failed, got %+v", res.Manifest.Failed)
	}
	if !strings.Contains(res.Manifest.Failed[0].Error, "encoder exploded") {
		t.Fatalf("unexpected failure text: %q", res.Manifest.Failed[0].Error)
	}
}

func TestRun_FatalErrorsMapToSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		deps Deps
		mode string
		want error
	}{
		{
			name: "download",
			deps: Deps{Source: fakeSource{err: errors.New("404")}, Video: &fakeVideoTool{}, ASR: fakeASR{}},
			mode: ModeKeywords,
			want: ports.ErrSourceUnavailable,
		},
		{
			name: "audio extraction",
			deps: Deps{Source: fakeSource{}, Video: &fakeVideoTool{audioErr: errors.New("no audio stream")}, ASR: fakeASR{}},
			mode: ModeKeywords,
			want: ports.ErrTranscription,
		},
		{
			name: "asr",
			deps: Deps{Source: fakeSource{}, Video: &fakeVideoTool{}, ASR: fakeASR{err: errors.New("model missing")}},
			mode: ModeKeywords,
			want: ports.ErrTranscription,
		},
		{
			name: "oracle",
			deps: Deps{
				Source: fakeSource{}, Video: &fakeVideoTool{}, ASR: fakeASR{tr: testTranscript()},
				Oracle: fakeOracle{err: errors.New("status 401")},
			},
			mode: ModeModel,
			want: ports.ErrOracle,
		},
		{
			name: "no oracle",
			deps: Deps{Source: fakeSource{}, Video: &fakeVideoTool{}, ASR: fakeASR{tr: testTranscript()}},
			mode: ModeModel,
			want: ports.ErrOracle,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := keywordInput(t, newOutDir(t, false))
			in.Mode = tc.mode
			_, err := New(tc.deps).Run(context.Background(), in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRun_ModelModeUsesOracleOutput(t *testing.T) {
	t.Parallel()

	calls := 0
	video := &fakeVideoTool{}
	uc := New(Deps{
		Source: fakeSource{},
		Video:  video,
		ASR:    fakeASR{tr: testTranscript()},
		Oracle: fakeOracle{calls: &calls, out: "1. 01:05 - 01:40: Key idea\n2. 02:00 - 02:10: too short\n3. 00:30 - 01:00: Opening"},
	})
	in := keywordInput(t, newOutDir(t, false))
	in.Mode = ModeModel

	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one oracle call, got %d", calls)
	}
	if len(res.Plan) != 2 {
		t.Fatalf("expected 2 planned clips, got %+v", res.Plan)
	}
	if res.Plan[0].Start != 65*time.Second || res.Plan[1].Label != "Opening" {
		t.Fatalf("expected oracle order preserved, got %+v", res.Plan)
	}
	if res.Manifest.Mode != "model" {
		t.Fatalf("mode = %q", res.Manifest.Mode)
	}
}

func TestRun_ModelModeSkipsOracleForEmptyTranscript(t *testing.T) {
	t.Parallel()

	calls := 0
	uc := New(Deps{
		Source: fakeSource{},
		Video:  &fakeVideoTool{},
		ASR:    fakeASR{},
		Oracle: fakeOracle{calls: &calls, out: "00:00 - 00:30"},
	})
	in := keywordInput(t, newOutDir(t, false))
	in.Mode = ModeModel

	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls != 0 || !res.Empty() {
		t.Fatalf("expected empty result without oracle call, calls=%d plan=%+v", calls, res.Plan)
	}
}

func TestRun_EmptyPlanIsNotAnError(t *testing.T) {
	t.Parallel()

	video := &fakeVideoTool{}
	uc := New(Deps{Source: fakeSource{}, Video: video, ASR: fakeASR{tr: testTranscript()}})
	in := keywordInput(t, newOutDir(t, false))
	in.Keywords = []string{"nothing-matches"}

	res, err := uc.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Empty() || len(video.renderStarts) != 0 {
		t.Fatalf("expected empty result, got plan=%+v renders=%d", res.Plan, len(video.renderStarts))
	}
	if res.Manifest.Clips == nil {
		t.Fatalf("expected non-nil clips slice for JSON output")
	}
}

func TestRun_UnknownMode(t *testing.T) {
	t.Parallel()

	in := keywordInput(t, newOutDir(t, false))
	in.Mode = "vibes"
	if _, err := New(Deps{}).Run(context.Background(), in); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestRun_BurnSubtitlesToggle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		burnSubtitles bool
	}{
		{name: "disabled", burnSubtitles: false},
		{name: "enabled", burnSubtitles: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			outDir := newOutDir(t, tc.burnSubtitles)
			video := &fakeVideoTool{}
			uc := New(Deps{Source: fakeSource{}, Video: video, ASR: fakeASR{tr: testTranscript()}})
			in := keywordInput(t, outDir)
			in.Bounds.MaxClips = 1
			in.BurnSubtitles = tc.burnSubtitles

			res, err := uc.Run(context.Background(), in)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(video.renderBurnASS) != 1 || len(res.Manifest.Clips) != 1 {
				t.Fatalf("expected exactly one rendered clip, got %d", len(video.renderBurnASS))
			}

			subtitlesPath := filepath.Join(outDir, "subtitles", "clip_1.ass")
			manifestSubtitles := res.Manifest.Clips[0].Subtitles
			if !tc.burnSubtitles {
				if video.renderBurnASS[0] != "" || manifestSubtitles != "" {
					t.Fatalf("expected no subtitles, got burn=%q manifest=%q", video.renderBurnASS[0], manifestSubtitles)
				}
				if _, err := os.Stat(subtitlesPath); !os.IsNotExist(err) {
					t.Fatalf("expected no subtitle file, stat err=%v", err)
				}
				return
			}

			if video.renderBurnASS[0] != subtitlesPath {
				t.Fatalf("unexpected burnASS path: %s", video.renderBurnASS[0])
			}
			if manifestSubtitles != "subtitles/clip_1.ass" {
				t.Fatalf("unexpected manifest subtitles path: %q", manifestSubtitles)
			}
			b, err := os.ReadFile(subtitlesPath)
			if err != nil {
				t.Fatalf("read subtitles: %v", err)
			}
			if !strings.Contains(string(b), "{\\k") {
				t.Fatalf("expected karaoke tags in generated subtitles")
			}
		})
	}
}

func TestRun_CancelledContextStopsClipLoop(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	video := &cancellingVideoTool{cancel: cancel}
	uc := New(Deps{Source: fakeSource{}, Video: video, ASR: fakeASR{tr: testTranscript()}})

	_, err := uc.Run(ctx, keywordInput(t, newOutDir(t, false)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if video.renders != 1 {
		t.Fatalf("expected loop to stop after first clip, got %d renders", video.renders)
	}
}

type cancellingVideoTool struct {
	fakeVideoTool
	cancel  context.CancelFunc
	renders int
}

func (c *cancellingVideoTool) RenderClip(ctx context.Context, _ string, _, _ time.Duration, _ string, _ string) error {
	c.renders++
	c.cancel()
	return ctx.Err()
}
