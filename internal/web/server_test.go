package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Vishalytig/shortsbot/internal/config"
	"github.com/Vishalytig/shortsbot/internal/pipeline"
	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/types"
	"github.com/Vishalytig/shortsbot/internal/usecase"
)

type fakeRunner struct {
	t     *testing.T
	dir   string
	plan  types.ClipPlan
	err   error
	calls []pipeline.Config
}

func (f *fakeRunner) run(_ context.Context, cfg pipeline.Config) (pipeline.Report, error) {
	f.calls = append(f.calls, cfg)
	if f.err != nil {
		return pipeline.Report{}, f.err
	}
	runDir := filepath.Join(f.dir, cfg.RunName)
	if err := os.MkdirAll(filepath.Join(runDir, "clips"), 0o755); err != nil {
		f.t.Fatalf("mkdir: %v", err)
	}
	m := types.Manifest{
		Source:     cfg.SourceURL,
		Title:      "Conference Talk",
		Mode:       cfg.Mode,
		MinClipSec: cfg.Bounds.MinClip.Seconds(),
		MaxClipSec: cfg.Bounds.MaxClip.Seconds(),
		Clips:      []types.ManifestClip{},
	}
	for i, c := range f.plan {
		name := fmt.Sprintf("clip_%d.mp4", i+1)
		if err := os.WriteFile(filepath.Join(runDir, "clips", name), []byte("mp4-bytes"), 0o644); err != nil {
			f.t.Fatalf("write clip: %v", err)
		}
		m.Clips = append(m.Clips, types.ManifestClip{
			Index: i + 1, StartSec: c.Start.Seconds(), EndSec: c.End.Seconds(), Label: c.Label, File: "clips/" + name,
		})
	}
	return pipeline.Report{RunDir: runDir, Result: usecase.Result{Plan: f.plan, Manifest: m}}, nil
}

func newTestServer(t *testing.T, cfg config.Config, runner *fakeRunner) (*Server, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger, runner.run)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, s.Handler()
}

func postForm(h http.Handler, vals url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func samplePlan() types.ClipPlan {
	return types.ClipPlan{
		{Start: 10 * time.Second, End: 40 * time.Second, Label: "the important bit"},
		{Start: 65 * time.Second, End: 100 * time.Second, Label: "a summary"},
	}
}

func TestIndex_RendersDefaults(t *testing.T) {
	_, h := newTestServer(t, config.Default(), &fakeRunner{t: t})
	rec := get(h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`name="url"`, `value="25"`, `value="45"`, `value="important,summary,highlight"`, `<option value="tiny" selected>`, "Generate Shorts"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in form, got:\n%s", want, body)
		}
	}
}

func TestCreateRun_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		vals url.Values
		want string
	}{
		{name: "missing url", vals: url.Values{}, want: "Please enter a YouTube URL."},
		{name: "not youtube", vals: url.Values{"url": {"https://vimeo.com/1"}}, want: "does not look like a YouTube video URL"},
		{name: "bad number", vals: url.Values{"url": {"dQw4w9WgXcQ"}, "min_len": {"ten"}}, want: "Minimum length must be a whole number."},
		{name: "inverted bounds", vals: url.Values{"url": {"dQw4w9WgXcQ"}, "min_len": {"50"}, "max_len": {"40"}}, want: "max_clip_sec"},
		{name: "model without key", vals: url.Values{"url": {"dQw4w9WgXcQ"}, "mode": {"model"}}, want: "OPENAI_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{t: t}
			_, h := newTestServer(t, config.Default(), runner)
			rec := postForm(h, tt.vals)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Fatalf("expected %q in body, got:\n%s", tt.want, rec.Body.String())
			}
			if len(runner.calls) != 0 {
				t.Fatalf("runner must not be called for invalid input")
			}
		})
	}
}

func TestCreateRun_SuccessFlow(t *testing.T) {
	runner := &fakeRunner{t: t, dir: t.TempDir(), plan: samplePlan()}
	_, h := newTestServer(t, config.Default(), runner)

	rec := postForm(h, url.Values{
		"url":       {"https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		"mode":      {"keywords"},
		"keywords":  {"Important, Summary"},
		"min_len":   {"20"},
		"max_len":   {"60"},
		"max_count": {"3"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body:\n%s", rec.Code, rec.Body.String())
	}
	loc := rec.Header().Get("Location")
	id := strings.TrimPrefix(loc, "/runs/")
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid run id in %q: %v", loc, err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.calls))
	}
	got := runner.calls[0]
	if got.RunName != id || got.Mode != "keywords" || got.Bounds.MinClip != 20*time.Second || got.Bounds.MaxClips != 3 {
		t.Fatalf("unexpected run config: %+v", got)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "important" {
		t.Fatalf("keywords = %v", got.Keywords)
	}

	page := get(h, loc)
	if page.Code != http.StatusOK {
		t.Fatalf("result status = %d", page.Code)
	}
	body := page.Body.String()
	for _, want := range []string{"Conference Talk", "the important bit", "0:10 to 0:40", "1:05 to 1:40", `<video controls`, loc + "/clips/clip_2.mp4?download=1"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in result page, got:\n%s", want, body)
		}
	}
	if strings.Contains(body, "No highlights found") {
		t.Fatalf("unexpected empty notice")
	}

	clip := get(h, loc+"/clips/clip_1.mp4")
	if clip.Code != http.StatusOK || clip.Body.String() != "mp4-bytes" {
		t.Fatalf("clip status = %d body = %q", clip.Code, clip.Body.String())
	}
	dl := get(h, loc+"/clips/clip_1.mp4?download=1")
	if cd := dl.Header().Get("Content-Disposition"); !strings.Contains(cd, `attachment; filename="clip_1.mp4"`) {
		t.Fatalf("Content-Disposition = %q", cd)
	}
}

func TestCreateRun_EmptyPlanShowsNotice(t *testing.T) {
	runner := &fakeRunner{t: t, dir: t.TempDir()}
	_, h := newTestServer(t, config.Default(), runner)

	rec := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	page := get(h, rec.Header().Get("Location"))
	if !strings.Contains(page.Body.String(), "No highlights found in the 25–45 sec range.") {
		t.Fatalf("expected empty notice, got:\n%s", page.Body.String())
	}
}

func TestCreateRun_FatalErrorBanner(t *testing.T) {
	runner := &fakeRunner{t: t, err: fmt.Errorf("%w: yt-dlp: Video unavailable", ports.ErrSourceUnavailable)}
	_, h := newTestServer(t, config.Default(), runner)

	rec := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if strings.Count(body, `class="error"`) != 1 || !strings.Contains(body, "Could not download the video") {
		t.Fatalf("expected a single error banner, got:\n%s", body)
	}
	if !strings.Contains(body, `value="dQw4w9WgXcQ"`) {
		t.Fatalf("expected form to keep the submitted URL")
	}
}

func TestCreateRun_BusyReturnsConflict(t *testing.T) {
	runner := &fakeRunner{t: t, dir: t.TempDir()}
	s, h := newTestServer(t, config.Default(), runner)

	s.busy.Lock()
	rec := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}})
	s.busy.Unlock()

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already in progress") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
	if len(runner.calls) != 0 {
		t.Fatalf("runner must not be called while busy")
	}

	health := get(h, "/healthz")
	if !strings.Contains(health.Body.String(), `"runner":"idle"`) {
		t.Fatalf("health = %s", health.Body.String())
	}
}

func TestCreateRun_RateLimited(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RequestsPerMinute = 1
	cfg.Server.Burst = 1
	_, h := newTestServer(t, cfg, &fakeRunner{t: t, dir: t.TempDir()})

	if rec := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}}); rec.Code != http.StatusSeeOther {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("missing Retry-After header")
	}
}

func TestRunPages_NotFound(t *testing.T) {
	runner := &fakeRunner{t: t, dir: t.TempDir(), plan: samplePlan()}
	_, h := newTestServer(t, config.Default(), runner)
	loc := postForm(h, url.Values{"url": {"dQw4w9WgXcQ"}}).Header().Get("Location")

	for _, path := range []string{
		"/runs/" + uuid.NewString(),
		"/runs/" + uuid.NewString() + "/clips/clip_1.mp4",
		loc + "/clips/manifest.json",
		loc + "/clips/clip_1.mov",
	} {
		if rec := get(h, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestLoggingMiddleware_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s, err := New(config.Default(), logger, (&fakeRunner{t: t}).run)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	get(s.Handler(), "/runs/missing")
	out := buf.String()
	if !strings.Contains(out, `"status":404`) || !strings.Contains(out, `"msg":"request error"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestStatusForRunError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"source", fmt.Errorf("%w: yt-dlp: exit status 1", ports.ErrSourceUnavailable), http.StatusBadGateway},
		{"oracle", fmt.Errorf("%w: chat completion: status 500", ports.ErrOracle), http.StatusBadGateway},
		{"oracle cancelled", fmt.Errorf("%w: %w", ports.ErrOracle, fmt.Errorf("chat completion: %w", context.Canceled)), http.StatusServiceUnavailable},
		{"transcription cancelled", fmt.Errorf("%w: %w", ports.ErrTranscription, context.Canceled), http.StatusServiceUnavailable},
		{"other", fmt.Errorf("write manifest: disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForRunError(tt.err); got != tt.want {
				t.Fatalf("statusForRunError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestClock(t *testing.T) {
	cases := map[float64]string{0: "0:00", 9.9: "0:09", 65: "1:05", 3725: "62:05"}
	for in, want := range cases {
		if got := clock(in); got != want {
			t.Errorf("clock(%v) = %q, want %q", in, got, want)
		}
	}
}
