package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Vishalytig/shortsbot/internal/config"
	"github.com/Vishalytig/shortsbot/internal/logging"
	"github.com/Vishalytig/shortsbot/internal/pipeline"
	"github.com/Vishalytig/shortsbot/internal/ports"
	"github.com/Vishalytig/shortsbot/internal/types"
)

const (
	serverReadHeaderTimeout = 10 * time.Second
	serverIdleTimeout       = 60 * time.Second
	shutdownTimeout         = 30 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var clipFileRE = regexp.MustCompile(`^clip_[0-9]+\.mp4$`)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context, cfg pipeline.Config) (pipeline.Report, error)

type runRecord struct {
	report pipeline.Report
}

// Server is the single-user web front end. It accepts one run at a time.
type Server struct {
	cfg     config.Config
	logger  *slog.Logger
	run     RunFunc
	limiter *ipRateLimiter
	tmpl    *template.Template

	busy sync.Mutex

	mu   sync.RWMutex
	runs map[string]runRecord
}

// New builds a server around cfg. run defaults to pipeline.Run.
func New(cfg config.Config, logger *slog.Logger, run RunFunc) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if run == nil {
		run = pipeline.Run
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{"clock": clock}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Server{
		cfg:     cfg,
		logger:  logger,
		run:     run,
		limiter: newIPRateLimiter(cfg.Server.RequestsPerMinute, cfg.Server.Burst),
		tmpl:    tmpl,
		runs:    make(map[string]runRecord),
	}, nil
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/runs", s.rateLimit(s.handleCreateRun)).Methods(http.MethodPost)
	r.HandleFunc("/runs/{id}", s.handleShowRun).Methods(http.MethodGet)
	r.HandleFunc("/runs/{id}/clips/{name}", s.handleClip).Methods(http.MethodGet)
	return s.loggingMiddleware(http.MaxBytesHandler(r, s.cfg.Server.MaxRequestBodySize))
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: serverReadHeaderTimeout,
		IdleTimeout:       serverIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		ticker := time.NewTicker(limiterIdleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					s.logger.Error("server forced to shutdown", slog.String("error", err.Error()))
				}
				return
			case <-ticker.C:
				s.limiter.prune(limiterIdleTTL)
			}
		}
	}()

	s.logger.Info("server started", slog.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

type formValues struct {
	URL          string
	Mode         string
	Keywords     string
	WhisperModel string
	MinLen       string
	MaxLen       string
	MaxCount     string
}

func (s *Server) defaultForm() formValues {
	sel := s.cfg.Selection
	return formValues{
		Mode:         sel.Mode,
		Keywords:     sel.Keywords,
		WhisperModel: s.cfg.Engines.WhisperModel,
		MinLen:       strconv.Itoa(sel.MinClipSec),
		MaxLen:       strconv.Itoa(sel.MaxClipSec),
		MaxCount:     strconv.Itoa(sel.MaxClips),
	}
}

func formFromRequest(r *http.Request) formValues {
	return formValues{
		URL:          strings.TrimSpace(r.PostFormValue("url")),
		Mode:         strings.TrimSpace(r.PostFormValue("mode")),
		Keywords:     r.PostFormValue("keywords"),
		WhisperModel: strings.TrimSpace(r.PostFormValue("whisper_model")),
		MinLen:       strings.TrimSpace(r.PostFormValue("min_len")),
		MaxLen:       strings.TrimSpace(r.PostFormValue("max_len")),
		MaxCount:     strings.TrimSpace(r.PostFormValue("max_count")),
	}
}

type indexView struct {
	Form          formValues
	Error         string
	WhisperModels []string
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, form formValues, errMsg string) {
	s.render(w, status, "index.html", indexView{Form: form, Error: errMsg, WhisperModels: config.WhisperModels})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render template", slog.String("template", name), slog.String("error", err.Error()))
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.renderIndex(w, http.StatusOK, s.defaultForm(), "")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	status := "idle"
	if !s.busy.TryLock() {
		status = "busy"
	} else {
		s.busy.Unlock()
	}
	fmt.Fprintf(w, `{"status":"ok","runner":%q}`, status)
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderIndex(w, http.StatusBadRequest, s.defaultForm(), "Could not read the form.")
		return
	}
	form := formFromRequest(r)
	cfg, problem := s.runConfig(form)
	if problem != "" {
		s.renderIndex(w, http.StatusBadRequest, form, problem)
		return
	}

	if !s.busy.TryLock() {
		s.renderIndex(w, http.StatusConflict, form, "A run is already in progress. Try again when it finishes.")
		return
	}
	defer s.busy.Unlock()

	id := uuid.NewString()
	cfg.RunName = id
	runLogger := s.logger.With(slog.String("run_id", id))
	cfg.Logf = logging.Logf(runLogger)

	runLogger.Info("run started", slog.String("url", cfg.SourceURL), slog.String("mode", cfg.Mode))
	rep, err := s.run(r.Context(), cfg)
	if err != nil {
		runLogger.Error("run failed", slog.String("error", err.Error()))
		s.renderIndex(w, statusForRunError(err), form, userMessage(err))
		return
	}
	runLogger.Info("run finished",
		slog.Int("clips", len(rep.Result.Manifest.Clips)),
		slog.Int("failed", len(rep.Result.Manifest.Failed)))

	s.mu.Lock()
	s.runs[id] = runRecord{report: rep}
	s.mu.Unlock()

	http.Redirect(w, r, "/runs/"+id, http.StatusSeeOther)
}

// runConfig applies form overrides to a copy of the server config. A non-empty
// string describes why the form was rejected.
func (s *Server) runConfig(form formValues) (pipeline.Config, string) {
	if form.URL == "" {
		return pipeline.Config{}, "Please enter a YouTube URL."
	}
	c := s.cfg
	if form.Mode != "" {
		c.Selection.Mode = strings.ToLower(form.Mode)
	}
	if strings.TrimSpace(form.Keywords) != "" {
		c.Selection.Keywords = form.Keywords
	}
	if form.WhisperModel != "" {
		c.Engines.WhisperModel = strings.ToLower(form.WhisperModel)
	}
	for _, f := range []struct {
		raw, name string
		dst       *int
	}{
		{form.MinLen, "Minimum length", &c.Selection.MinClipSec},
		{form.MaxLen, "Maximum length", &c.Selection.MaxClipSec},
		{form.MaxCount, "Number of clips", &c.Selection.MaxClips},
	} {
		if f.raw == "" {
			continue
		}
		n, err := strconv.Atoi(f.raw)
		if err != nil {
			return pipeline.Config{}, f.name + " must be a whole number."
		}
		*f.dst = n
	}
	if err := c.Validate(); err != nil {
		return pipeline.Config{}, err.Error()
	}
	pc := pipeline.FromConfig(&c, form.URL)
	if err := pc.Validate(); err != nil {
		if errors.Is(err, ports.ErrSourceUnavailable) {
			return pipeline.Config{}, "That does not look like a YouTube video URL."
		}
		return pipeline.Config{}, err.Error()
	}
	return pc, ""
}

func statusForRunError(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ports.ErrSourceUnavailable),
		errors.Is(err, ports.ErrTranscription),
		errors.Is(err, ports.ErrOracle):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ports.ErrSourceUnavailable):
		return "Could not download the video: " + err.Error()
	case errors.Is(err, ports.ErrTranscription):
		return "Could not transcribe the video: " + err.Error()
	case errors.Is(err, ports.ErrOracle):
		return "The highlight model did not answer: " + err.Error()
	default:
		return "Run failed: " + err.Error()
	}
}

type clipView struct {
	Index    int
	Label    string
	StartSec float64
	EndSec   float64
	URL      string
}

type resultView struct {
	RunID  string
	Title  string
	Source string
	Mode   string
	MinSec int
	MaxSec int
	Clips  []clipView
	Failed []types.ClipFailure
	Empty  bool
}

func (s *Server) lookup(id string) (runRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	return rec, ok
}

func (s *Server) handleShowRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, ok := s.lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	m := rec.report.Result.Manifest
	view := resultView{
		RunID:  id,
		Title:  m.Title,
		Source: m.Source,
		Mode:   m.Mode,
		MinSec: int(m.MinClipSec),
		MaxSec: int(m.MaxClipSec),
		Failed: m.Failed,
		Empty:  rec.report.Result.Empty(),
	}
	for _, c := range m.Clips {
		view.Clips = append(view.Clips, clipView{
			Index:    c.Index,
			Label:    c.Label,
			StartSec: c.StartSec,
			EndSec:   c.EndSec,
			URL:      "/runs/" + id + "/clips/" + filepath.Base(c.File),
		})
	}
	s.render(w, http.StatusOK, "result.html", view)
}

func (s *Server) handleClip(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	rec, ok := s.lookup(vars["id"])
	if !ok || !clipFileRE.MatchString(name) {
		http.NotFound(w, r)
		return
	}
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	http.ServeFile(w, r, filepath.Join(rec.report.RunDir, "clips", name))
}

// clock formats seconds as M:SS for display.
func clock(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
