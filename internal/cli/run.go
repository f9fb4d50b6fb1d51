package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Vishalytig/shortsbot/internal/config"
	"github.com/Vishalytig/shortsbot/internal/domain/highlights"
	"github.com/Vishalytig/shortsbot/internal/logging"
	"github.com/Vishalytig/shortsbot/internal/pipeline"
)

type runFlags struct {
	mode          string
	keywords      string
	minSec        int
	maxSec        int
	clips         int
	whisperModel  string
	asr           string
	downloader    string
	out           string
	burnSubtitles bool
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <youtube-url>",
		Short: "Download a video and cut highlight clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, f, args[0])
		},
	}

	d := config.Default()
	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", d.Selection.Mode, "Selection mode (keywords, model)")
	fl.StringVarP(&f.keywords, "keywords", "k", "", "Comma-separated keywords for keywords mode")
	fl.IntVar(&f.minSec, "min", d.Selection.MinClipSec, "Minimum clip length in seconds")
	fl.IntVar(&f.maxSec, "max", d.Selection.MaxClipSec, "Maximum clip length in seconds")
	fl.IntVar(&f.clips, "clips", d.Selection.MaxClips, "Maximum number of clips")
	fl.StringVar(&f.whisperModel, "whisper-model", d.Engines.WhisperModel, "Whisper model size (tiny, base, small)")
	fl.StringVar(&f.asr, "asr", d.Engines.ASR, "Transcription engine (whispercpp, fasterwhisper, openai)")
	fl.StringVar(&f.downloader, "downloader", d.Engines.Download, "Download engine (ytdlp, native)")
	fl.StringVarP(&f.out, "out", "o", d.Paths.OutDir, "Output directory")
	fl.BoolVar(&f.burnSubtitles, "burn-subtitles", false, "Burn transcript subtitles into each clip")
	return cmd
}

// apply overrides cfg with the flags the user actually set.
func (f *runFlags) apply(fl interface{ Changed(string) bool }, cfg *config.Config) {
	if fl.Changed("mode") {
		cfg.Selection.Mode = strings.ToLower(strings.TrimSpace(f.mode))
	}
	if fl.Changed("keywords") {
		cfg.Selection.Keywords = f.keywords
	}
	if fl.Changed("min") {
		cfg.Selection.MinClipSec = f.minSec
	}
	if fl.Changed("max") {
		cfg.Selection.MaxClipSec = f.maxSec
	}
	if fl.Changed("clips") {
		cfg.Selection.MaxClips = f.clips
	}
	if fl.Changed("whisper-model") {
		cfg.Engines.WhisperModel = strings.ToLower(strings.TrimSpace(f.whisperModel))
	}
	if fl.Changed("asr") {
		cfg.Engines.ASR = strings.ToLower(strings.TrimSpace(f.asr))
	}
	if fl.Changed("downloader") {
		cfg.Engines.Download = strings.ToLower(strings.TrimSpace(f.downloader))
	}
	if fl.Changed("out") {
		cfg.Paths.OutDir = f.out
	}
	if fl.Changed("burn-subtitles") {
		cfg.Render.BurnSubtitles = f.burnSubtitles
	}
}

func run(cmd *cobra.Command, opts *rootOptions, f *runFlags, sourceURL string) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	f.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	pcfg := pipeline.FromConfig(cfg, sourceURL)
	if err := pcfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()
	pcfg.Logf = logging.Logf(logger)

	// Cancelled on SIGINT/SIGTERM only; there is no deadline.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := pipeline.Run(ctx, pcfg)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), rep, pcfg.Bounds)
	return nil
}

func printReport(w io.Writer, rep pipeline.Report, bounds highlights.Bounds) {
	if rep.Result.Empty() {
		fmt.Fprintf(w, "No highlights found in the %d–%d s range.\n",
			int(bounds.MinClip.Seconds()), int(bounds.MaxClip.Seconds()))
		return
	}

	m := rep.Result.Manifest
	if len(m.Clips) > 0 {
		rows := make([][]string, 0, len(m.Clips))
		for _, c := range m.Clips {
			rows = append(rows, []string{
				fmt.Sprintf("%d", c.Index),
				formatClock(c.StartSec),
				formatClock(c.EndSec),
				fmt.Sprintf("%.1fs", c.EndSec-c.StartSec),
				truncateLabel(c.Label, 48),
				c.File,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"#", "Start", "End", "Duration", "Label", "File"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft},
		))
	}
	for _, f := range m.Failed {
		fmt.Fprintf(w, "clip %d failed: %s\n", f.Index, f.Error)
	}
	fmt.Fprintf(w, "%d of %d clip(s) written to %s\n", len(m.Clips), len(rep.Result.Plan), rep.RunDir)
	if rep.ManifestPath != "" {
		fmt.Fprintf(w, "Manifest: %s\n", rep.ManifestPath)
	}
}

func formatClock(sec float64) string {
	total := int(sec)
	if total < 0 {
		total = 0
	}
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func truncateLabel(s string, limit int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= limit {
		return string(r)
	}
	return string(r[:limit-1]) + "…"
}
