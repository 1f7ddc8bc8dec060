// Package cmd implements the CLI verbs: analysis runs, watch mode, and the
// Google OAuth login, logout, and status commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/analyzer"
	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/llm"
	"github.com/modalyze/modalyze/internal/logging"
	"github.com/modalyze/modalyze/internal/media"
	"github.com/modalyze/modalyze/internal/output"
	"github.com/modalyze/modalyze/internal/sink"
	"github.com/modalyze/modalyze/internal/tui"
)

// AnalyzeOptions carries the analysis flags from the command line. Zero
// values fall back to the configured defaults.
type AnalyzeOptions struct {
	MediaType   media.Type
	Model       string
	Path        string
	Files       []string
	Mode        string
	Prompt      string
	WordCount   int
	Recursive   bool
	Concurrency int
	Format      string
	OutputFile  string
	NoProgress  bool
	Verbose     bool
}

// DoAnalyze runs one analysis over a path or an explicit file list, renders
// the results, and delivers them to any configured sinks. It exits non-zero
// when the run as a whole fails; individual file failures inside a batch are
// reported in the rendered output instead.
func DoAnalyze(cfg *config.Config, opts *AnalyzeOptions) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := logging.GenerateRunID()
	ctx = logging.WithRunID(ctx, runID)
	log.Debugf("analysis run %s starting", logging.ShortRunID(runID))

	model := opts.Model
	if model == "" {
		model = cfg.Model
	}

	creds, err := auth.NewProvider(cfg)
	if err != nil {
		log.Errorf("failed to initialize authentication: %v", err)
		os.Exit(1)
	}
	if err = creds.ValidateForModel(ctx, model); err != nil {
		log.Error(err)
		os.Exit(1)
	}

	an := analyzer.New(cfg, llm.New(cfg, creds))
	req := analyzer.Request{
		MediaType:   opts.MediaType,
		Model:       model,
		Path:        opts.Path,
		Files:       opts.Files,
		Mode:        opts.Mode,
		Prompt:      opts.Prompt,
		WordCount:   opts.WordCount,
		Recursive:   opts.Recursive,
		Concurrency: opts.Concurrency,
	}

	reporter := tui.NewReporter(string(opts.MediaType), opts.NoProgress)
	results, err := an.Run(ctx, req, reporter.Progress)
	if err != nil {
		log.Errorf("%s analysis failed: %v", opts.MediaType, err)
		os.Exit(1)
	}

	summary := output.Aggregate(results)
	reporter.Done(summary.Succeeded, summary.Failed)

	formatted, err := output.Format(opts.MediaType, results, opts.Format, opts.Verbose)
	if err != nil {
		log.Errorf("failed to format results: %v", err)
		os.Exit(1)
	}

	if opts.OutputFile != "" {
		if err = output.SaveToFile(formatted, opts.OutputFile); err != nil {
			log.Errorf("failed to save results: %v", err)
			os.Exit(1)
		}
		log.Infof("results saved to %s", opts.OutputFile)
	} else {
		fmt.Println(formatted)
	}

	deliverToSinks(ctx, cfg, sink.Run{
		ID:        runID,
		MediaType: opts.MediaType,
		Model:     model,
		Format:    opts.Format,
		Formatted: formatted,
		Results:   results,
	})
}

// deliverToSinks pushes one finished run to every configured sink and
// releases them. Used by one-shot analysis; watch mode keeps its sinks open
// across runs instead.
func deliverToSinks(ctx context.Context, cfg *config.Config, run sink.Run) {
	sinks := sink.FromConfig(ctx, cfg)
	if len(sinks) == 0 {
		return
	}
	defer sink.CloseAll(sinks)
	sink.DeliverAll(ctx, sinks, run)
}
