package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/analyzer"
	"github.com/modalyze/modalyze/internal/auth"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/llm"
	"github.com/modalyze/modalyze/internal/logging"
	"github.com/modalyze/modalyze/internal/output"
	"github.com/modalyze/modalyze/internal/sink"
	"github.com/modalyze/modalyze/internal/watcher"
)

// DoWatch watches opts.Path for new media files and analyzes each one as it
// settles. Results are appended to the output file when one is set, printed
// to stdout otherwise, and delivered to any configured sinks. Runs until
// interrupted.
func DoWatch(cfg *config.Config, opts *AnalyzeOptions) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	sinks := sink.FromConfig(ctx, cfg)
	defer sink.CloseAll(sinks)

	handler := func(ctx context.Context, path string) {
		runID := logging.GenerateRunID()
		runCtx := logging.WithRunID(ctx, runID)

		req := analyzer.Request{
			MediaType:   opts.MediaType,
			Model:       model,
			Files:       []string{path},
			Mode:        opts.Mode,
			Prompt:      opts.Prompt,
			WordCount:   opts.WordCount,
			Concurrency: 1,
		}
		results, errRun := an.Run(runCtx, req, nil)
		if errRun != nil {
			log.Errorf("analysis of %s failed: %v", filepath.Base(path), errRun)
			return
		}

		formatted, errFormat := output.Format(opts.MediaType, results, opts.Format, opts.Verbose)
		if errFormat != nil {
			log.Errorf("failed to format results for %s: %v", filepath.Base(path), errFormat)
			return
		}

		if opts.OutputFile != "" {
			if errAppend := appendToFile(formatted, opts.OutputFile); errAppend != nil {
				log.Errorf("failed to append results: %v", errAppend)
			} else {
				log.Infof("results appended to %s", opts.OutputFile)
			}
		} else {
			fmt.Println(formatted)
		}

		sink.DeliverAll(runCtx, sinks, sink.Run{
			ID:        runID,
			MediaType: opts.MediaType,
			Model:     model,
			Format:    opts.Format,
			Formatted: formatted,
			Results:   results,
		})
	}

	w, err := watcher.New(opts.Path, opts.MediaType, handler)
	if err != nil {
		log.Errorf("failed to set up watch mode: %v", err)
		os.Exit(1)
	}
	if err = w.Start(ctx); err != nil {
		log.Errorf("failed to start watch mode: %v", err)
		os.Exit(1)
	}
	defer func() {
		if errStop := w.Stop(); errStop != nil {
			log.Debugf("watcher stop: %v", errStop)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down watch mode")
}

// appendToFile adds one rendered run to the end of path, creating it and its
// parent directory on first use. Watch mode accumulates runs in a single
// file rather than overwriting it.
func appendToFile(content, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer func() { _ = f.Close() }()
	if _, err = f.WriteString(content + "\n"); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}
