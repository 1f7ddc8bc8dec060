// Package analyzer coordinates media discovery, provider calls, and result
// collection for single files and batches.
package analyzer

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/llm"
	"github.com/modalyze/modalyze/internal/media"
	"github.com/modalyze/modalyze/internal/output"
	"github.com/modalyze/modalyze/internal/runner"
)

// Provider is the slice of the LLM client the analyzer needs.
type Provider interface {
	AnalyzeImage(ctx context.Context, model, imagePath, prompt string, wordCount int) (string, error)
	AnalyzeAudio(ctx context.Context, model, audioPath, mode, prompt string, wordCount int) (string, error)
	AnalyzeVideo(ctx context.Context, model, videoPath, mode, prompt string, wordCount int) (string, error)
}

// Request describes one analysis run over a path or an explicit file list.
// Zero values fall back to the configured defaults.
type Request struct {
	MediaType   media.Type
	Model       string
	Path        string
	Files       []string
	Mode        string
	Prompt      string
	WordCount   int
	Recursive   bool
	Concurrency int
}

// Analyzer runs analysis requests against a provider client.
type Analyzer struct {
	cfg    *config.Config
	client Provider
}

func New(cfg *config.Config, client Provider) *Analyzer {
	return &Analyzer{cfg: cfg, client: client}
}

// Run resolves the request's files and analyzes them. A single file runs
// inline and reports failure through the returned error. Batches isolate
// failures per file, report them inside the results, and call progress
// after each completion.
func (a *Analyzer) Run(ctx context.Context, req Request, progress runner.ProgressFunc) ([]output.Result, error) {
	req, err := a.resolve(req)
	if err != nil {
		return nil, err
	}

	files, err := a.collect(req)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		source := "file list"
		if len(req.Files) == 0 {
			source = fmt.Sprintf("path %s", req.Path)
		}
		return nil, fmt.Errorf("no supported %s files found in %s", req.MediaType, source)
	}

	log.Infof("found %d %s file(s) to analyze", len(files), req.MediaType)

	if len(files) == 1 {
		name := filepath.Base(files[0])
		log.Infof("analyzing %s with %s", name, req.Model)
		res, err := a.analyzeOne(ctx, req, files[0])
		if err != nil {
			return nil, err
		}
		log.Infof("analysis completed for %s", name)
		return []output.Result{res}, nil
	}

	return a.runBatch(ctx, req, files, progress), nil
}

// resolve fills config defaults and rejects invalid mode combinations
// before any file is touched.
func (a *Analyzer) resolve(req Request) (Request, error) {
	if req.Model == "" {
		req.Model = a.cfg.Model
	}
	if req.WordCount <= 0 {
		req.WordCount = a.cfg.WordCount
	}

	switch req.MediaType {
	case media.TypeImage:
		if req.Prompt == "" {
			req.Prompt = a.cfg.Prompt
		}
	case media.TypeAudio:
		switch req.Mode {
		case llm.ModeTranscript:
			// Transcript output is verbatim; any prompt would be ignored.
			req.Prompt = ""
		case llm.ModeDescription:
			if req.Prompt == "" {
				req.Prompt = llm.DefaultAudioPrompt()
			}
		default:
			return req, fmt.Errorf("invalid mode %q: use 'transcript' or 'description'", req.Mode)
		}
	case media.TypeVideo:
		if req.Mode == "" {
			req.Mode = llm.ModeDescription
		}
		if req.Mode != llm.ModeDescription {
			return req, fmt.Errorf("invalid mode %q: video analysis only supports 'description' mode", req.Mode)
		}
	default:
		return req, fmt.Errorf("unsupported media type: %s", req.MediaType)
	}
	return req, nil
}

// collect resolves the request to a sorted list of analyzable files.
func (a *Analyzer) collect(req Request) ([]string, error) {
	if len(req.Files) > 0 {
		return media.ValidateFileList(req.Files, req.MediaType)
	}
	if req.Path == "" {
		return nil, fmt.Errorf("either a path or a file list must be provided")
	}
	return media.FindFiles(req.Path, req.MediaType, req.Recursive)
}

func (a *Analyzer) runBatch(ctx context.Context, req Request, files []string, progress runner.ProgressFunc) []output.Result {
	limit := a.cfg.ClampConcurrency(req.Concurrency)
	log.Infof("starting batch analysis of %d %s files with concurrency %d", len(files), req.MediaType, limit)

	batch := runner.Run(ctx, files, limit, func(ctx context.Context, path string) (output.Result, error) {
		return a.analyzeOne(ctx, req, path)
	}, progress)

	results := make([]output.Result, len(batch))
	succeeded := 0
	for i, item := range batch {
		res := item.Value
		if item.Err != nil {
			if res.Path == "" {
				// The task panicked or never started; rebuild its identity.
				res = a.newResult(req, files[i])
			}
			res.Success = false
			if res.Err == "" {
				res.Err = item.Err.Error()
			}
		}
		if res.Success {
			succeeded++
		}
		results[i] = res
	}

	log.Infof("batch analysis completed, success rate: %d/%d", succeeded, len(results))
	return results
}

// newResult carries the request identity every rendered record needs,
// whether the analysis succeeds or not.
func (a *Analyzer) newResult(req Request, path string) output.Result {
	res := output.Result{
		Path:  path,
		Model: req.Model,
		Mode:  req.Mode,
	}
	switch req.MediaType {
	case media.TypeImage:
		res.Prompt = req.Prompt
		res.WordCount = req.WordCount
	case media.TypeAudio:
		if req.Mode == llm.ModeDescription {
			res.Prompt = req.Prompt
			res.WordCount = req.WordCount
		}
	case media.TypeVideo:
		res.Prompt = req.Prompt
		res.WordCount = req.WordCount
	}
	if req.MediaType != media.TypeImage {
		if info, err := media.Stat(path); err == nil {
			res.Info = info
		}
	}
	return res
}

func (a *Analyzer) analyzeOne(ctx context.Context, req Request, path string) (output.Result, error) {
	res := a.newResult(req, path)

	var text string
	var err error
	switch req.MediaType {
	case media.TypeImage:
		text, err = a.client.AnalyzeImage(ctx, req.Model, path, req.Prompt, req.WordCount)
	case media.TypeAudio:
		text, err = a.client.AnalyzeAudio(ctx, req.Model, path, req.Mode, req.Prompt, req.WordCount)
	case media.TypeVideo:
		text, err = a.client.AnalyzeVideo(ctx, req.Model, path, req.Mode, req.Prompt, req.WordCount)
	default:
		err = fmt.Errorf("unsupported media type: %s", req.MediaType)
	}
	if err != nil {
		res.Err = err.Error()
		return res, err
	}

	switch req.MediaType {
	case media.TypeAudio:
		// Gemini returns one text that serves as transcript and, in
		// description mode, as the analysis.
		res.Transcript = text
		if req.Mode == llm.ModeDescription {
			res.Analysis = text
		}
	default:
		res.Analysis = text
	}
	res.Success = true
	return res, nil
}
