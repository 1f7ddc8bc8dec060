// Package main provides the entry point for the modalyze CLI.
// modalyze dispatches image, audio, and video files to multimodal LLM
// providers and renders the returned analyses as JSON, markdown, or text.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/buildinfo"
	"github.com/modalyze/modalyze/internal/cmd"
	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/logging"
	"github.com/modalyze/modalyze/internal/media"
	"github.com/modalyze/modalyze/internal/output"
	"github.com/modalyze/modalyze/internal/util"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

// main parses command-line flags, loads configuration, and dispatches to the
// requested verb: an analysis run, watch mode, or one of the auth commands.
func main() {
	// Command-line flags to control the application's behavior.
	var (
		mediaType    string
		model        string
		path         string
		files        string
		recursive    bool
		audioMode    string
		videoMode    string
		wordCount    int
		prompt       string
		outputFormat string
		outputFile   string
		concurrency  int
		noProgress   bool
		watch        bool

		login             bool
		logout            bool
		authStatus        bool
		noBrowser         bool
		oauthCallbackPort int

		configPath string
		logLevel   string
		verbose    bool
		version    bool
	)

	flag.StringVar(&mediaType, "type", "", "Analysis type: image, audio, or video")
	flag.StringVar(&model, "model", "", "Model to use (e.g. gemini/gemini-2.5-flash, gpt-4o-mini)")
	flag.StringVar(&path, "path", "", "Media file or directory path")
	flag.StringVar(&files, "files", "", "Comma-separated list of media files to analyze")
	flag.BoolVar(&recursive, "recursive", false, "Process directories recursively")
	flag.StringVar(&audioMode, "audio-mode", "", "Audio analysis mode: transcript or description")
	flag.StringVar(&videoMode, "video-mode", "", "Video analysis mode: description")
	flag.IntVar(&wordCount, "word-count", 0, "Target description word count")
	flag.StringVar(&prompt, "prompt", "", "Custom analysis prompt")
	flag.StringVar(&outputFormat, "output", output.FormatJSON, "Output format: json, markdown, or text")
	flag.StringVar(&outputFile, "output-file", "", "Save results to a file instead of stdout")
	flag.IntVar(&concurrency, "concurrency", 10, "Concurrent requests for batch processing")
	flag.BoolVar(&noProgress, "no-progress", false, "Disable the batch progress bar")
	flag.BoolVar(&watch, "watch", false, "Watch the path for new media files and analyze them as they arrive")
	flag.BoolVar(&login, "login", false, "Login to Google with OAuth")
	flag.BoolVar(&logout, "logout", false, "Remove stored Google OAuth credentials")
	flag.BoolVar(&authStatus, "auth-status", false, "Show authentication status for all providers")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.IntVar(&oauthCallbackPort, "oauth-callback-port", 0, "Override OAuth callback port (defaults to probing from 8080)")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configuration file path")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, or error")
	flag.BoolVar(&verbose, "verbose", false, "Show detailed output including model, prompt, and metadata")
	flag.BoolVar(&version, "version", false, "Print version information and exit")

	flag.CommandLine.Usage = func() {
		out := flag.CommandLine.Output()
		_, _ = fmt.Fprintf(out, "Usage of %s\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			s := fmt.Sprintf("  -%s", f.Name)
			name, unquoteUsage := flag.UnquoteUsage(f)
			if name != "" {
				s += " " + name
			}
			if len(s) <= 4 {
				s += "	"
			} else {
				s += "\n    "
			}
			if unquoteUsage != "" {
				s += unquoteUsage
			}
			if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
				s += fmt.Sprintf(" (default %s)", f.DefValue)
			}
			_, _ = fmt.Fprint(out, s+"\n")
		})
	}

	// Parse the command-line flags.
	flag.Parse()

	if version {
		fmt.Printf("modalyze %s (commit %s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		os.Exit(1)
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	// Determine and load the configuration file. An explicitly named file
	// must exist; the default config.yaml is optional.
	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigOptional(filepath.Join(wd, "config.yaml"), true)
	}
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	// Command-line flags override file and environment settings.
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if verbose {
		cfg.Verbose = true
	}

	if err = logging.ConfigureLogOutput(cfg); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		os.Exit(1)
	}
	util.SetLogLevel(cfg)

	log.Debugf("modalyze %s (commit %s, built %s)", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	if resolvedAuthDir, errResolve := util.ResolveAuthDir(cfg.AuthDir); errResolve != nil {
		log.Errorf("failed to resolve auth directory: %v", errResolve)
		os.Exit(1)
	} else {
		cfg.AuthDir = resolvedAuthDir
	}

	if err = cfg.Validate(); err != nil {
		log.Error(err)
		os.Exit(1)
	}

	// Handle the auth verbs before any analysis flags are required.
	if login {
		cmd.DoLogin(cfg, &cmd.LoginOptions{
			NoBrowser:    noBrowser,
			CallbackPort: oauthCallbackPort,
		})
		return
	}
	if logout {
		cmd.DoLogout(cfg)
		return
	}
	if authStatus {
		cmd.DoAuthStatus(cfg)
		return
	}

	// Analysis and watch mode. Validate the flag combinations first so
	// mistakes surface before any provider is contacted.
	if mediaType == "" {
		usageExit("missing required flag -type (image, audio, or video)")
	}
	mt, err := media.ParseType(mediaType)
	if err != nil {
		usageExit("%v", err)
	}
	if path != "" && files != "" {
		usageExit("cannot specify both -path and -files")
	}
	if path == "" && files == "" {
		usageExit("must specify either -path or -files")
	}
	switch mt {
	case media.TypeImage:
		if audioMode != "" {
			usageExit("-audio-mode should not be used when -type is 'image'")
		}
		if videoMode != "" {
			usageExit("-video-mode should not be used when -type is 'image'")
		}
	case media.TypeAudio:
		if videoMode != "" {
			usageExit("-video-mode should not be used when -type is 'audio'")
		}
		if audioMode == "" {
			usageExit("-audio-mode is required when -type is 'audio'")
		}
	case media.TypeVideo:
		if audioMode != "" {
			usageExit("-audio-mode should not be used when -type is 'video'")
		}
		if videoMode == "" {
			usageExit("-video-mode is required when -type is 'video'")
		}
	}
	if concurrency > cfg.MaxConcurrency {
		usageExit("concurrency value %d exceeds maximum limit of %d", concurrency, cfg.MaxConcurrency)
	}
	switch outputFormat {
	case output.FormatJSON, output.FormatMarkdown, output.FormatText:
	default:
		usageExit("unsupported output format %q: use json, markdown, or text", outputFormat)
	}
	if watch && files != "" {
		usageExit("-watch watches a directory; use -path, not -files")
	}

	mode := audioMode
	if mt == media.TypeVideo {
		mode = videoMode
	}

	opts := &cmd.AnalyzeOptions{
		MediaType:   mt,
		Model:       model,
		Path:        path,
		Files:       splitFiles(files),
		Mode:        mode,
		Prompt:      prompt,
		WordCount:   wordCount,
		Recursive:   recursive,
		Concurrency: concurrency,
		Format:      outputFormat,
		OutputFile:  outputFile,
		NoProgress:  noProgress,
		Verbose:     cfg.Verbose,
	}

	if watch {
		cmd.DoWatch(cfg, opts)
		return
	}
	cmd.DoAnalyze(cfg, opts)
}

// usageExit prints a flag-usage error to stderr and exits with the
// conventional flag error code.
func usageExit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "modalyze: %s\n", fmt.Sprintf(format, args...))
	fmt.Fprintln(os.Stderr, "Run 'modalyze -h' for usage.")
	os.Exit(2)
}

// splitFiles turns the comma-separated -files value into a cleaned list.
func splitFiles(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var list []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			list = append(list, trimmed)
		}
	}
	return list
}
