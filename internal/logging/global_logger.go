// Package logging configures the shared logrus instance used across the CLI.
// It provides the custom line format, optional rotating file output, and the
// run-ID plumbing that tags every log line belonging to one analysis run.
package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/util"
)

var (
	setupOnce sync.Once
	writerMu  sync.Mutex
	logWriter *lumberjack.Logger
)

// LogFormatter renders entries as bracketed single lines carrying the
// timestamp, run ID, level, and source location, for example:
//
//	[2025-12-23 20:14:04] [a1b2c3d4] [info ] [runner.go:84] analyzed photo_001.jpg
type LogFormatter struct{}

// logFieldOrder fixes the display order of the structured fields log lines carry.
var logFieldOrder = []string{"type", "provider", "model", "mode", "file", "count", "duration", "error"}

// Format renders a single log entry in the bracketed line format.
func (m *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buf := entry.Buffer
	if buf == nil {
		buf = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	message := strings.TrimRight(entry.Message, "\r\n")

	if entry.Caller != nil {
		fmt.Fprintf(buf, "[%s] [%s] [%s] [%s:%d] %s%s\n",
			timestamp, runIDTag(entry), levelTag(entry.Level),
			filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldSuffix(entry))
	} else {
		fmt.Fprintf(buf, "[%s] [%s] [%s] %s%s\n",
			timestamp, runIDTag(entry), levelTag(entry.Level), message, fieldSuffix(entry))
	}
	return buf.Bytes(), nil
}

// runIDTag is the run column of a log line, dashes when the entry carries none.
func runIDTag(entry *log.Entry) string {
	if id, ok := entry.Data["run_id"].(string); ok && id != "" {
		return id
	}
	return "--------"
}

// levelTag renders the level name padded to a fixed column width.
func levelTag(level log.Level) string {
	name := level.String()
	if name == "warning" {
		name = "warn"
	}
	return fmt.Sprintf("%-5s", name)
}

// fieldSuffix renders the recognized structured fields in display order.
// Fields outside logFieldOrder are dropped so lines stay scannable.
func fieldSuffix(entry *log.Entry) string {
	var parts []string
	for _, key := range logFieldOrder {
		if v, ok := entry.Data[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// SetupBaseLogger configures the shared logrus instance. Repeat calls
// are no-ops; the formatter and exit handler are installed exactly once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		log.RegisterExitHandler(closeLogOutputs)
	})
}

// isDirWritable probes dir by creating and removing a scratch file.
func isDirWritable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	f, err := os.CreateTemp(dir, ".perm-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}

// ResolveLogDirectory picks where rotated log files go: a local logs/
// directory when writable, otherwise <auth-dir>/logs.
func ResolveLogDirectory(cfg *config.Config) string {
	logDir := "logs"
	if cfg == nil {
		return logDir
	}
	if !isDirWritable(logDir) {
		authDir, err := util.ResolveAuthDir(cfg.AuthDir)
		if err != nil {
			log.Warnf("failed to resolve auth-dir %q for log directory: %v", cfg.AuthDir, err)
		}
		if authDir != "" {
			logDir = filepath.Join(authDir, "logs")
		}
	}
	return logDir
}

// ConfigureLogOutput switches the global log destination between rotating
// files and stderr. Stderr is the fallback so analysis results keep stdout
// to themselves.
func ConfigureLogOutput(cfg *config.Config) error {
	SetupBaseLogger()

	writerMu.Lock()
	defer writerMu.Unlock()

	if cfg == nil || !cfg.LoggingToFile {
		closeWriterLocked()
		log.SetOutput(os.Stderr)
		return nil
	}

	logDir := ResolveLogDirectory(cfg)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("logging: failed to create log directory: %w", err)
	}

	closeWriterLocked()
	logWriter = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "modalyze.log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   false,
	}
	log.SetOutput(logWriter)
	return nil
}

// closeWriterLocked closes the rotating writer if one is open. Callers hold writerMu.
func closeWriterLocked() {
	if logWriter != nil {
		_ = logWriter.Close()
		logWriter = nil
	}
}

func closeLogOutputs() {
	writerMu.Lock()
	defer writerMu.Unlock()
	closeWriterLocked()
}
