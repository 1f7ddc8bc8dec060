package tui

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/logging"
)

// logHook is a logrus hook that mirrors formatted log lines into a channel
// so the progress display can print them above the bar while console output
// is suppressed.
type logHook struct {
	ch        chan string
	formatter log.Formatter
}

func newLogHook(bufSize int) *logHook {
	return &logHook{
		ch:        make(chan string, bufSize),
		formatter: &logging.LogFormatter{},
	}
}

// Levels returns the log levels this hook fires on.
func (h *logHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire formats the entry and enqueues it without blocking. When the buffer
// is full the oldest line is dropped to make room.
func (h *logHook) Fire(entry *log.Entry) error {
	line := fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
	if b, err := h.formatter.Format(entry); err == nil {
		line = strings.TrimRight(string(b), "\r\n")
	}

	select {
	case h.ch <- line:
	default:
		select {
		case <-h.ch:
		default:
		}
		select {
		case h.ch <- line:
		default:
		}
	}
	return nil
}

// Chan returns the channel the progress display reads log lines from.
func (h *logHook) Chan() <-chan string {
	return h.ch
}
