package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	log "github.com/sirupsen/logrus"
)

const (
	defaultBarWidth = 40
	minBarWidth     = 10
	maxBarWidth     = 60

	// Room for the label, counters, and elapsed time around the bar.
	barChromeWidth = 40

	logBufferSize = 256
)

// Reporter receives batch progress updates. Progress matches the batch
// runner's callback signature so it can be passed straight through, and
// Done is called once after the batch finishes.
type Reporter interface {
	Progress(completed, total int)
	Done(succeeded, failed int)
}

// NewReporter picks the richest display the terminal supports: a live
// progress bar when stderr is a terminal, plain log lines when it is not
// or when disabled.
func NewReporter(label string, disabled bool) Reporter {
	if disabled || !isTerminal(os.Stderr) {
		return &plainReporter{label: label}
	}
	return &barReporter{label: label, done: make(chan struct{})}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// plainReporter logs progress through the standard logger.
type plainReporter struct {
	label string
}

func (r *plainReporter) Progress(completed, total int) {
	log.Infof("progress: %d/%d %s file(s) analyzed", completed, total, r.label)
}

func (r *plainReporter) Done(succeeded, failed int) {
	if failed > 0 {
		log.Warnf("batch finished with failures: %d succeeded, %d failed", succeeded, failed)
	}
}

// barReporter drives a bubbletea progress bar on stderr. The program starts
// lazily on the first Progress call, so single-file runs and empty batches
// never flash an idle bar.
type barReporter struct {
	label   string
	once    sync.Once
	prog    *tea.Program
	done    chan struct{}
	restore func()
}

func (r *barReporter) Progress(completed, total int) {
	r.once.Do(r.start)
	r.prog.Send(progressMsg{completed: completed, total: total})
}

// Done stops the bar and restores console logging. It is a no-op when the
// bar never started.
func (r *barReporter) Done(succeeded, failed int) {
	if r.prog == nil {
		return
	}
	r.prog.Send(doneMsg{succeeded: succeeded, failed: failed})
	<-r.done
	if r.restore != nil {
		r.restore()
	}
}

func (r *barReporter) start() {
	hook := newLogHook(logBufferSize)
	log.AddHook(hook)

	// Console writes would tear the live bar, so silence them while it runs
	// and let the hook print the lines above the bar instead. File logging
	// keeps its writer untouched.
	prev := log.StandardLogger().Out
	if f, ok := prev.(*os.File); ok && isTerminal(f) {
		log.SetOutput(io.Discard)
		r.restore = func() { log.SetOutput(prev) }
	}

	r.prog = tea.NewProgram(newProgressModel(r.label, hook),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	go func() {
		if _, err := r.prog.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "progress display error: %v\n", err)
		}
		close(r.done)
	}()
}

// progressMsg advances the bar.
type progressMsg struct {
	completed int
	total     int
}

// doneMsg carries the final tallies and quits the display.
type doneMsg struct {
	succeeded int
	failed    int
}

// logLineMsg is one formatted log line to print above the bar.
type logLineMsg string

// progressModel renders a single-line progress bar with a trailing summary
// once the batch completes.
type progressModel struct {
	bar       progress.Model
	hook      *logHook
	label     string
	completed int
	total     int
	start     time.Time
	summary   string
}

func newProgressModel(label string, hook *logHook) progressModel {
	return progressModel{
		bar: progress.New(
			progress.WithGradient(string(colorPrimary), string(colorSecondary)),
			progress.WithWidth(defaultBarWidth),
		),
		hook:  hook,
		label: label,
		start: time.Now(),
	}
}

func (m progressModel) Init() tea.Cmd {
	if m.hook != nil {
		return m.waitForLog
	}
	return nil
}

func (m progressModel) waitForLog() tea.Msg {
	if m.hook == nil {
		return nil
	}
	line, ok := <-m.hook.Chan()
	if !ok {
		return nil
	}
	return logLineMsg(line)
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w := msg.Width - barChromeWidth
		if w > maxBarWidth {
			w = maxBarWidth
		}
		if w < minBarWidth {
			w = minBarWidth
		}
		m.bar.Width = w
		return m, nil

	case progressMsg:
		m.completed = msg.completed
		m.total = msg.total
		return m, nil

	case doneMsg:
		m.summary = renderSummary(msg.succeeded, msg.failed, time.Since(m.start))
		return m, tea.Quit

	case logLineMsg:
		return m, tea.Sequence(tea.Println(string(msg)), m.waitForLog)
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.summary != "" {
		return m.summary + "\n"
	}

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.completed) / float64(m.total)
	}
	return fmt.Sprintf("%s %s %s %s\n",
		progressLabelStyle.Render("Analyzing "+m.label),
		m.bar.ViewAs(pct),
		progressCountStyle.Render(fmt.Sprintf("%d/%d", m.completed, m.total)),
		elapsedStyle.Render(time.Since(m.start).Round(time.Second).String()),
	)
}

func renderSummary(succeeded, failed int, elapsed time.Duration) string {
	parts := []string{successStyle.Render(fmt.Sprintf("✓ %d analyzed", succeeded))}
	if failed > 0 {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("✗ %d failed", failed)))
	}
	parts = append(parts, elapsedStyle.Render("in "+elapsed.Round(time.Second).String()))
	return strings.Join(parts, "  ")
}
