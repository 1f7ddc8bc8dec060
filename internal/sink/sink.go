// Package sink delivers finished analysis runs to optional external
// destinations: a Postgres table and an S3-compatible object store. Sinks
// are best effort; a failing sink is logged and never fails the run.
package sink

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/media"
	"github.com/modalyze/modalyze/internal/output"
)

// Run bundles everything sinks need about one completed analysis run.
type Run struct {
	// ID is the run UUID that also tags the run's log lines.
	ID string

	// MediaType is the pipeline the run analyzed.
	MediaType media.Type

	// Model is the resolved model name.
	Model string

	// Format names the output format the run rendered.
	Format string

	// Formatted is the rendered document in that format.
	Formatted string

	// Results are the individual per-file outcomes.
	Results []output.Result
}

// Sink receives completed analysis runs.
type Sink interface {
	Deliver(ctx context.Context, run Run) error
	Close() error
}

// FromConfig builds every configured sink. Construction failures are logged
// and the sink skipped so a broken destination never blocks analysis.
func FromConfig(ctx context.Context, cfg *config.Config) []Sink {
	var sinks []Sink
	if cfg.PostgresSinkEnabled() {
		s, err := NewPostgresSink(ctx, cfg.PostgresSink)
		if err != nil {
			log.Errorf("postgres sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.ObjectSinkEnabled() {
		s, err := NewObjectSink(ctx, cfg.ObjectSink)
		if err != nil {
			log.Errorf("object sink disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	return sinks
}

// DeliverAll sends the run to every sink, logging failures instead of
// returning them.
func DeliverAll(ctx context.Context, sinks []Sink, run Run) {
	for _, s := range sinks {
		if err := s.Deliver(ctx, run); err != nil {
			log.Errorf("result delivery failed: %v", err)
		}
	}
}

// CloseAll releases every sink's resources.
func CloseAll(sinks []Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Debugf("sink close failed: %v", err)
		}
	}
}
