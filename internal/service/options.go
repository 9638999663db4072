package service

import (
	"fmt"
	"time"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/metrics"
)

type options struct {
	now     func() time.Time
	metrics metrics.Recorder
}

type Option func(*options)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *options) { o.metrics = r }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, metrics: metrics.Noop{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// internal keeps domain errors as they are and wraps anything else as an
// internal error tagged with op.
func internal(op string, err error) error {
	if _, ok := domain.AsError(err); ok {
		return err
	}
	return domain.ErrInternal.Wrap(fmt.Errorf("%s: %w", op, err))
}
