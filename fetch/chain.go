package fetch

import (
	"context"
	"errors"
	"fmt"

	"clubfeed/metrics"

	log "github.com/sirupsen/logrus"
)

// ErrExhausted wraps the errors of every strategy when none succeeded.
var ErrExhausted = errors.New("all fetch strategies failed")

// Strategy is one named way of producing a T.
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// FirstSuccess runs strategies in order and returns the first result that
// comes back without error. A cancelled context stops the chain.
func FirstSuccess[T any](ctx context.Context, strategies ...Strategy[T]) (T, error) {
	var zero T
	var errs []error

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		value, err := s.Run(ctx)
		if err == nil {
			metrics.UpstreamRequests.WithLabelValues(s.Name, metrics.OutcomeOK).Inc()
			return value, nil
		}

		metrics.UpstreamRequests.WithLabelValues(s.Name, metrics.OutcomeError).Inc()
		log.WithFields(log.Fields{
			"strategy": s.Name,
			"error":    err,
		}).Warn("Fetch strategy failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	if len(errs) == 0 {
		return zero, ErrExhausted
	}
	return zero, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
