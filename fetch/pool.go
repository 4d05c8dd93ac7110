package fetch

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Collect maps fn over items with at most limit calls in flight. Results come
// back in completion order. Items whose fn fails are dropped. The error is
// only set when ctx ended before every item was attempted.
func Collect[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit < 1 {
		limit = 1
	}

	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make([]R, 0, len(items))
	)
	g.SetLimit(limit)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			result, err := fn(ctx, item)
			if err != nil {
				log.WithFields(log.Fields{
					"item":  item,
					"error": err,
				}).Debug("Dropping item")
				return nil
			}
			mu.Lock()
			out = append(out, result)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return out, ctx.Err()
}
