package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultLimit bounds concurrent calls when Map is given a limit below 1.
const DefaultLimit = 8

// Map calls fn for every item, at most limit at a time, and returns the
// results in the order of items. Every item is attempted; the errors of
// the failed ones are joined, each prefixed with its index. Items not yet
// started when ctx is cancelled fail with ctx.Err().
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	if limit < 1 {
		limit = DefaultLimit
	}

	errs := make([]error, len(items))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, item := range items {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = fn(ctx, item)
		}()
	}
	wg.Wait()

	var failed []error
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Errorf("item %d: %w", i, err))
		}
	}
	return results, errors.Join(failed...)
}
