// Package collector reads connector data into the per-source snapshots the
// rules evaluate. Collectors are the only code on the scan path that performs
// I/O; rules stay pure.
//
// Read failures are handled by connector error kind:
//   - not_found, forbidden: the item is skipped and counted in the snapshot
//   - unauthorized, context cancellation: the source is abandoned and a nil
//     snapshot is returned with the error
//   - anything else: the part that failed is left empty, collection continues,
//     and the error is returned alongside the partial snapshot
package collector

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pankaj-dahiya-devops/accountguard/internal/connector"
)

// Options bounds how much each collector reads.
type Options struct {
	// MaxUnread caps the unread messages inspected per scan.
	MaxUnread int
	// PageSize is the file listing page size.
	PageSize int
	// Concurrency bounds per-item detail fetches within one source.
	Concurrency int
}

// DefaultOptions returns the limits used when none are configured.
func DefaultOptions() Options {
	return Options{MaxUnread: 20, PageSize: 100, Concurrency: 4}
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSkip
	outcomeFail
	outcomeAbort
)

func classify(err error) outcome {
	if err == nil {
		return outcomeOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return outcomeAbort
	}
	switch connector.KindOf(err) {
	case connector.KindNotFound, connector.KindForbidden:
		return outcomeSkip
	case connector.KindUnauthorized:
		return outcomeAbort
	}
	return outcomeFail
}

// partial accumulates non-fatal failures for one source.
type partial struct {
	errs []error
}

// note records err and reports whether collection must stop.
func (p *partial) note(err error) (abort bool) {
	switch classify(err) {
	case outcomeAbort:
		return true
	case outcomeFail:
		p.errs = append(p.errs, err)
	}
	return false
}

func (p *partial) err() error {
	return errors.Join(p.errs...)
}

// fetchEach calls fetch for every item with at most limit calls in flight
// and returns the successful results in input order. Skipped items are
// counted. The first fatal error cancels outstanding fetches and is returned
// with nil results; otherwise the first non-fatal error is returned.
func fetchEach[T, R any](ctx context.Context, limit int, items []T, fetch func(context.Context, T) (R, error)) ([]R, int, error) {
	results := make([]R, len(items))
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			results[i], errs[i] = safeFetch(gctx, item, fetch)
			if classify(errs[i]) == outcomeAbort {
				return errs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	var (
		out       []R
		skipped   int
		firstFail error
	)
	for i := range items {
		switch classify(errs[i]) {
		case outcomeOK:
			out = append(out, results[i])
		case outcomeSkip:
			skipped++
		default:
			skipped++
			if firstFail == nil {
				firstFail = errs[i]
			}
		}
	}
	return out, skipped, firstFail
}

// safeFetch turns a panic in fetch into an error for that item.
func safeFetch[T, R any](ctx context.Context, item T, fetch func(context.Context, T) (R, error)) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fetch(ctx, item)
}
