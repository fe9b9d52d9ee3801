package httpclient

import (
	"context"
	"time"
)

const DefaultPageSize = 100

type PageFetcher[T any] func(ctx context.Context, offset, limit int) ([]T, error)

type Paginator struct {
	PageSize int
	// Delay is slept between consecutive page requests.
	Delay time.Duration
	Sleep Sleeper
	// BeforePage runs before every page request, typically WaitForQuota.
	BeforePage func(ctx context.Context) error
}

// FetchAll walks offset/limit pages until a page comes back shorter than the
// page size. Any error discards what was already fetched.
func FetchAll[T any](ctx context.Context, p Paginator, fetch PageFetcher[T]) ([]T, error) {
	size := p.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var all []T
	for offset := 0; ; offset += size {
		if offset > 0 && p.Delay > 0 {
			if err := sleep(ctx, p.Delay); err != nil {
				return nil, err
			}
		}
		if p.BeforePage != nil {
			if err := p.BeforePage(ctx); err != nil {
				return nil, err
			}
		}

		page, err := fetch(ctx, offset, size)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < size {
			return all, nil
		}
	}
}
