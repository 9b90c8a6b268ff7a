package kata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the pause between successive requests to the platform.
const DefaultDelay = 2 * time.Second

// Checker decides completion for external users by paging through a
// Backend. It is not safe for concurrent use; runs are sequential.
type Checker struct {
	backend Backend
	delay   time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewChecker returns a Checker that pauses delay between requests.
func NewChecker(backend Backend, delay time.Duration, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{
		backend: backend,
		delay:   delay,
		logger:  logger,
		sleep:   wait,
	}
}

// Check dispatches on q.Kind.
func (c *Checker) Check(ctx context.Context, externalID string, q Query) (bool, error) {
	switch q.Kind {
	case BySlug:
		return c.CheckSlug(ctx, externalID, q.Slug)
	case ByCount:
		return c.CheckCount(ctx, externalID, q.N)
	default:
		return false, fmt.Errorf("unknown query kind: %s", q.Kind)
	}
}

// CheckSlug reports whether the user completed the challenge with the given
// slug. Pages are fetched from 0 until the slug is found or the last
// declared page has been scanned. The pause is taken only before a further
// page, never after the deciding one.
func (c *Checker) CheckSlug(ctx context.Context, externalID, slug string) (bool, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return false, nil
	}

	for page := 0; ; page++ {
		if page > 0 {
			if err := c.sleep(ctx, c.delay); err != nil {
				return false, err
			}
		}

		p, err := c.backend.CompletedPage(ctx, id, page)
		if err != nil {
			return false, err
		}
		if err := p.validate(BySlug); err != nil {
			return false, err
		}

		for _, rec := range p.Data {
			if rec.Slug == slug {
				c.logger.Debug("slug found",
					zap.String("user_id", id),
					zap.String("slug", slug),
					zap.Int("page", page))
				return true, nil
			}
		}

		if page+1 >= *p.TotalPages {
			c.logger.Debug("slug not found",
				zap.String("user_id", id),
				zap.String("slug", slug),
				zap.Int("pages", page+1))
			return false, nil
		}
	}
}

// CheckCount reports whether the user completed at least n challenges,
// judged from the totalItems of the first page.
func (c *Checker) CheckCount(ctx context.Context, externalID string, n int) (bool, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return false, nil
	}

	p, err := c.backend.CompletedPage(ctx, id, 0)
	if err != nil {
		return false, err
	}
	if err := p.validate(ByCount); err != nil {
		return false, err
	}

	c.logger.Debug("completed count",
		zap.String("user_id", id),
		zap.Int("total_items", *p.TotalItems),
		zap.Int("n", n))
	return *p.TotalItems >= n, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
