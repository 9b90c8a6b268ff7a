package kata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rw-r-r-0644/kata-audit/report"
	"github.com/rw-r-r-0644/kata-audit/roster"
)

// Audit checks every entry in order and collects the results. An entry whose
// check fails with an API or transport error is reported on diag and left
// out of the result; the run goes on. Cancelling ctx stops the run and
// returns the partial result with the context error.
func (c *Checker) Audit(ctx context.Context, entries []roster.Entry, q Query, diag io.Writer) (*report.Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if diag == nil {
		diag = io.Discard
	}

	result := report.New()
	seen := make(map[string]bool, len(entries))
	requested := false
	var failed int

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if seen[entry.Handle] {
			c.logger.Warn("duplicate handle skipped", zap.String("handle", entry.Handle))
			continue
		}
		seen[entry.Handle] = true

		// Every request after the first waits, including the first page of
		// a new entry.
		if strings.TrimSpace(entry.ExternalID) != "" {
			if requested {
				if err := c.sleep(ctx, c.delay); err != nil {
					return result, err
				}
			}
			requested = true
		}

		done, err := c.Check(ctx, entry.ExternalID, q)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			failed++
			c.reportFailure(diag, entry, err)
			continue
		}

		result.Set(entry.Handle, done)
		c.logger.Info("checked",
			zap.String("handle", entry.Handle),
			zap.String("query", q.Kind.String()),
			zap.Bool("completed", done))
	}

	c.logger.Info("audit finished",
		zap.Int("entries", len(entries)),
		zap.Int("reported", result.Len()),
		zap.Int("failed", failed))
	return result, nil
}

func (c *Checker) reportFailure(diag io.Writer, entry roster.Entry, err error) {
	fmt.Fprintf(diag, "[error] %s: %v\n", entry.Handle, err)

	fields := []zap.Field{
		zap.String("handle", entry.Handle),
		zap.String("user_id", entry.ExternalID),
		zap.Error(err),
	}
	var apiErr *APIError
	var transportErr *TransportError
	switch {
	case errors.As(err, &apiErr):
		fields = append(fields, zap.String("kind", string(apiErr.Kind)))
		if apiErr.Status != 0 {
			fields = append(fields, zap.Int("status", apiErr.Status))
		}
		c.logger.Warn("api error, entry omitted", fields...)
	case errors.As(err, &transportErr):
		fields = append(fields, zap.Int("attempts", transportErr.Attempts))
		c.logger.Warn("transport error, entry omitted", fields...)
	default:
		c.logger.Error("check failed, entry omitted", fields...)
	}
}
