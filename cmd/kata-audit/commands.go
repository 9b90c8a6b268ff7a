package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rw-r-r-0644/kata-audit/kata"
	"github.com/rw-r-r-0644/kata-audit/roster"
)

func queryFromFlags(cmd *cobra.Command, o *options) kata.Query {
	if cmd.Flags().Changed("slug") {
		return kata.SlugQuery(o.slug)
	}
	return kata.CountQuery(o.n)
}

func runAudit(ctx context.Context, o *options, rosterPath string, q kata.Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if o.delay < 0 {
		return fmt.Errorf("delay must be >= 0, got %v", o.delay)
	}

	backend, err := kata.Build(o.cfg.Backend, o.cfg.Settings, o.logger)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	// The whole roster is validated before the first request.
	entries, err := roster.Load(ctx, rosterPath)
	if err != nil {
		return err
	}
	o.logger.Info("roster loaded",
		zap.String("roster", rosterPath),
		zap.Int("entries", len(entries)),
		zap.String("backend", o.cfg.Backend),
		zap.String("query", q.Kind.String()))

	delay := time.Duration(o.delay * float64(time.Second))
	checker := kata.NewChecker(backend, delay, o.logger)
	result, err := checker.Audit(ctx, entries, q, o.stderr)
	if err != nil {
		return err
	}

	_, err = result.WriteTo(o.stdout)
	return err
}

func runBackends(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(kata.Backends())
}
