// Package script provides a backend that delegates page lookups to an
// external command speaking JSON over stdin/stdout.
//
// For every page the command receives
//
//	{"action":"completed","user_id":"<id>","page":<n>}
//
// on stdin and must print the page in the same shape as the Codewars API
// (data, totalPages, totalItems, optional success/reason), or
// {"not_found":true} for an unknown user.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rw-r-r-0644/kata-audit/kata"
)

func init() {
	kata.Register(kata.BackendDef{
		ID:   "script",
		Name: "Custom Script",
		Settings: []kata.SettingDef{
			{ID: "command", Name: "Command", Required: true},
			{ID: "timeout", Name: "Timeout", Default: "2m"},
		},
		Build: func(s map[string]string, logger *zap.Logger) (kata.Backend, error) {
			return newScript(s["command"], s["timeout"], logger)
		},
	})
}

type scriptClient struct {
	command []string
	timeout time.Duration
	logger  *zap.Logger
}

func newScript(command, timeout string, logger *zap.Logger) (*scriptClient, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("command is required")
	}
	d := 2 * time.Minute
	if timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid timeout %q", timeout)
		}
		d = parsed
	}
	return &scriptClient{
		command: parts,
		timeout: d,
		logger:  logger,
	}, nil
}

func (c *scriptClient) CompletedPage(ctx context.Context, userID string, page int) (*kata.Page, error) {
	payload := scriptPageRequest{
		Action: "completed",
		UserID: userID,
		Page:   page,
	}
	output, err := c.run(ctx, payload)
	if err != nil {
		return nil, err
	}

	var status scriptStatus
	if err := json.Unmarshal(output, &status); err == nil && status.NotFound {
		return nil, &kata.APIError{Kind: kata.NotFound}
	}
	return kata.DecodePage(bytes.NewReader(output))
}

func (c *scriptClient) run(ctx context.Context, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode script request: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("running script", zap.Strings("command", c.command), zap.ByteString("request", data))
	cmd := exec.CommandContext(runCtx, c.command[0], c.command[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr := strings.TrimSpace(string(exitErr.Stderr))
			if stderr != "" {
				return nil, &kata.TransportError{Attempts: 1, Err: fmt.Errorf("script error: %s", stderr)}
			}
		}
		return nil, &kata.TransportError{Attempts: 1, Err: fmt.Errorf("script error: %w", err)}
	}
	return output, nil
}

type scriptPageRequest struct {
	Action string `json:"action"`
	UserID string `json:"user_id"`
	Page   int    `json:"page"`
}

type scriptStatus struct {
	NotFound bool `json:"not_found"`
}
