package kata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultCodewarsURL is the public Codewars host.
const DefaultCodewarsURL = "https://www.codewars.com"

func init() {
	Register(BackendDef{
		ID:   "codewars",
		Name: "Codewars",
		Settings: []SettingDef{
			{ID: "base_url", Name: "Base URL", Required: true, Default: DefaultCodewarsURL},
			{ID: "timeout", Name: "Request Timeout", Default: "30s"},
			{ID: "attempts", Name: "Attempts Per Request", Default: "3"},
			{ID: "retry_wait", Name: "Wait Between Attempts", Default: "1s"},
		},
		Build: func(s map[string]string, logger *zap.Logger) (Backend, error) {
			return newCodewars(s, logger)
		},
	})
}

type codewarsClient struct {
	baseURL   string
	client    *http.Client
	attempts  int
	retryWait time.Duration
	logger    *zap.Logger
}

func newCodewars(s map[string]string, logger *zap.Logger) (*codewarsClient, error) {
	baseURL := strings.TrimRight(s["base_url"], "/")
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base_url %q", s["base_url"])
	}

	timeout, err := parseDurationSetting(s, "timeout")
	if err != nil {
		return nil, err
	}
	retryWait, err := parseDurationSetting(s, "retry_wait")
	if err != nil {
		return nil, err
	}

	attempts := 1
	if raw := s["attempts"]; raw != "" {
		attempts, err = strconv.Atoi(raw)
		if err != nil || attempts < 1 {
			return nil, fmt.Errorf("invalid attempts %q: must be a positive integer", raw)
		}
	}

	return &codewarsClient{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		attempts:  attempts,
		retryWait: retryWait,
		logger:    logger,
	}, nil
}

func (c *codewarsClient) CompletedPage(ctx context.Context, userID string, page int) (*Page, error) {
	reqURL := fmt.Sprintf("%s/api/v1/users/%s/code-challenges/completed?page=%d",
		c.baseURL, url.PathEscape(userID), page)

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			if err := wait(ctx, c.retryWait); err != nil {
				return nil, err
			}
		}

		p, err := c.fetch(ctx, reqURL)
		if err == nil {
			return p, nil
		}
		var transient *transientError
		if !errors.As(err, &transient) {
			return nil, err
		}
		lastErr = transient.err
		c.logger.Warn("request failed",
			zap.String("user_id", userID),
			zap.Int("page", page),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}
	return nil, &TransportError{Attempts: c.attempts, Err: lastErr}
}

// transientError marks a failure worth another attempt.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }

func (c *codewarsClient) fetch(ctx context.Context, reqURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("GET", zap.String("url", reqURL))
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &transientError{err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return DecodePage(resp.Body)
	case http.StatusNotFound:
		return nil, &APIError{Kind: NotFound, Status: resp.StatusCode}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			Kind:   UnexpectedStatus,
			Status: resp.StatusCode,
			Reason: strings.TrimSpace(string(body)),
		}
	}
}

func parseDurationSetting(s map[string]string, key string) (time.Duration, error) {
	raw := s[key]
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative duration", key, raw)
	}
	return d, nil
}
