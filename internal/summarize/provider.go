// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summarize turns extracted paper text into Markdown summaries
// through pluggable AI providers.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/meshintel/preprint-digest/pkg/types"
)

// Provider generates one completion from a system and user prompt.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)

	// Name returns the provider name for logs and errors.
	Name() string
}

// APIError is a failed provider call. StatusCode 0 means no HTTP response
// was received.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s: API error (status %d, type %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsTransient reports whether a retry may succeed: network errors, rate
// limiting, and server errors. Quota exhaustion is permanent for the run
// and never transient.
func (e *APIError) IsTransient() bool {
	if e.isQuota() {
		return false
	}
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500
}

func (e *APIError) isQuota() bool {
	if e.Code == "insufficient_quota" || e.Type == "insufficient_quota" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "billing")
}

// IsQuota reports whether err means the provider account is out of quota.
// The pipeline stops summarizing for the rest of the run when it sees one.
func IsQuota(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.isQuota()
}

// IsRateLimit reports whether err is provider throttling.
func IsRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.isQuota()
}

// retryDelayBase controls the base duration for backoff between provider
// retries. Tests override this to avoid real sleeps.
var retryDelayBase = time.Second

// completeWithRetry calls fn with exponential backoff on transient errors.
func completeWithRetry(ctx context.Context, maxRetries int, fn func() (string, error)) (string, error) {
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelayBase * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("cancelled during retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		out, err := fn()
		if err == nil {
			return out, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsTransient() {
			return "", err
		}
	}
	return "", fmt.Errorf("all %d retries exhausted: %w", maxRetries, lastErr)
}

// New builds the provider named by cfg. Supported providers are "openai"
// and "anthropic".
func New(cfg types.SummaryConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported summary provider: %q", cfg.Provider)
	}
}
