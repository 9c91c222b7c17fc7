// Package transport is the single HTTP path for all provider clients. It
// owns timeouts, transient-error classification and the exponential backoff
// retry policy; business errors never retry here.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"dnsbridge/internal/core/domain"
	"dnsbridge/internal/infrastructure/metrics"
)

const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second

	retryInitialDelay = 100 * time.Millisecond
	retryMaxDelay     = 10 * time.Second

	// DefaultMaxAttempts bounds the total number of sends per request.
	DefaultMaxAttempts = 2
)

// CallContext carries call-site identifiers so provider error mappers can
// fill variant-specific fields.
type CallContext struct {
	RecordID   string
	RecordName string
	Domain     string
}

// Client wraps http.Client with logging, metrics and retry. One instance is
// shared by all provider implementations.
type Client struct {
	http        *http.Client
	logger      *slog.Logger
	MaxAttempts int
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		logger:      logger,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Do sends the request and returns (status, body). Transport failures come
// back as CodeTimeout or CodeNetworkError; HTTP error statuses are returned
// to the caller for provider-specific mapping. Transient failures (network,
// timeout, 429) are retried with exponential backoff while the body can be
// replayed; when the body cannot be cloned, retry is silently disabled.
func (c *Client) Do(ctx context.Context, kind domain.ProviderKind, op string, req *http.Request) (int, []byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialDelay
	bo.Multiplier = 2
	bo.MaxInterval = retryMaxDelay
	bo.RandomizationFactor = 0
	bo.Reset()

	replayable := req.Body == nil || req.GetBody != nil

	start := time.Now()
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues(string(kind), op).Observe(time.Since(start).Seconds())
	}()

	var (
		status int
		body   []byte
		err    error
	)
	for attempt := 1; ; attempt++ {
		status, body, err = c.send(ctx, kind, op, req)

		transient := false
		switch {
		case err != nil:
			var de *domain.Error
			transient = errors.As(err, &de) && de.Transient()
		case status == http.StatusTooManyRequests:
			transient = true
		}

		if !transient || !replayable || attempt >= c.MaxAttempts {
			break
		}
		if req.Body != nil {
			fresh, berr := req.GetBody()
			if berr != nil {
				break
			}
			req.Body = fresh
		}

		wait := bo.NextBackOff()
		c.logger.Warn("retrying provider request",
			"provider", kind, "operation", op, "attempt", attempt, "wait", wait)
		metrics.ProviderRetriesTotal.WithLabelValues(string(kind)).Inc()

		select {
		case <-ctx.Done():
			return 0, nil, &domain.Error{Code: domain.CodeTimeout, Provider: kind, Detail: ctx.Err().Error()}
		case <-time.After(wait):
		}
	}

	outcome := "ok"
	if err != nil || status >= 400 {
		outcome = "error"
	}
	metrics.ProviderRequestsTotal.WithLabelValues(string(kind), op, outcome).Inc()

	return status, body, err
}

func (c *Client) send(ctx context.Context, kind domain.ProviderKind, op string, req *http.Request) (int, []byte, error) {
	c.logger.Debug("provider request", "provider", kind, "operation", op,
		"method", req.Method, "url", req.URL.Redacted())

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return 0, nil, classify(kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, classify(kind, err)
	}
	return resp.StatusCode, body, nil
}

// classify distinguishes timeouts from other transport failures.
func classify(kind domain.ProviderKind, err error) *domain.Error {
	code := domain.CodeNetworkError
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		code = domain.CodeTimeout
	}
	return &domain.Error{Code: code, Provider: kind, Detail: err.Error()}
}
