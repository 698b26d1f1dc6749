// internal/infrastructure/beamer/client.go
package beamer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/xcybeamer/storefront-backend/internal/config"
	"github.com/xcybeamer/storefront-backend/internal/pkg/apperror"
	"github.com/xcybeamer/storefront-backend/internal/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

const maxResponseBytes = 1 << 20

// StatusError is a non-2xx answer from a collaborator
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("collaborator returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("collaborator returned status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the catalog, promo, key inventory and payment APIs
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	catalog    singleflight.Group
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

// NewClient creates a collaborator client with its own circuit breaker
func NewClient(cfg config.CollaboratorConfig, m *metrics.Metrics, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "beamer_client")

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "beamer-api",
		MaxRequests: cfg.BreakerHalfOpens,
		Timeout:     cfg.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 4xx answers are the collaborator working as intended
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		metrics:    m,
		log:        log,
	}
}

type request struct {
	endpoint string
	method   string
	path     string
	token    string
	body     any
}

// do sends req through the breaker and returns the response body of a 2xx answer
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, req)
	})

	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "breaker_open"
		err = apperror.Wrap(apperror.CodeDependency, err, "service temporarily unavailable, please try again shortly")
	case err != nil:
		outcome = "error"
	}
	c.metrics.ObserveCollaborator(req.endpoint, outcome, time.Since(start))

	if err != nil {
		c.log.WithError(err).WithField("endpoint", req.endpoint).Warn("Collaborator call failed")
		return nil, err
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", req.endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: messageOf(data)}
	}
	return data, nil
}

// envelope holds the fields the collaborators put around every answer
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) failed() bool {
	return e.Success != nil && !*e.Success
}

func (e envelope) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

func messageOf(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.text()
}

// mapError converts a transport or status failure into an apperror
func mapError(err error, notFound apperror.Code, fallback string) error {
	if err == nil {
		return nil
	}
	if apperror.As(err) != nil {
		return err
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		message := statusErr.Message
		if message == "" {
			message = fallback
		}
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized:
			return apperror.Wrap(apperror.CodeUnauthorized, err, message)
		case statusErr.StatusCode == http.StatusForbidden:
			return apperror.Wrap(apperror.CodeForbidden, err, message)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return apperror.Wrap(apperror.CodeRateLimit, err, message)
		case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return apperror.Wrap(notFound, err, message)
		}
	}
	return apperror.Wrap(apperror.CodeDependency, err, fallback)
}
