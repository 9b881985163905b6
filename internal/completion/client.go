// Package completion sends prompts to text-completion providers with a
// per-attempt wall-clock bound and a fixed retry budget.
//
// A Client holds no per-request state. Failures on one request never affect
// another, so a single Client is shared by every agent in a game.
package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/llmarena/internal/metrics"
)

var (
	// ErrExhausted is returned when every attempt of a request failed.
	ErrExhausted = errors.New("completion attempts exhausted")
	// ErrTimeout marks a single attempt abandoned after the policy timeout.
	ErrTimeout = errors.New("completion attempt timed out")
)

// Policy bounds a request. Total attempts are MaxRetries+1; a Timeout of
// zero leaves attempts unbounded.
type Policy struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// DefaultPolicy returns five retries, a ten second delay and a two minute
// per-attempt timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 5,
		RetryDelay: 10 * time.Second,
		Timeout:    120 * time.Second,
	}
}

// Attempts returns the total number of attempts the policy allows.
func (p Policy) Attempts() int {
	return max(p.MaxRetries, 0) + 1
}

// Request is a single prompt bound for a provider and model.
type Request struct {
	Prompt   string
	Provider string
	Model    string
	Policy   Policy
}

// Client dispatches requests to providers.
type Client struct {
	providers *Providers
	clock     quartz.Clock
	metrics   metrics.Recorder
	logger    *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithClock sets the clock used for timeouts and retry delays.
func WithClock(clock quartz.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithMetrics sets the recorder for attempt observations.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client over the given provider registry.
func NewClient(providers *Providers, logger *log.Logger, opts ...Option) *Client {
	c := &Client{
		providers: providers,
		clock:     quartz.NewReal(),
		metrics:   metrics.Nop{},
		logger:    logger.WithPrefix("completion"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send issues the request, retrying failed or timed out attempts after the
// policy delay. It returns an error wrapping ErrExhausted once every attempt
// has failed, and ErrUnknownProvider without attempting anything when the
// provider is not registered. An empty response is a successful attempt.
func (c *Client) Send(ctx context.Context, req Request) (string, error) {
	logger := c.logger.With("provider", req.Provider, "model", req.Model)
	attempts := req.Policy.Attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		provider, err := c.providers.Get(ctx, req.Provider)
		if errors.Is(err, ErrUnknownProvider) {
			return "", err
		}

		start := c.clock.Now()
		var text string
		if err == nil {
			text, err = c.attempt(ctx, provider, req)
		}
		c.metrics.ObserveAttempt(req.Provider, req.Model, outcome(err), c.clock.Since(start))

		if err == nil {
			logger.Debug("Completion succeeded", "attempt", attempt, "chars", len(text))
			return text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("completion cancelled: %w", ctx.Err())
		}

		lastErr = err
		if attempt == attempts {
			break
		}
		logger.Warn("Completion attempt failed, retrying",
			"attempt", attempt,
			"attempts", attempts,
			"delay", req.Policy.RetryDelay,
			"error", err)
		if err := c.wait(ctx, req.Policy.RetryDelay); err != nil {
			return "", fmt.Errorf("completion cancelled: %w", err)
		}
	}

	c.metrics.ObserveExhausted(req.Provider, req.Model)
	logger.Warn("Completion failed, maximum attempts reached", "attempts", attempts, "error", lastErr)
	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, provider Provider, req Request) (string, error) {
	if req.Policy.Timeout <= 0 {
		return provider.Complete(ctx, req.Model, req.Prompt)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The timer is armed before the provider call starts so that a provider
	// observed running always has a pending deadline.
	timeoutFired := make(chan struct{})
	timer := c.clock.AfterFunc(req.Policy.Timeout, func() {
		close(timeoutFired)
	}, "completion", "attempt")
	defer timer.Stop()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := provider.Complete(ctx, req.Model, req.Prompt)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timeoutFired:
		return "", fmt.Errorf("%w after %s", ErrTimeout, req.Policy.Timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.NewTimer(d, "completion", "retry")
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
