// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/basketrec/internal/metrics"
)

// Degradation reasons reported in Metadata.DegradedReason.
const (
	ReasonTimeout     = "timeout"
	ReasonSaturated   = "saturated"
	ReasonCircuitOpen = "circuit_open"
	ReasonError       = "error"
)

// ErrPipelineTimeout is returned to the breaker when a pipeline run exceeds
// its deadline.
var ErrPipelineTimeout = errors.New("recommendation pipeline timed out")

// errCallerDone marks a run cut short by the caller's own context. The
// breaker does not count it as a failure.
var errCallerDone = errors.New("caller context done")

// Pipeline is the work a Dispatcher schedules.
type Pipeline interface {
	Recommend(ctx context.Context, req Request) (*Response, error)
	PopularOnly(ctx context.Context, req Request, reason string) (*Response, error)
}

// DispatchConfig bounds pipeline execution.
type DispatchConfig struct {
	// MaxConcurrent is the number of pipeline runs allowed at once.
	// Default: 64
	MaxConcurrent int `json:"max_concurrent"`

	// QueueTimeout is how long a request waits for a free slot before it is
	// served degraded.
	// Default: 50ms
	QueueTimeout time.Duration `json:"queue_timeout"`

	// Timeout is the deadline for one pipeline run.
	// Default: 2s
	Timeout time.Duration `json:"timeout"`

	Breaker BreakerConfig `json:"breaker"`
}

// BreakerConfig configures the circuit breaker around the pipeline.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32 `json:"max_requests"`

	// Interval resets the failure counts while closed.
	Interval time.Duration `json:"interval"`

	// OpenTimeout is how long the breaker stays open before trying again.
	OpenTimeout time.Duration `json:"open_timeout"`

	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64 `json:"failure_ratio"`
	MinRequests  uint32  `json:"min_requests"`
}

// DefaultDispatchConfig returns production dispatch settings.
func DefaultDispatchConfig() DispatchConfig {
	return DispatchConfig{
		MaxConcurrent: 64,
		QueueTimeout:  50 * time.Millisecond,
		Timeout:       2 * time.Second,
		Breaker: BreakerConfig{
			MaxRequests:  5,
			Interval:     time.Minute,
			OpenTimeout:  30 * time.Second,
			FailureRatio: 0.5,
			MinRequests:  10,
		},
	}
}

// Validate checks the configuration.
//
//nolint:gocritic // value receiver is intentional for immutable semantics
func (c DispatchConfig) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	if c.QueueTimeout < 0 {
		return fmt.Errorf("queue_timeout must be non-negative, got %v", c.QueueTimeout)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1 {
		return fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %f", c.Breaker.FailureRatio)
	}
	if c.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("breaker.open_timeout must be positive, got %v", c.Breaker.OpenTimeout)
	}
	return nil
}

// Dispatcher runs a Pipeline on a bounded number of slots under a deadline
// and a circuit breaker. Timeouts, saturation and an open breaker resolve to
// PopularOnly; the full pipeline is never retried.
type Dispatcher struct {
	pipeline Pipeline
	cfg      DispatchConfig
	sem      *semaphore.Weighted
	cb       *gobreaker.CircuitBreaker[*Response]
	name     string
	logger   zerolog.Logger
}

// NewDispatcher wraps p.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewDispatcher(p Pipeline, cfg DispatchConfig, logger zerolog.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}

	d := &Dispatcher{
		pipeline: p,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		name:     "recommend-pipeline",
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(d.name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(d.name).Set(0)

	d.cb = gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        d.name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.OpenTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.Breaker.FailureRatio {
				d.logger.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("opening pipeline circuit")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			d.logger.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		// A caller that went away or ran out of time is not a pipeline failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errCallerDone) || errors.Is(err, context.Canceled)
		},
	})

	d.logger.Info().
		Int("max_concurrent", cfg.MaxConcurrent).
		Dur("timeout", cfg.Timeout).
		Msg("dispatcher initialized")
	return d, nil
}

// State returns the breaker state name.
func (d *Dispatcher) State() string {
	return d.cb.State().String()
}

// Recommend runs the pipeline for req. It returns an error only when ctx is
// done before any response is available.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (d *Dispatcher) Recommend(ctx context.Context, req Request) (*Response, error) {
	if !d.acquire(ctx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		metrics.RecordDispatch(ReasonSaturated)
		return d.degrade(ctx, req, ReasonSaturated)
	}

	// Ownership of the slot passes to run once the breaker admits the call.
	admitted := false
	resp, err := d.cb.Execute(func() (*Response, error) {
		admitted = true
		return d.run(ctx, req)
	})
	if !admitted {
		d.release()
	}

	switch {
	case err == nil:
		metrics.RecordDispatch("ok")
		metrics.CircuitBreakerRequests.WithLabelValues(d.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(d.name).Set(0)
		return resp, nil

	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordDispatch(ReasonCircuitOpen)
		metrics.CircuitBreakerRequests.WithLabelValues(d.name, "rejected").Inc()
		return d.degrade(ctx, req, ReasonCircuitOpen)

	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	metrics.CircuitBreakerRequests.WithLabelValues(d.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(d.name).Set(float64(d.cb.Counts().ConsecutiveFailures))

	if errors.Is(err, ErrPipelineTimeout) {
		metrics.RecordDispatch(ReasonTimeout)
		d.logger.Warn().Str("request_id", req.RequestID).Int("user_id", req.UserID).Dur("timeout", d.cfg.Timeout).Msg("pipeline timed out")
		return d.degrade(ctx, req, ReasonTimeout)
	}
	metrics.RecordDispatch(ReasonError)
	d.logger.Error().Err(err).Int("user_id", req.UserID).Msg("pipeline failed")
	return d.degrade(ctx, req, ReasonError)
}

// run executes the pipeline on its own goroutine so a deadline can return
// early. An abandoned run finishes in the background, keeps its slot until
// then, and its result is discarded.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (d *Dispatcher) run(ctx context.Context, req Request) (*Response, error) {
	runCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)

	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer d.release()
		defer cancel()
		resp, err := d.pipeline.Recommend(runCtx, req)
		done <- result{resp, err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.resp, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", errCallerDone, err)
		}
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, ErrPipelineTimeout
		}
		return nil, res.err
	case <-runCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", errCallerDone, err)
		}
		return nil, ErrPipelineTimeout
	}
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (d *Dispatcher) degrade(ctx context.Context, req Request, reason string) (*Response, error) {
	return d.pipeline.PopularOnly(ctx, req, reason)
}

func (d *Dispatcher) acquire(ctx context.Context) bool {
	if d.sem.TryAcquire(1) {
		metrics.TrackDispatchSlot(true)
		return true
	}
	if d.cfg.QueueTimeout == 0 {
		return false
	}
	qctx, cancel := context.WithTimeout(ctx, d.cfg.QueueTimeout)
	defer cancel()
	if err := d.sem.Acquire(qctx, 1); err != nil {
		return false
	}
	metrics.TrackDispatchSlot(true)
	return true
}

func (d *Dispatcher) release() {
	d.sem.Release(1)
	metrics.TrackDispatchSlot(false)
}

// stateToFloat converts circuit breaker state to float64 for Prometheus metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
