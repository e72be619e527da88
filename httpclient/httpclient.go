// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package httpclient builds http.Clients with request retries and circuit
// breaking. The telemetry package uses it as the default transport for
// OTLP HTTP exporters; host applications may reuse it for their own
// outbound calls.
package httpclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type retryOptions struct {
	maxAttempts int
	waitMin     time.Duration
	waitMax     time.Duration
}

// RetryOption configures request retry behavior.
type RetryOption func(*retryOptions)

// MaxAttempts caps how many times a request is retried.
func MaxAttempts(n int) RetryOption {
	return func(ro *retryOptions) {
		ro.maxAttempts = n
	}
}

// MinWait sets the minimum backoff between retries.
func MinWait(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMin = d
	}
}

// MaxWait sets the maximum backoff between retries.
func MaxWait(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.waitMax = d
	}
}

type circuitOptions struct {
	tripCount   uint32
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	statusCodes []int
}

// CircuitOption configures the circuit breaker.
type CircuitOption func(*circuitOptions)

// TripAfter sets the number of consecutive failures required to open
// the circuit.
func TripAfter(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.tripCount = n
	}
}

// HalfOpenRequests is the number of requests allowed through while the
// circuit is half-open.
func HalfOpenRequests(n uint32) CircuitOption {
	return func(co *circuitOptions) {
		co.maxRequests = n
	}
}

// OpenStateTimeout is how long the circuit stays open before moving to
// half-open.
func OpenStateTimeout(d time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.timeout = d
	}
}

// CountResetInterval is the cyclic period over which the closed-state
// failure counts are cleared.
func CountResetInterval(d time.Duration) CircuitOption {
	return func(co *circuitOptions) {
		co.interval = d
	}
}

// ErrorOnStatusCode registers a response status code which counts as a
// failure toward tripping the circuit.
//
// Default: 400, 401, 403, 500.
func ErrorOnStatusCode(n int) CircuitOption {
	return func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, n)
	}
}

type options struct {
	name      string
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger

	ro *retryOptions
	co *circuitOptions
}

// Option configures the client returned by New.
type Option func(*options)

// Name names the client; it shows up in breaker state-change logs.
func Name(s string) Option {
	return func(o *options) {
		o.name = s
	}
}

// Timeout sets a global timeout on the http.Client.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// Transport sets the base http.RoundTripper.
func Transport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// Logger sets the logger used for breaker state changes.
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// RetryRequests adds retry logic around every request.
func RetryRequests(opts ...RetryOption) Option {
	return func(o *options) {
		ro := &retryOptions{
			maxAttempts: 2,
			waitMin:     100 * time.Millisecond,
			waitMax:     5 * time.Second,
		}
		for _, opt := range opts {
			opt(ro)
		}
		o.ro = ro
	}
}

// CircuitBreaker wraps the transport in a circuit breaker.
func CircuitBreaker(opts ...CircuitOption) Option {
	return func(o *options) {
		co := &circuitOptions{
			tripCount:   5,
			maxRequests: 1,
			timeout:     60 * time.Second,
		}
		for _, opt := range opts {
			opt(co)
		}
		o.co = co
	}
}

// New builds an http.Client from the given options.
func New(opts ...Option) *http.Client {
	o := &options{
		transport: http.DefaultTransport,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}

	rt := o.transport
	if o.co != nil {
		rt = newCircuitRoundTripper(rt, o.name, o.co, o.logger.Named(o.name))
	}

	c := &http.Client{
		Timeout:   o.timeout,
		Transport: rt,
	}
	if o.ro == nil {
		return c
	}

	rc := retryablehttp.Client{
		HTTPClient:   c,
		RetryWaitMin: o.ro.waitMin,
		RetryWaitMax: o.ro.waitMax,
		RetryMax:     o.ro.maxAttempts,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

// errTrippedStatus marks a response whose status code counts toward
// tripping the circuit. It never escapes to the caller.
var errTrippedStatus = errors.New("status code counted as circuit failure")

type circuitRoundTripper struct {
	base    http.RoundTripper
	cb      *gobreaker.CircuitBreaker
	countOn map[int]struct{}
}

func newCircuitRoundTripper(base http.RoundTripper, name string, co *circuitOptions, log *zap.Logger) *circuitRoundTripper {
	if len(co.statusCodes) == 0 {
		co.statusCodes = []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusInternalServerError,
		}
	}
	countOn := make(map[int]struct{}, len(co.statusCodes))
	for _, code := range co.statusCodes {
		countOn[code] = struct{}{}
	}

	return &circuitRoundTripper{
		base: base,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: co.maxRequests,
			Interval:    co.interval,
			Timeout:     co.timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= co.tripCount
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened")
				case gobreaker.StateHalfOpen:
					log.Warn(
						"circuit is half open and letting some requests through",
						zap.Uint32("max_requests_allowed_through", co.maxRequests),
					)
				case gobreaker.StateClosed:
					log.Info("circuit has been closed")
				}
			},
		}),
		countOn: countOn,
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if _, ok := rt.countOn[resp.StatusCode]; ok {
			return resp, errTrippedStatus
		}
		return resp, nil
	})
	if errors.Is(err, errTrippedStatus) {
		// The breaker counted the failure; the caller still gets the response.
		return v.(*http.Response), nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
