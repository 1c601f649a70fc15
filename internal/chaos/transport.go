// Package chaos injects faults into the desk's calls to the data service so
// its degraded behaviour (retries, the circuit breaker, inline load errors)
// can be exercised on purpose.
package chaos

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ErrInjected = errors.New("chaos: injected network failure")

// Faults describes what to inject into the affected requests. BlastRadius is
// the fraction of requests affected, from 0.0 to 1.0.
//
// An affected request is delayed by Latency. It is then answered with
// StatusCode when set, passed through when only Latency is set, and failed
// with ErrInjected otherwise.
type Faults struct {
	Latency     time.Duration
	BlastRadius float64
	StatusCode  int
}

func (f Faults) Enabled() bool {
	return f.BlastRadius > 0
}

// Transport is an http.RoundTripper that injects Faults before delegating to Base.
type Transport struct {
	Base   http.RoundTripper
	Faults Faults

	mu       sync.Mutex
	roll     func() float64
	injected int
	tracer   trace.Tracer
}

func NewTransport(base http.RoundTripper, faults Faults) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		Base:   base,
		Faults: faults,
		roll:   rand.Float64,
		tracer: otel.Tracer("librarydesk/chaos"),
	}
}

// Injected returns how many requests have been affected so far.
func (t *Transport) Injected() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.injected
}

func (t *Transport) affected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.roll() >= t.Faults.BlastRadius {
		return false
	}
	t.injected++
	return true
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.affected() {
		return t.Base.RoundTrip(req)
	}

	ctx, span := t.tracer.Start(req.Context(), "chaos.inject", trace.WithAttributes(
		attribute.String("chaos.target", req.URL.Path),
		attribute.Int64("chaos.latency_ms", t.Faults.Latency.Milliseconds()),
		attribute.Int("chaos.status_code", t.Faults.StatusCode),
	))
	defer span.End()

	if t.Faults.Latency > 0 {
		timer := time.NewTimer(t.Faults.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	switch {
	case t.Faults.StatusCode != 0:
		body := fmt.Sprintf(`{"message":"chaos: injected %d"}`, t.Faults.StatusCode)
		return &http.Response{
			StatusCode: t.Faults.StatusCode,
			Status:     fmt.Sprintf("%d %s", t.Faults.StatusCode, http.StatusText(t.Faults.StatusCode)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
			ProtoMajor: 1,
			ProtoMinor: 1,
		}, nil
	case t.Faults.Latency > 0:
		return t.Base.RoundTrip(req)
	default:
		return nil, ErrInjected
	}
}
