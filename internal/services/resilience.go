package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
)

// OperationType categorizes external calls for circuit breaking and fallback
// dispatch. Breaker state is keyed by operation type, not session: one
// failing dependency protects every session from hammering it.
type OperationType string

const (
	OpTextGeneration OperationType = "text-generation"
	OpTTS            OperationType = "tts"
	OpSTT            OperationType = "stt"
	OpCrossfire      OperationType = "crossfire"
	OpStateSync      OperationType = "state-sync"
)

// ErrCircuitOpen is returned without invoking the operation while the
// breaker for its type is open.
var ErrCircuitOpen = errors.New("circuit breaker open")

// GuardEvent describes a resilience state change worth telling the client
// about.
type GuardEvent struct {
	Kind      string        `json:"kind"` // retrying | recovered | failure
	Operation OperationType `json:"operation"`
	Attempt   int           `json:"attempt,omitempty"`
	Delay     time.Duration `json:"delay,omitempty"`
	Err       string        `json:"error,omitempty"`
}

// GuardNotify receives resilience events for one session.
type GuardNotify func(sessionID string, ev GuardEvent)

// FallbackFunc degrades a feature for one session after retries are
// exhausted.
type FallbackFunc func(sessionID string)

type GuardConfig struct {
	MaxRetries       int
	BaseDelay        time.Duration
	Multiplier       float64
	MaxDelay         time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
	HealthWindow     time.Duration
	HealthMaxErrors  int
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		MaxRetries:       config.GuardMaxRetries,
		BaseDelay:        config.GuardBaseDelay,
		Multiplier:       config.GuardDelayMultiplier,
		MaxDelay:         config.GuardMaxDelay,
		BreakerThreshold: config.BreakerOpenThreshold,
		BreakerReset:     config.BreakerResetAfter,
		HealthWindow:     config.HealthErrorWindow,
		HealthMaxErrors:  config.HealthMaxWindowErrors,
	}
}

type breakerState struct {
	open                bool
	consecutiveFailures int
	lastFailure         time.Time
}

type sessionMetrics struct {
	total       int
	byOperation map[OperationType]int
	lastFailure time.Time
	window      []time.Time
}

// Guard wraps every external call site with retry, backoff, circuit
// breaking and fallback dispatch. Breakers are process-wide; error metrics
// are per session and cleared when the session ends.
type Guard struct {
	mu        sync.Mutex
	cfg       GuardConfig
	log       *logrus.Logger
	breakers  map[OperationType]*breakerState
	sessions  map[string]*sessionMetrics
	fallbacks map[OperationType]FallbackFunc
}

func NewGuard(cfg GuardConfig, logger *logrus.Logger) *Guard {
	return &Guard{
		cfg:       cfg,
		log:       logger,
		breakers:  make(map[OperationType]*breakerState),
		sessions:  make(map[string]*sessionMetrics),
		fallbacks: make(map[OperationType]FallbackFunc),
	}
}

// RegisterFallback installs the degradation handler for an operation type.
func (g *Guard) RegisterFallback(op OperationType, fn FallbackFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fallbacks[op] = fn
}

// RunWithRetry attempts fn up to MaxRetries+1 times with exponential
// backoff. After exhausting retries it invokes the operation type's
// fallback and returns (nil, nil): the caller must treat a nil result as
// degraded, not fatal. A call against an open breaker fails fast with
// ErrCircuitOpen without invoking fn.
func (g *Guard) RunWithRetry(ctx context.Context, sessionID string, op OperationType, notify GuardNotify, fn func(ctx context.Context) (any, error)) (any, error) {
	if g.breakerOpen(op) {
		g.log.WithFields(logrus.Fields{"session": sessionID, "operation": op}).Warn("circuit open, failing fast")
		return nil, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			g.recordSuccess(op)
			if attempt > 0 && notify != nil {
				notify(sessionID, GuardEvent{Kind: "recovered", Operation: op, Attempt: attempt + 1})
			}
			return result, nil
		}

		lastErr = err
		g.recordFailure(sessionID, op)
		g.log.WithFields(logrus.Fields{
			"session":   sessionID,
			"operation": op,
			"attempt":   attempt + 1,
			"err":       err,
		}).Warn("guarded operation failed")

		if attempt < g.cfg.MaxRetries {
			delay := g.backoffDelay(attempt)
			if notify != nil {
				notify(sessionID, GuardEvent{Kind: "retrying", Operation: op, Attempt: attempt + 1, Delay: delay, Err: err.Error()})
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	if notify != nil {
		notify(sessionID, GuardEvent{Kind: "failure", Operation: op, Err: lastErr.Error()})
	}
	if fb := g.fallback(op); fb != nil {
		fb(sessionID)
	}
	return nil, nil
}

// IsHealthy reports whether a session is within its error budget: no more
// than HealthMaxErrors failures in the trailing HealthWindow.
func (g *Guard) IsHealthy(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[sessionID]
	if !ok {
		return true
	}

	cutoff := time.Now().Add(-g.cfg.HealthWindow)
	recent := 0
	for _, ts := range m.window {
		if ts.After(cutoff) {
			recent++
		}
	}
	return recent <= g.cfg.HealthMaxErrors
}

// ClearSession drops the error metrics for an ended session.
func (g *Guard) ClearSession(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, sessionID)
}

// SessionErrors returns the failure counts recorded for a session.
func (g *Guard) SessionErrors(sessionID string) (total int, byOperation map[OperationType]int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m, ok := g.sessions[sessionID]
	if !ok {
		return 0, map[OperationType]int{}
	}
	out := make(map[OperationType]int, len(m.byOperation))
	for k, v := range m.byOperation {
		out[k] = v
	}
	return m.total, out
}

// BreakerOpen reports whether the breaker for an operation type is
// currently open, applying the quiet-window auto reset.
func (g *Guard) BreakerOpen(op OperationType) bool {
	return g.breakerOpen(op)
}

func (g *Guard) breakerOpen(op OperationType) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[op]
	if !ok || !b.open {
		return false
	}
	if time.Since(b.lastFailure) >= g.cfg.BreakerReset {
		b.open = false
		b.consecutiveFailures = 0
		g.log.WithField("operation", op).Info("circuit breaker closed after quiet window")
		return false
	}
	return true
}

func (g *Guard) recordSuccess(op OperationType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[op]; ok {
		b.consecutiveFailures = 0
		b.open = false
	}
}

func (g *Guard) recordFailure(sessionID string, op OperationType) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()

	b, ok := g.breakers[op]
	if !ok {
		b = &breakerState{}
		g.breakers[op] = b
	}
	b.consecutiveFailures++
	b.lastFailure = now
	if b.consecutiveFailures >= g.cfg.BreakerThreshold && !b.open {
		b.open = true
		g.log.WithFields(logrus.Fields{
			"operation": op,
			"failures":  b.consecutiveFailures,
		}).Error("circuit breaker opened")
	}

	m, ok := g.sessions[sessionID]
	if !ok {
		m = &sessionMetrics{byOperation: make(map[OperationType]int)}
		g.sessions[sessionID] = m
	}
	m.total++
	m.byOperation[op]++
	m.lastFailure = now

	// Trim the health window as we go so it cannot grow unbounded.
	cutoff := now.Add(-g.cfg.HealthWindow)
	kept := m.window[:0]
	for _, ts := range m.window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	m.window = append(kept, now)
}

func (g *Guard) fallback(op OperationType) FallbackFunc {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fallbacks[op]
}

func (g *Guard) backoffDelay(attempt int) time.Duration {
	delay := float64(g.cfg.BaseDelay) * math.Pow(g.cfg.Multiplier, float64(attempt))
	if delay > float64(g.cfg.MaxDelay) {
		delay = float64(g.cfg.MaxDelay)
	}
	return time.Duration(delay)
}
