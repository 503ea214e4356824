package services

import (
	"sync"
	"time"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
)

// phaseTimer is the single owned timer for a debate session: a one-shot
// expiry plus a per-second tick loop, created on phase entry and again on
// resume. Cancel is idempotent; Remaining is never negative.
type phaseTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	stopTick chan struct{}
	deadline time.Time
	running  bool
}

func newPhaseTimer() *phaseTimer {
	return &phaseTimer{}
}

// Start arms the timer for d. onTick fires roughly every second with the
// remaining time; onExpire fires once when d elapses. Any previous arm is
// cancelled first.
func (t *phaseTimer) Start(d time.Duration, onTick func(remaining time.Duration), onExpire func()) {
	t.Cancel()

	t.mu.Lock()
	t.deadline = time.Now().Add(d)
	t.running = true
	stop := make(chan struct{})
	t.stopTick = stop
	t.timer = time.AfterFunc(d, func() {
		t.stopFromExpiry()
		onExpire()
	})
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(config.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				onTick(t.Remaining())
			}
		}
	}()
}

// Cancel stops both the expiry and the tick loop. Safe to call repeatedly
// and when never started.
func (t *phaseTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	if t.timer != nil {
		t.timer.Stop()
	}
	close(t.stopTick)
}

// stopFromExpiry stops the tick loop when the one-shot fires on its own.
func (t *phaseTimer) stopFromExpiry() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stopTick)
}

// Remaining reports time until the armed deadline, zero once cancelled or
// expired.
func (t *phaseTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return 0
	}
	r := time.Until(t.deadline)
	if r < 0 {
		return 0
	}
	return r
}
