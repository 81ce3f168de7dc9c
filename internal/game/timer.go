package game

import (
	"time"

	"github.com/coder/quartz"
)

// RoundTimer is the single deferred action a room keeps while collecting
// submissions. Expiry reports the round it was armed for; the receiver must
// compare it with the live round before acting, because the timer can fire
// concurrently with a Cancel that loses the race.
type RoundTimer struct {
	clock quartz.Clock
	fire  func(round uint64)
	timer *quartz.Timer
	round uint64
}

// NewRoundTimer creates a disarmed timer that calls fire on expiry.
func NewRoundTimer(clock quartz.Clock, fire func(round uint64)) *RoundTimer {
	return &RoundTimer{clock: clock, fire: fire}
}

// Arm schedules expiry for round after d, replacing any pending expiry.
// A non-positive d leaves the timer disarmed.
func (t *RoundTimer) Arm(round uint64, d time.Duration) {
	t.Cancel()
	if d <= 0 || t.fire == nil {
		return
	}
	t.round = round
	t.timer = t.clock.AfterFunc(d, func() { t.fire(round) }, "round", "timeout")
}

// Cancel disarms the timer. It is safe to call when nothing is pending.
func (t *RoundTimer) Cancel() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Armed reports whether an expiry is pending and for which round.
func (t *RoundTimer) Armed() (uint64, bool) {
	if t.timer == nil {
		return 0, false
	}
	return t.round, true
}
