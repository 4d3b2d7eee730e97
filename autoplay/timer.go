package autoplay

import (
	"sync"
	"time"

	"cliploop/twitch"
)

// TimerConfig tunes the advancement timer.
type TimerConfig struct {
	// Lead is subtracted from the nominal clip duration so the advance
	// fires slightly before the clip's declared end, compensating for
	// the external player's startup latency.
	Lead time.Duration

	// MinArm is the floor for a fresh deadline. It also guarantees
	// progress on malformed catalog data (zero or negative durations).
	MinArm time.Duration

	// MinRearm is the smaller floor used when re-arming from an
	// observed position report whose remainder is already inside the
	// lead window.
	MinRearm time.Duration
}

// DefaultTimerConfig returns the production timing constants.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		Lead:     2 * time.Second,
		MinArm:   1 * time.Second,
		MinRearm: 500 * time.Millisecond,
	}
}

// AdvanceTimer is the single authoritative source of "when does the
// current clip end". It is armed from the nominal catalog duration and
// can be re-armed from an untrusted observed position report or fired
// early by an end-of-playback report. At most one deadline is pending at
// any instant; arming always cancels the previous one first.
//
// The deadline path calls fire from a timer goroutine; the Observe*
// methods report synchronously to their caller instead, so the session
// controller can act in-loop without re-entering its own event channel.
type AdvanceTimer struct {
	cfg  TimerConfig
	fire func(clipID string)

	mu       sync.Mutex
	enabled  bool
	armed    bool
	clip     twitch.Clip
	deadline time.Time
	timer    *time.Timer
	seq      uint64 // incremented on every arm; stale fires check it
}

// NewAdvanceTimer creates a timer. fire is invoked, outside the timer's
// lock, each time a pending deadline elapses; it receives the clip id the
// deadline was armed for.
func NewAdvanceTimer(cfg TimerConfig, fire func(clipID string)) *AdvanceTimer {
	if cfg.Lead <= 0 {
		cfg.Lead = DefaultTimerConfig().Lead
	}
	if cfg.MinArm <= 0 {
		cfg.MinArm = DefaultTimerConfig().MinArm
	}
	if cfg.MinRearm <= 0 {
		cfg.MinRearm = DefaultTimerConfig().MinRearm
	}
	return &AdvanceTimer{cfg: cfg, fire: fire, enabled: true}
}

// SetEnabled toggles auto-advance. Disabling cancels any pending
// deadline; enabling does not arm by itself - the controller re-arms for
// the current clip.
func (t *AdvanceTimer) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if !enabled {
		t.cancelLocked()
	}
}

// Enabled reports whether auto-advance is on.
func (t *AdvanceTimer) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

// Arm cancels any pending deadline and schedules one for the clip from
// its nominal duration. A no-op while auto-advance is disabled.
func (t *AdvanceTimer) Arm(clip twitch.Clip) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelLocked()
	if !t.enabled {
		return
	}

	d := secondsToDuration(clip.Duration) - t.cfg.Lead
	if d < t.cfg.MinArm {
		d = t.cfg.MinArm
	}
	t.armLocked(clip, d)
}

// Cancel drops any pending deadline unconditionally (manual navigation,
// broadcaster or filter change).
func (t *AdvanceTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// ObserveEnded handles an external end-of-playback report. If the report
// matches the armed clip the deadline is cancelled and true is returned
// so the caller advances immediately; stale or duplicate reports return
// false and change nothing.
func (t *AdvanceTimer) ObserveEnded(clipID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.clip.ID != clipID {
		return false
	}
	t.cancelLocked()
	return true
}

// ObserveElapsed handles an external playback-position report for the
// armed clip: the deadline is re-derived from the clamped remaining time
// so the schedule tracks observed reality (seeks) instead of the nominal
// duration. Reports for any other clip are discarded.
func (t *AdvanceTimer) ObserveElapsed(clipID string, elapsedSeconds float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.armed || t.clip.ID != clipID {
		return false
	}

	remaining := t.clip.Duration - elapsedSeconds
	if remaining < 0 {
		remaining = 0
	}

	d := secondsToDuration(remaining) - t.cfg.Lead
	if d < t.cfg.MinRearm {
		d = t.cfg.MinRearm
	}

	clip := t.clip
	t.cancelLocked()
	t.armLocked(clip, d)
	return true
}

// Armed returns the armed clip id and deadline, if a deadline is pending.
func (t *AdvanceTimer) Armed() (clipID string, deadline time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return "", time.Time{}, false
	}
	return t.clip.ID, t.deadline, true
}

// armLocked schedules the deadline. Caller holds t.mu and has cancelled
// any previous deadline.
func (t *AdvanceTimer) armLocked(clip twitch.Clip, d time.Duration) {
	t.seq++
	seq := t.seq
	t.armed = true
	t.clip = clip
	t.deadline = time.Now().Add(d)
	t.timer = time.AfterFunc(d, func() {
		t.fired(seq, clip.ID)
	})
}

// fired runs on the timer goroutine when a deadline elapses. The sequence
// check guards against a deadline that was cancelled or re-armed after
// AfterFunc already committed to running.
func (t *AdvanceTimer) fired(seq uint64, clipID string) {
	t.mu.Lock()
	if !t.armed || t.seq != seq {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.timer = nil
	t.mu.Unlock()

	t.fire(clipID)
}

func (t *AdvanceTimer) cancelLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.armed = false
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
