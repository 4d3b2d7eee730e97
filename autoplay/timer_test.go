package autoplay

import (
	"testing"
	"time"

	"cliploop/twitch"
)

// Timing constants shrunk so the deadline math runs in milliseconds.
func testTimerConfig() TimerConfig {
	return TimerConfig{
		Lead:     20 * time.Millisecond,
		MinArm:   10 * time.Millisecond,
		MinRearm: 5 * time.Millisecond,
	}
}

func newTestTimer(cfg TimerConfig) (*AdvanceTimer, chan string) {
	fired := make(chan string, 8)
	return NewAdvanceTimer(cfg, func(clipID string) { fired <- clipID }), fired
}

func waitFire(t *testing.T, fired chan string, within time.Duration) string {
	t.Helper()
	select {
	case id := <-fired:
		return id
	case <-time.After(within):
		t.Fatal("timer did not fire")
		return ""
	}
}

func assertNoFire(t *testing.T, fired chan string, within time.Duration) {
	t.Helper()
	select {
	case id := <-fired:
		t.Fatalf("unexpected fire for %q", id)
	case <-time.After(within):
	}
}

func TestTimerFiresBeforeNominalEnd(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	// 100ms clip, 20ms lead: deadline at ~80ms.
	timer.Arm(twitch.Clip{ID: "x", Duration: 0.1})

	start := time.Now()
	if id := waitFire(t, fired, time.Second); id != "x" {
		t.Errorf("fired for %q, want x", id)
	}
	elapsed := time.Since(start)
	if elapsed >= 100*time.Millisecond {
		t.Errorf("fired after nominal end: %v", elapsed)
	}

	// Exactly one fire per armed clip.
	assertNoFire(t, fired, 150*time.Millisecond)
}

func TestTimerZeroDurationUsesFloor(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "z", Duration: 0})
	if id := waitFire(t, fired, time.Second); id != "z" {
		t.Errorf("fired for %q, want z", id)
	}
}

func TestTimerDisabledNeverArms(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())
	timer.SetEnabled(false)

	timer.Arm(twitch.Clip{ID: "x", Duration: 0.01})
	if _, _, ok := timer.Armed(); ok {
		t.Error("disabled timer should not arm")
	}
	assertNoFire(t, fired, 100*time.Millisecond)
}

func TestTimerDisableCancelsPending(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "x", Duration: 0.05})
	timer.SetEnabled(false)
	assertNoFire(t, fired, 150*time.Millisecond)
}

func TestTimerCancelPreventsFire(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "x", Duration: 0.05})
	timer.Cancel()
	assertNoFire(t, fired, 150*time.Millisecond)

	if _, _, ok := timer.Armed(); ok {
		t.Error("cancelled timer should not stay armed")
	}
}

func TestTimerObserveElapsedExtendsDeadline(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	// 100ms clip, first deadline at ~80ms.
	timer.Arm(twitch.Clip{ID: "x", Duration: 0.1})

	// Report playback barely started: remaining 90ms, new deadline ~70ms
	// from now but re-derived, so it pushes past the original 80ms mark.
	time.Sleep(40 * time.Millisecond)
	if !timer.ObserveElapsed("x", 0.01) {
		t.Fatal("ObserveElapsed for armed clip should re-arm")
	}

	// Old deadline (~40ms from now) must not fire; the re-derived one does.
	start := time.Now()
	waitFire(t, fired, time.Second)
	if since := time.Since(start); since < 50*time.Millisecond {
		t.Errorf("fired too early after re-arm: %v", since)
	}
}

func TestTimerObserveElapsedNearEndUsesRearmFloor(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	// Remaining 10ms is inside the 20ms lead; the 5ms re-arm floor applies.
	timer.Arm(twitch.Clip{ID: "x", Duration: 10})
	if !timer.ObserveElapsed("x", 9.99) {
		t.Fatal("ObserveElapsed should re-arm")
	}

	waitFire(t, fired, time.Second)
}

func TestTimerObserveElapsedIgnoresOtherClip(t *testing.T) {
	timer, _ := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "x", Duration: 60})
	if timer.ObserveElapsed("y", 5) {
		t.Error("report for another clip should be ignored")
	}

	if clipID, _, ok := timer.Armed(); !ok || clipID != "x" {
		t.Errorf("Armed() = %v, %v; want x armed", clipID, ok)
	}
}

func TestTimerObserveEnded(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "x", Duration: 60})

	if timer.ObserveEnded("y") {
		t.Error("ended report for another clip should be ignored")
	}
	if !timer.ObserveEnded("x") {
		t.Error("ended report for armed clip should cancel and report")
	}
	// Duplicate ended report after the cancel.
	if timer.ObserveEnded("x") {
		t.Error("duplicate ended report should be ignored")
	}

	assertNoFire(t, fired, 50*time.Millisecond)
}

func TestTimerRearmSameClipNoDoubleFire(t *testing.T) {
	timer, fired := newTestTimer(testTimerConfig())

	timer.Arm(twitch.Clip{ID: "x", Duration: 0.04})
	// Re-arm for the same clip; the superseded deadline must not fire too.
	if !timer.ObserveElapsed("x", 0) {
		t.Fatal("ObserveElapsed should re-arm")
	}

	waitFire(t, fired, time.Second)
	assertNoFire(t, fired, 100*time.Millisecond)
}
