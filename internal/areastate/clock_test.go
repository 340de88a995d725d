package areastate

import (
	"testing"
	"time"
)

func TestThrottle_ImmediateFiresOnFirstPass(t *testing.T) {
	clk := newFakeClock()
	th := newThrottle(clk, 25*time.Millisecond, true)
	th.arm()
	if !th.ready() {
		t.Fatalf("immediate throttle should fire on the first pass")
	}
	th.fired()
	clk.Advance(10 * time.Millisecond)
	if th.ready() {
		t.Fatalf("fired again before the period")
	}
	clk.Advance(15 * time.Millisecond)
	if !th.ready() {
		t.Fatalf("period elapsed but not ready")
	}
}

func TestThrottle_DelayedWaitsFullPeriod(t *testing.T) {
	clk := newFakeClock()
	th := newThrottle(clk, 500*time.Millisecond, false)
	th.arm()
	if th.ready() {
		t.Fatalf("delayed throttle fired on the first pass")
	}
	clk.Advance(499 * time.Millisecond)
	if th.ready() {
		t.Fatalf("fired early")
	}
	clk.Advance(time.Millisecond)
	if !th.ready() {
		t.Fatalf("not ready after a full period")
	}
}

func TestThrottle_PauseKeepsProgress(t *testing.T) {
	clk := newFakeClock()
	th := newThrottle(clk, 500*time.Millisecond, false)
	th.arm()
	th.ready()
	clk.Advance(400 * time.Millisecond)
	th.pause()
	clk.Advance(time.Hour)
	if th.ready() {
		t.Fatalf("paused time counted toward the period")
	}
	clk.Advance(100 * time.Millisecond)
	if !th.ready() {
		t.Fatalf("progress before the pause was lost")
	}
}

func TestThrottle_UnarmedNeverFires(t *testing.T) {
	clk := newFakeClock()
	th := newThrottle(clk, 25*time.Millisecond, true)
	for i := 0; i < 3; i++ {
		if th.ready() {
			t.Fatalf("unarmed throttle fired")
		}
		clk.Advance(time.Second)
	}
	if th.armed {
		t.Fatalf("ready armed the throttle")
	}
}

func TestStopwatch_RestartAndReset(t *testing.T) {
	clk := newFakeClock()
	sw := newStopwatch(clk)
	sw.Start()
	clk.Advance(time.Second)
	sw.Restart()
	clk.Advance(time.Millisecond)
	if sw.Elapsed() != time.Millisecond {
		t.Fatalf("restart: %v", sw.Elapsed())
	}
	sw.Reset()
	clk.Advance(time.Second)
	if sw.Elapsed() != 0 || sw.Running() {
		t.Fatalf("reset should stop and zero")
	}
}
