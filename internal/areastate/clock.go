package areastate

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads time.Now, which carries a monotonic reading.
var SystemClock Clock = systemClock{}

// Stopwatch accumulates elapsed time while running. Stop pauses without losing progress.
type Stopwatch struct {
	clock   Clock
	running bool
	since   time.Time
	acc     time.Duration
}

func newStopwatch(c Clock) Stopwatch { return Stopwatch{clock: c} }

func (s *Stopwatch) Running() bool { return s.running }

func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.since = s.clock.Now()
	s.running = true
}

func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	s.acc += s.clock.Now().Sub(s.since)
	s.running = false
}

func (s *Stopwatch) Reset() {
	s.running = false
	s.acc = 0
}

func (s *Stopwatch) Restart() {
	s.acc = 0
	s.since = s.clock.Now()
	s.running = true
}

func (s *Stopwatch) Elapsed() time.Duration {
	if !s.running {
		return s.acc
	}
	return s.acc + s.clock.Now().Sub(s.since)
}

// throttle gates a sub-loop. An immediate throttle fires on the first pass after
// arming; the others wait a full period.
type throttle struct {
	sw        Stopwatch
	period    time.Duration
	immediate bool
	armed     bool
	fresh     bool
}

func newThrottle(c Clock, period time.Duration, immediate bool) throttle {
	return throttle{sw: newStopwatch(c), period: period, immediate: immediate}
}

func (t *throttle) arm() {
	t.sw.Reset()
	t.armed = true
	t.fresh = true
}

// pause keeps elapsed progress so a resumed cache does not re-fire everything at once.
func (t *throttle) pause() { t.sw.Stop() }

// ready never arms the throttle; an unarmed throttle stays closed until onStart.
func (t *throttle) ready() bool {
	if !t.armed {
		return false
	}
	if t.fresh {
		t.fresh = false
		t.sw.Start()
		return t.immediate
	}
	if !t.sw.Running() {
		t.sw.Start()
	}
	return t.sw.Elapsed() >= t.period
}

func (t *throttle) fired() { t.sw.Restart() }
