package gesture

import (
	"math"
	"time"

	"github.com/char5742/magicmoused/internal/touch"
)

// Thresholds holds the tuned spatial/temporal constants the recognizer
// compares contacts against (spec §6.2). Defaults live in internal/config.
type Thresholds struct {
	ScrollThreshold           float64
	SwipeThreshold            float64
	PinchThreshold            float64
	TapTimeout                time.Duration
	DebounceWindow            time.Duration
	TwoFingerTapTimeout       time.Duration
	TwoFingerTapDistanceMM    float64
	ContactPressureThreshold  float64
	SimultaneousContactWindow time.Duration
}

type state int

const (
	stateIdle state = iota
	stateSingle
	stateMulti
)

// Recognizer is the single-instance gesture state machine described in
// spec §4.3: Idle / SingleTouch / MultiTouch, transitioning on the active
// contact count of each incoming Frame.
type Recognizer struct {
	thresholds Thresholds

	state     state
	completed []touch.Contact
	prevFrame *touch.Frame

	haveLastNonScrollEmit bool
	lastNonScrollEmit     time.Time
}

// NewRecognizer constructs a Recognizer starting in the Idle state.
func NewRecognizer(t Thresholds) *Recognizer {
	return &Recognizer{thresholds: t, state: stateIdle}
}

// Process advances the state machine with one Frame and returns zero or
// more GestureEvents to dispatch, in emission order.
func (r *Recognizer) Process(frame touch.Frame) []Event {
	n := len(frame.Contacts)
	var out []Event

	switch r.state {
	case stateIdle:
		switch {
		case n == 1:
			r.state = stateSingle
			r.completed = nil
		case n >= 2:
			r.state = stateMulti
			r.completed = nil
			fc := frame
			r.prevFrame = &fc
		}

	case stateSingle:
		r.completed = append(r.completed, frame.JustCompleted...)
		switch {
		case n == 0:
			out = append(out, r.evaluateRelease(frame.Time)...)
			r.state = stateIdle
		case n >= 2:
			r.state = stateMulti
			fc := frame
			r.prevFrame = &fc
		}

	case stateMulti:
		r.completed = append(r.completed, frame.JustCompleted...)
		if n >= 2 {
			if ev, ok := r.evaluateScroll(frame); ok {
				out = append(out, ev)
			}
			fc := frame
			r.prevFrame = &fc
		}
		if n == 0 {
			out = append(out, r.evaluateRelease(frame.Time)...)
			r.state = stateIdle
			r.prevFrame = nil
		}
	}

	return out
}

// evaluateRelease runs the release-time classification order from spec
// §4.3 (first match wins) against the contacts completed since the last
// Idle, and clears that accumulator.
func (r *Recognizer) evaluateRelease(now time.Time) []Event {
	completed := r.completed
	r.completed = nil

	if ev, ok := r.twoFingerTap(completed, now); ok {
		return r.emitDebounced(ev)
	}
	if ev, ok := r.oneFingerTap(completed, now); ok {
		return r.emitDebounced(ev)
	}
	if ev, ok := r.twoFingerSwipe(completed, now); ok {
		return r.emitDebounced(ev)
	}
	if ev, ok := r.pinch(completed, now); ok {
		return r.emitDebounced(ev)
	}
	return nil
}

// emitDebounced applies the non-scroll debounce window (spec §4.3): an
// emission inside the window since the last non-scroll emission is
// suppressed entirely, not merely delayed.
func (r *Recognizer) emitDebounced(ev Event) []Event {
	if r.haveLastNonScrollEmit && ev.Time.Sub(r.lastNonScrollEmit) < r.thresholds.DebounceWindow {
		return nil
	}
	r.haveLastNonScrollEmit = true
	r.lastNonScrollEmit = ev.Time
	return []Event{ev}
}

func (r *Recognizer) twoFingerTap(c []touch.Contact, now time.Time) (Event, bool) {
	if len(c) != 2 {
		return Event{}, false
	}
	a, b := c[0], c[1]

	if a.Lifetime() >= r.thresholds.TwoFingerTapTimeout || b.Lifetime() >= r.thresholds.TwoFingerTapTimeout {
		return Event{}, false
	}
	if touch.DistanceMM(a, b) >= r.thresholds.TwoFingerTapDistanceMM {
		return Event{}, false
	}
	pa, pb := a.Pressure(), b.Pressure()
	if pa < r.thresholds.ContactPressureThreshold || pb < r.thresholds.ContactPressureThreshold {
		return Event{}, false
	}
	gap := a.FirstContactTime.Sub(b.FirstContactTime)
	if gap < 0 {
		gap = -gap
	}
	if gap > r.thresholds.SimultaneousContactWindow {
		return Event{}, false
	}

	cx, cy := touch.Centroid(c)
	return Event{
		Kind:        KindTap,
		Time:        now,
		FingerCount: 2,
		PositionX:   cx,
		PositionY:   cy,
		PressureAvg: (pa + pb) / 2,
	}, true
}

func (r *Recognizer) oneFingerTap(c []touch.Contact, now time.Time) (Event, bool) {
	if len(c) != 1 {
		return Event{}, false
	}
	a := c[0]
	if a.Lifetime() >= r.thresholds.TapTimeout {
		return Event{}, false
	}
	if a.TotalMotion() >= r.thresholds.SwipeThreshold {
		return Event{}, false
	}
	return Event{
		Kind:        KindTap,
		Time:        now,
		FingerCount: 1,
		PositionX:   float64(a.X),
		PositionY:   float64(a.Y),
		PressureAvg: a.Pressure(),
	}, true
}

func (r *Recognizer) twoFingerSwipe(c []touch.Contact, now time.Time) (Event, bool) {
	if len(c) != 2 {
		return Event{}, false
	}
	dx1, dy1 := c[0].Displacement()
	dx2, dy2 := c[1].Displacement()
	mdx := (dx1 + dx2) / 2
	mdy := (dy1 + dy2) / 2
	mag := math.Hypot(mdx, mdy)
	if mag < r.thresholds.SwipeThreshold {
		return Event{}, false
	}

	var dir Direction
	if math.Abs(mdx) >= math.Abs(mdy) {
		if mdx >= 0 {
			dir = Right
		} else {
			dir = Left
		}
	} else {
		if mdy >= 0 {
			dir = Down
		} else {
			dir = Up
		}
	}

	return Event{Kind: KindSwipe, Time: now, FingerCount: 2, Direction: dir, Distance: mag}, true
}

func (r *Recognizer) pinch(c []touch.Contact, now time.Time) (Event, bool) {
	if len(c) != 2 {
		return Event{}, false
	}
	start0 := touch.Contact{X: c[0].StartX, Y: c[0].StartY}
	start1 := touch.Contact{X: c[1].StartX, Y: c[1].StartY}
	startDist := touch.DistanceMM(start0, start1)
	if startDist == 0 {
		return Event{}, false
	}
	endDist := touch.DistanceMM(c[0], c[1])
	ratio := endDist / startDist

	if math.Abs(ratio-1) < r.thresholds.PinchThreshold {
		return Event{}, false
	}
	kind := In
	if ratio > 1 {
		kind = Out
	}
	return Event{Kind: KindPinch, Time: now, PinchKind: kind, ScaleFactor: ratio}, true
}

// evaluateScroll implements the one exception to release-time evaluation:
// while in MultiTouch, any contact whose per-frame displacement (against
// the previous Frame) exceeds ScrollThreshold on its dominant axis
// produces an incremental Scroll event (spec §4.3, not debounced).
func (r *Recognizer) evaluateScroll(frame touch.Frame) (Event, bool) {
	if r.prevFrame == nil {
		return Event{}, false
	}
	prevByID := make(map[int]touch.Contact, len(r.prevFrame.Contacts))
	for _, c := range r.prevFrame.Contacts {
		prevByID[c.TrackingID] = c
	}

	found := false
	var bestAxis Axis
	var bestDelta float64

	for _, c := range frame.Contacts {
		prev, ok := prevByID[c.TrackingID]
		if !ok {
			continue
		}
		dx := float64(c.X - prev.X)
		dy := float64(c.Y - prev.Y)

		if math.Abs(dx) >= math.Abs(dy) {
			if math.Abs(dx) >= r.thresholds.ScrollThreshold && (!found || math.Abs(dx) > math.Abs(bestDelta)) {
				bestAxis, bestDelta, found = Horizontal, dx, true
			}
		} else {
			if math.Abs(dy) >= r.thresholds.ScrollThreshold && (!found || math.Abs(dy) > math.Abs(bestDelta)) {
				bestAxis, bestDelta, found = Vertical, dy, true
			}
		}
	}

	if !found {
		return Event{}, false
	}
	return Event{Kind: KindScroll, Time: frame.Time, Axis: bestAxis, Delta: int(bestDelta)}, true
}
