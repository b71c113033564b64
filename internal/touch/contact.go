// Package touch implements the Multi-Touch Decoder (spec §4.2): it applies
// Linux Multi-Touch Protocol Type B slot semantics to a raw input_event
// stream, maintains the live contact table, and emits an immutable Frame on
// each synchronization marker.
package touch

import (
	"math"
	"time"
)

// Per-axis resolution (units per millimetre) and coordinate range of the
// Magic Mouse 2 surface (spec §3).
const (
	ResolutionX = 26.0
	ResolutionY = 70.0

	MinX = -1100
	MaxX = 1258
	MinY = -1589
	MaxY = 2047
)

// Contact is one physical finger contact on the surface (spec §3).
type Contact struct {
	TrackingID int
	Slot       int

	X, Y                   int32
	StartX, StartY         int32 // position at contact creation, for total-motion/displacement math
	TouchMajor, TouchMinor int32
	Orientation            int32

	FirstContactTime time.Time
	LastUpdateTime   time.Time
	Active           bool
}

// Pressure is always derived from TouchMajor/TouchMinor rather than cached,
// so there is nothing to "recompute" when those axes change (spec §4.2).
func (c Contact) Pressure() float64 {
	return ((float64(c.TouchMajor) + float64(c.TouchMinor)) / 2) / 1020 * 100
}

// Lifetime is the duration between first contact and its last update.
func (c Contact) Lifetime() time.Duration {
	return c.LastUpdateTime.Sub(c.FirstContactTime)
}

// TotalMotion is the straight-line displacement from the contact's starting
// position to its current one, in raw coordinate units (spec §4.3: swipe
// and scroll thresholds compare against raw units, not millimetres).
func (c Contact) TotalMotion() float64 {
	dx := float64(c.X - c.StartX)
	dy := float64(c.Y - c.StartY)
	return math.Hypot(dx, dy)
}

// Displacement is the raw (dx, dy) vector from start to current position.
func (c Contact) Displacement() (dx, dy float64) {
	return float64(c.X - c.StartX), float64(c.Y - c.StartY)
}

// DistanceMM returns the straight-line distance between two contacts in
// millimetres, converting each axis through its own resolution before
// combining them (spec §4.3 "Numeric conventions").
func DistanceMM(a, b Contact) float64 {
	dxmm := float64(a.X-b.X) / ResolutionX
	dymm := float64(a.Y-b.Y) / ResolutionY
	return math.Hypot(dxmm, dymm)
}

// Centroid returns the arithmetic mean position of a set of contacts.
func Centroid(contacts []Contact) (x, y float64) {
	if len(contacts) == 0 {
		return 0, 0
	}
	for _, c := range contacts {
		x += float64(c.X)
		y += float64(c.Y)
	}
	n := float64(len(contacts))
	return x / n, y / n
}

// Frame is an immutable snapshot of all active contacts taken at one
// synchronization marker (spec §3).
type Frame struct {
	Contacts []Contact
	Time     time.Time

	// JustCompleted holds the contacts that terminated in this exact sync
	// cycle, for the gesture recognizer to accumulate across a
	// non-idle run (spec §4.3's "completed contacts ... since the last
	// Idle").
	JustCompleted []Contact
}

// ButtonEvent is the Decoder's direct EV_KEY pass-through (spec §4.2:
// button events bypass the gesture recognizer entirely).
type ButtonEvent struct {
	Code    int
	Pressed bool
}
