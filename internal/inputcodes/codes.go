// Package inputcodes defines the Linux kernel input event wire format and
// the subset of event types/codes this daemon interprets (input-event-codes.h).
package inputcodes

// Event types (EV_*).
const (
	Syn EventType = 0x00
	Key EventType = 0x01
	Rel EventType = 0x02
	Abs EventType = 0x03
)

// EventType is the `type` field of a raw input_event.
type EventType uint16

// Synchronization codes (EV_SYN).
const (
	SynReport = 0x00
)

// Relative axis codes (EV_REL). The decoder ignores every EV_REL event by
// type (spec: the OS pointer stack already handles physical pointer
// motion); REL_X/REL_Y are used by device auto-detection to check that a
// candidate exposes pointer axes.
const (
	RelX     = 0x00
	RelY     = 0x01
	RelWheel = 0x08
	RelHWheel = 0x06
)

// Button codes (EV_KEY).
const (
	BtnLeft   = 0x110
	BtnRight  = 0x111
	BtnMiddle = 0x112
)

// Multi-touch absolute axis codes (EV_ABS), Protocol Type B.
const (
	AbsMtSlot       = 0x2f
	AbsMtTouchMajor = 0x30
	AbsMtTouchMinor = 0x31
	AbsMtOrientation = 0x34
	AbsMtPositionX  = 0x35
	AbsMtPositionY  = 0x36
	AbsMtTrackingId = 0x39
)

// MaxSlots is the number of Protocol-B slots the Magic Mouse 2 exposes.
const MaxSlots = 16

// TerminatedTrackingID is the sentinel value ABS_MT_TRACKING_ID carries when
// a contact ends.
const TerminatedTrackingID = -1
