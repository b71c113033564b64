package touch

import (
	"log"
	"time"

	"github.com/char5742/magicmoused/internal/inputcodes"
)

// Decoder applies Multi-Touch Protocol Type B slot semantics to a raw
// input_event stream and emits a Frame on every SYN_REPORT (spec §4.2).
//
// Decoder never returns an error: malformed slot references or out-of-order
// tracking-id sequences are protocol violations it discards and logs at
// debug level, self-healing on the next well-formed event, per spec §4.2
// and §6.3 ("Decoder and Recognizer never propagate errors upward").
type Decoder struct {
	verbose bool

	currentSlot int
	contacts    [inputcodes.MaxSlots]*Contact
	// pendingPartial buffers axis updates that arrive for a slot before its
	// ABS_MT_TRACKING_ID, so a momentarily out-of-order stream doesn't lose
	// data; discarded at the next sync if the slot still has no id (spec §4.2).
	pendingPartial [inputcodes.MaxSlots]*Contact

	pendingTerminations []Contact

	completedArchive []Contact
	archiveWindow    time.Duration

	haveLastEmit bool
	lastEmitTime time.Time
	// dirty records that an ABS event arrived since the last emitted Frame.
	dirty bool
}

// NewDecoder constructs a Decoder. tapTimeout is the configured
// tap_timeout_ms; the completed-contact archive is garbage-collected on a
// window of twice that value (spec §9 "archive GC policy").
func NewDecoder(tapTimeout time.Duration, verbose bool) *Decoder {
	return &Decoder{
		archiveWindow: tapTimeout * 2,
		verbose:       verbose,
	}
}

// Process feeds one raw event into the decoder. It returns a non-nil Frame
// exactly when the event was a SYN_REPORT that produced one (subject to the
// 1ms coalescing rule below), and a non-nil ButtonEvent when the event was
// an EV_KEY button code passed straight through.
func (d *Decoder) Process(ev inputcodes.RawEvent, now time.Time) (*Frame, *ButtonEvent) {
	switch inputcodes.EventType(ev.Type) {
	case inputcodes.Abs:
		d.dirty = true
		d.handleAbs(ev, now)
		return nil, nil
	case inputcodes.Key:
		return nil, &ButtonEvent{Code: int(ev.Code), Pressed: ev.Value != 0}
	case inputcodes.Syn:
		if ev.Code == inputcodes.SynReport {
			return d.commit(now), nil
		}
		return nil, nil
	default:
		// EV_REL (mouse pointer motion) is explicitly outside the gesture
		// pipeline's scope (spec §1 Non-goals) and every other event type
		// is ignored.
		return nil, nil
	}
}

func (d *Decoder) handleAbs(ev inputcodes.RawEvent, now time.Time) {
	switch int(ev.Code) {
	case inputcodes.AbsMtSlot:
		d.currentSlot = int(ev.Value)
		if d.currentSlot < 0 || d.currentSlot >= inputcodes.MaxSlots {
			d.debugf("protocol violation: slot index %d out of range", d.currentSlot)
		}
	case inputcodes.AbsMtTrackingId:
		d.handleTrackingID(int(ev.Value), now)
	case inputcodes.AbsMtPositionX:
		d.updateContact(now, func(c *Contact) { c.X = ev.Value })
	case inputcodes.AbsMtPositionY:
		d.updateContact(now, func(c *Contact) { c.Y = ev.Value })
	case inputcodes.AbsMtTouchMajor:
		d.updateContact(now, func(c *Contact) { c.TouchMajor = ev.Value })
	case inputcodes.AbsMtTouchMinor:
		d.updateContact(now, func(c *Contact) { c.TouchMinor = ev.Value })
	case inputcodes.AbsMtOrientation:
		d.updateContact(now, func(c *Contact) { c.Orientation = ev.Value })
	}
}

func (d *Decoder) handleTrackingID(id int, now time.Time) {
	slot := d.currentSlot
	if slot < 0 || slot >= inputcodes.MaxSlots {
		return
	}

	if id == inputcodes.TerminatedTrackingID {
		c := d.contacts[slot]
		if c == nil {
			// Idempotent: a second termination on an already-empty slot is
			// a no-op, not a second completed contact (spec §4.2 edge case).
			return
		}
		c.Active = false
		c.LastUpdateTime = now
		d.pendingTerminations = append(d.pendingTerminations, *c)
		d.contacts[slot] = nil
		return
	}

	if old := d.contacts[slot]; old != nil {
		// A new tracking id replacing a live one implicitly terminates the
		// old contact first (spec §9 open question, resolved this way).
		old.Active = false
		old.LastUpdateTime = now
		d.pendingTerminations = append(d.pendingTerminations, *old)
	}

	nc := &Contact{
		TrackingID:       id,
		Slot:             slot,
		FirstContactTime: now,
		LastUpdateTime:   now,
		Active:           true,
	}
	if p := d.pendingPartial[slot]; p != nil {
		nc.X, nc.Y = p.X, p.Y
		nc.TouchMajor, nc.TouchMinor = p.TouchMajor, p.TouchMinor
		nc.Orientation = p.Orientation
		d.pendingPartial[slot] = nil
	}
	nc.StartX, nc.StartY = nc.X, nc.Y
	d.contacts[slot] = nc
}

func (d *Decoder) updateContact(now time.Time, apply func(c *Contact)) {
	slot := d.currentSlot
	if slot < 0 || slot >= inputcodes.MaxSlots {
		return
	}
	if c := d.contacts[slot]; c != nil {
		apply(c)
		c.LastUpdateTime = now
		return
	}
	if d.pendingPartial[slot] == nil {
		d.pendingPartial[slot] = &Contact{Slot: slot}
	}
	apply(d.pendingPartial[slot])
}

// commit handles one SYN_REPORT: it builds the active-contact snapshot,
// drops any buffered partial state that never acquired a tracking id, and
// archives newly completed contacts. It returns nil (suppressing emission)
// when this sync landed under a millisecond after the last emitted one with
// no ABS event in between, since that Frame would only repeat the previous
// one (spec §4.2 "Synchronization markers less than 1ms apart ...
// coalesce"). A sync that follows new ABS events is always emitted, so its
// contact changes and completed contacts reach the recognizer.
func (d *Decoder) commit(now time.Time) *Frame {
	for i := range d.pendingPartial {
		d.pendingPartial[i] = nil
	}

	completed := d.pendingTerminations
	d.pendingTerminations = nil
	if len(completed) > 0 {
		d.completedArchive = append(d.completedArchive, completed...)
		d.gcArchive(now)
	}

	if d.haveLastEmit && !d.dirty && now.Sub(d.lastEmitTime) < time.Millisecond {
		return nil
	}
	d.dirty = false
	d.haveLastEmit = true
	d.lastEmitTime = now

	active := make([]Contact, 0, inputcodes.MaxSlots)
	for _, c := range d.contacts {
		if c != nil {
			active = append(active, *c)
		}
	}

	return &Frame{
		Contacts:      active,
		Time:          now,
		JustCompleted: completed,
	}
}

func (d *Decoder) gcArchive(now time.Time) {
	if d.archiveWindow <= 0 || len(d.completedArchive) == 0 {
		return
	}
	cutoff := now.Add(-d.archiveWindow)
	kept := d.completedArchive[:0]
	for _, c := range d.completedArchive {
		if c.LastUpdateTime.After(cutoff) {
			kept = append(kept, c)
		}
	}
	d.completedArchive = kept
}

// CompletedArchive returns the recently completed contacts still within the
// GC window, for diagnostics.
func (d *Decoder) CompletedArchive() []Contact {
	return d.completedArchive
}

func (d *Decoder) debugf(format string, args ...any) {
	if d.verbose {
		log.Printf("touch: "+format, args...)
	}
}
