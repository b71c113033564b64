package touch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/magicmoused/internal/inputcodes"
)

func absEvent(code uint16, value int32) inputcodes.RawEvent {
	return inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: code, Value: value}
}

func synReport() inputcodes.RawEvent {
	return inputcodes.RawEvent{Type: uint16(inputcodes.Syn), Code: inputcodes.SynReport}
}

func TestDecoder_SingleContactLifecycle(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	base := time.Now()

	f, b := d.Process(absEvent(inputcodes.AbsMtSlot, 0), base)
	assert.Nil(t, f)
	assert.Nil(t, b)

	d.Process(absEvent(inputcodes.AbsMtTrackingId, 7), base)
	d.Process(absEvent(inputcodes.AbsMtPositionX, 100), base)
	d.Process(absEvent(inputcodes.AbsMtPositionY, 200), base)
	frame, _ := d.Process(synReport(), base)

	require.NotNil(t, frame)
	require.Len(t, frame.Contacts, 1)
	assert.Equal(t, 7, frame.Contacts[0].TrackingID)
	assert.Equal(t, int32(100), frame.Contacts[0].X)
	assert.Equal(t, int32(200), frame.Contacts[0].Y)
	assert.Empty(t, frame.JustCompleted)

	later := base.Add(10 * time.Millisecond)
	d.Process(absEvent(inputcodes.AbsMtSlot, 0), later)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, inputcodes.TerminatedTrackingID), later)
	frame2, _ := d.Process(synReport(), later)

	require.NotNil(t, frame2)
	assert.Empty(t, frame2.Contacts)
	require.Len(t, frame2.JustCompleted, 1)
	assert.Equal(t, 7, frame2.JustCompleted[0].TrackingID)
}

func TestDecoder_TwoSlotsIndependent(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 1), now)
	d.Process(absEvent(inputcodes.AbsMtPositionX, 10), now)
	d.Process(absEvent(inputcodes.AbsMtSlot, 1), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 2), now)
	d.Process(absEvent(inputcodes.AbsMtPositionX, 20), now)
	frame, _ := d.Process(synReport(), now)

	require.NotNil(t, frame)
	require.Len(t, frame.Contacts, 2)
}

func TestDecoder_BufferedPartialDiscardedWithoutTrackingID(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	// Position update arrives for slot 0 before any ABS_MT_TRACKING_ID.
	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtPositionX, 555), now)
	frame, _ := d.Process(synReport(), now)
	require.NotNil(t, frame)
	assert.Empty(t, frame.Contacts, "buffered partial state must not surface as a contact")

	// A later tracking id on the same slot starts a fresh contact, not the
	// stale buffered X.
	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 9), now)
	frame2, _ := d.Process(synReport(), now)
	require.NotNil(t, frame2)
	require.Len(t, frame2.Contacts, 1)
	assert.Equal(t, int32(0), frame2.Contacts[0].X)
}

func TestDecoder_PartialMergedWhenTrackingIDArrivesLate(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtPositionX, 42), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 3), now)
	frame, _ := d.Process(synReport(), now)

	require.NotNil(t, frame)
	require.Len(t, frame.Contacts, 1)
	assert.Equal(t, int32(42), frame.Contacts[0].X)
}

func TestDecoder_DuplicateTerminationIsIdempotent(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 1), now)
	d.Process(synReport(), now)

	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, inputcodes.TerminatedTrackingID), now)
	frame, _ := d.Process(synReport(), now)
	require.NotNil(t, frame)
	require.Len(t, frame.JustCompleted, 1)

	// Second termination on the already-empty slot produces no second
	// completed contact.
	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, inputcodes.TerminatedTrackingID), now)
	frame2, _ := d.Process(synReport(), now)
	require.NotNil(t, frame2)
	assert.Empty(t, frame2.JustCompleted)
}

func TestDecoder_CoalescesSyncMarkersUnderOneMillisecond(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	d.Process(absEvent(inputcodes.AbsMtSlot, 0), now)
	d.Process(absEvent(inputcodes.AbsMtTrackingId, 1), now)
	frame1, _ := d.Process(synReport(), now)
	require.NotNil(t, frame1)

	closeFrame, _ := d.Process(synReport(), now.Add(200*time.Microsecond))
	assert.Nil(t, closeFrame, "sync markers under 1ms apart should coalesce")

	farFrame, _ := d.Process(synReport(), now.Add(5*time.Millisecond))
	assert.NotNil(t, farFrame)
}

func TestDecoder_ButtonEventBypassesContactState(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	frame, btn := d.Process(inputcodes.RawEvent{
		Type:  uint16(inputcodes.Key),
		Code:  inputcodes.BtnLeft,
		Value: 1,
	}, now)
	assert.Nil(t, frame)
	require.NotNil(t, btn)
	assert.Equal(t, inputcodes.BtnLeft, btn.Code)
	assert.True(t, btn.Pressed)
}

func TestDecoder_RelativeAxisIgnored(t *testing.T) {
	d := NewDecoder(400*time.Millisecond, false)
	now := time.Now()

	frame, btn := d.Process(inputcodes.RawEvent{
		Type:  uint16(inputcodes.Rel),
		Code:  inputcodes.RelX,
		Value: 5,
	}, now)
	assert.Nil(t, frame)
	assert.Nil(t, btn)
}

func TestContact_Pressure(t *testing.T) {
	c := Contact{TouchMajor: 510, TouchMinor: 510}
	assert.InDelta(t, 50.0, c.Pressure(), 0.001)
}

func TestDistanceMM(t *testing.T) {
	a := Contact{X: 0, Y: 0}
	b := Contact{X: int32(ResolutionX), Y: 0}
	assert.InDelta(t, 1.0, DistanceMM(a, b), 0.001)
}
