package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/magicmoused/internal/action"
	"github.com/char5742/magicmoused/internal/config"
	"github.com/char5742/magicmoused/internal/gesture"
	"github.com/char5742/magicmoused/internal/inputcodes"
	"github.com/char5742/magicmoused/internal/touch"
)

func TestHandleRawEvent_ButtonBypassesRecognizerAndDispatches(t *testing.T) {
	p := &Pipeline{cfg: config.Default(), verbose: false}
	decoder := touch.NewDecoder(300*time.Millisecond, false)
	recognizer := gesture.NewRecognizer(p.cfg.Thresholds())
	dispatcher := action.New(map[string]string{"button_left": "true"}, false)

	ev := inputcodes.RawEvent{Type: uint16(inputcodes.Key), Code: inputcodes.BtnLeft, Value: 1}
	p.handleRawEvent(ev, decoder, recognizer, dispatcher)
	// No panic and no assertions on process completion: Dispatch is fire-and-forget.
}

func TestHandleRawEvent_FullTwoFingerTapFlowDispatches(t *testing.T) {
	p := &Pipeline{cfg: config.Default(), verbose: false}
	decoder := touch.NewDecoder(300*time.Millisecond, false)
	recognizer := gesture.NewRecognizer(p.cfg.Thresholds())

	dispatched := make(chan gesture.Event, 1)
	captureDispatcher := &captureDispatcher{out: dispatched}

	// feed repeats handleRawEvent's routing step by step, because
	// handleRawEvent takes a concrete *action.Dispatcher and this test needs
	// to capture what is dispatched.
	feed := func(ev inputcodes.RawEvent) {
		frame, button := decoder.Process(ev, time.Now())
		if button != nil {
			captureDispatcher.Dispatch(buttonEvent(*button, time.Now()))
			return
		}
		if frame == nil {
			return
		}
		for _, ge := range recognizer.Process(*frame) {
			captureDispatcher.Dispatch(ge)
		}
	}

	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtSlot, Value: 0})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTrackingId, Value: 1})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTouchMajor, Value: 600})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTouchMinor, Value: 600})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtSlot, Value: 1})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTrackingId, Value: 2})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtPositionX, Value: 130})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTouchMajor, Value: 600})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTouchMinor, Value: 600})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Syn), Code: inputcodes.SynReport})

	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtSlot, Value: 0})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTrackingId, Value: inputcodes.TerminatedTrackingID})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtSlot, Value: 1})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Abs), Code: inputcodes.AbsMtTrackingId, Value: inputcodes.TerminatedTrackingID})
	feed(inputcodes.RawEvent{Type: uint16(inputcodes.Syn), Code: inputcodes.SynReport})

	select {
	case ge := <-dispatched:
		assert.Equal(t, gesture.KindTap, ge.Kind)
		assert.Equal(t, 2, ge.FingerCount)
	default:
		t.Fatal("expected a dispatched two-finger tap event")
	}
}

type captureDispatcher struct {
	out chan gesture.Event
}

func (c *captureDispatcher) Dispatch(ge gesture.Event) {
	select {
	case c.out <- ge:
	default:
	}
}

func TestResolveDevicePath_ExplicitOverrideWins(t *testing.T) {
	p := New(config.Default(), "/dev/input/event7", false)
	path, err := p.resolveDevicePath()
	require.NoError(t, err)
	assert.Equal(t, "/dev/input/event7", path)
}

func TestResolveDevicePath_ErrorsWithoutAutoDetectOrPath(t *testing.T) {
	cfg := config.Default()
	cfg.Device.AutoDetect = false
	cfg.Device.Path = ""
	p := New(cfg, "", false)

	_, err := p.resolveDevicePath()
	assert.Error(t, err)
}
