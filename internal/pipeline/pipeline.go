// Package pipeline wires the Device Reader, Multi-Touch Decoder, Gesture
// Recognizer, and Action Dispatcher into the two-task concurrency model of
// spec §5, and supervises device reconnection after a DeviceLost failure.
//
// Adapted from the teacher's internal/api.GestureService: the same
// owns-its-devices, mutex-guarded running-flag shape, but built around
// context.Context cancellation (spec §5 "Cancellation/shutdown") instead
// of the teacher's stopChan-plus-sync.Once, and around this daemon's own
// touch/gesture/action pipeline instead of its virtual touchpad relay.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/char5742/magicmoused/internal/action"
	"github.com/char5742/magicmoused/internal/config"
	"github.com/char5742/magicmoused/internal/coreerr"
	"github.com/char5742/magicmoused/internal/devicescan"
	"github.com/char5742/magicmoused/internal/gesture"
	"github.com/char5742/magicmoused/internal/inputcodes"
	"github.com/char5742/magicmoused/internal/reader"
	"github.com/char5742/magicmoused/internal/touch"
)

// channelCapacity is the raw-event channel's buffer (spec §5: "~1024").
const channelCapacity = 1024

// reopenDelay is how long the supervisor waits before reopening a device
// that reported DeviceLost.
const reopenDelay = 2 * time.Second

// Pipeline owns one run of Reader -> Decoder -> Recognizer -> Dispatcher.
type Pipeline struct {
	cfg        *config.Config
	devicePath string // overrides cfg.Device when set (--device flag)
	verbose    bool

	mu      sync.RWMutex
	running bool
}

// New constructs a Pipeline from an already-validated Config. devicePath,
// if non-empty, overrides auto-detection and cfg.Device.Path alike.
func New(cfg *config.Config, devicePath string, verbose bool) *Pipeline {
	return &Pipeline{cfg: cfg, devicePath: devicePath, verbose: verbose}
}

// IsRunning reports whether Run is currently active.
func (p *Pipeline) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// Run resolves the device, then drives the pipeline until ctx is
// cancelled. On DeviceLost it waits reopenDelay and reconnects, per spec
// §7's "supervisor reopens after a short delay". It returns a wrapped
// coreerr.ErrDeviceUnavailable if no device can be found at all.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	var changed <-chan struct{}
	if mon, err := devicescan.NewMonitor(); err != nil {
		log.Printf("pipeline: hot-plug monitor unavailable, falling back to a flat %s poll: %v", reopenDelay, err)
	} else {
		go mon.Run(ctx)
		changed = mon.Changed()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		path, err := p.resolveDevicePath()
		if err != nil {
			return err
		}

		err = p.runOnce(ctx, path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, coreerr.ErrDeviceLost) {
			return err
		}

		log.Printf("pipeline: %v; reconnecting in %s (or sooner on a device change)", err, reopenDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		case <-time.After(reopenDelay):
		}
	}
}

func (p *Pipeline) resolveDevicePath() (string, error) {
	if p.devicePath != "" {
		return p.devicePath, nil
	}
	if p.cfg.Device.Path != "" {
		return p.cfg.Device.Path, nil
	}
	if !p.cfg.Device.AutoDetect {
		return "", fmt.Errorf("%w: no device path configured and auto_detect is disabled", coreerr.ErrDeviceUnavailable)
	}
	dev, err := devicescan.First(p.cfg.Device.NamePattern)
	if err != nil {
		return "", fmt.Errorf("%w: %v", coreerr.ErrDeviceUnavailable, err)
	}
	return dev.Path, nil
}

// runOnce opens path and runs the ingest and processing tasks until ctx is
// cancelled (returns nil) or the Reader reports DeviceLost (returns that
// error so Run can decide to reconnect).
func (p *Pipeline) runOnce(ctx context.Context, path string) error {
	rd, err := reader.Open(path)
	if err != nil {
		return err
	}
	defer rd.Close()

	if err := rd.Grab(); err != nil {
		log.Printf("pipeline: could not grab %s exclusively: %v", path, err)
	}

	tapTimeout := time.Duration(p.cfg.Gesture.TapTimeoutMs) * time.Millisecond
	decoder := touch.NewDecoder(tapTimeout, p.verbose)
	recognizer := gesture.NewRecognizer(p.cfg.Thresholds())
	dispatcher := action.New(p.cfg.Actions, p.verbose)

	log.Printf("pipeline: reading %s", path)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw := make(chan inputcodes.RawEvent, channelCapacity)

	var readerErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(raw)
		readerErr = rd.Run(runCtx, raw)
	}()

	p.processLoop(runCtx, raw, decoder, recognizer, dispatcher)
	cancel()
	// Closing the device unblocks the ingest task's pending Read.
	_ = rd.Close()
	wg.Wait()

	if dropped := rd.DroppedCount(); dropped > 0 {
		log.Printf("pipeline: dropped %d raw events while reading %s", dropped, path)
	}

	if ctx.Err() != nil {
		return nil
	}
	return readerErr
}

// processLoop is the pipeline task (spec §5): it drains raw events,
// advances the Decoder and Recognizer, and dispatches the resulting
// gesture events. It returns once raw is closed or ctx is cancelled.
func (p *Pipeline) processLoop(
	ctx context.Context,
	raw <-chan inputcodes.RawEvent,
	decoder *touch.Decoder,
	recognizer *gesture.Recognizer,
	dispatcher *action.Dispatcher,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			p.handleRawEvent(ev, decoder, recognizer, dispatcher)
		}
	}
}

func (p *Pipeline) handleRawEvent(
	ev inputcodes.RawEvent,
	decoder *touch.Decoder,
	recognizer *gesture.Recognizer,
	dispatcher *action.Dispatcher,
) {
	now := time.Now()
	frame, button := decoder.Process(ev, now)

	if button != nil {
		ge := buttonEvent(*button, now)
		p.logGesture(ge)
		dispatcher.Dispatch(ge)
		return
	}
	if frame == nil {
		return
	}

	for _, ge := range recognizer.Process(*frame) {
		p.logGesture(ge)
		dispatcher.Dispatch(ge)
	}
}

func buttonEvent(b touch.ButtonEvent, now time.Time) gesture.Event {
	code := gesture.ButtonLeft
	switch b.Code {
	case inputcodes.BtnRight:
		code = gesture.ButtonRight
	case inputcodes.BtnMiddle:
		code = gesture.ButtonMiddle
	}
	return gesture.Event{Kind: gesture.KindButton, Time: now, ButtonCode: code, Pressed: b.Pressed}
}

func (p *Pipeline) logGesture(ge gesture.Event) {
	switch ge.Kind {
	case gesture.KindButton:
		if p.verbose {
			log.Printf("gesture: button %s pressed=%v", ge.ButtonCode, ge.Pressed)
		}
	case gesture.KindScroll:
		if p.verbose {
			log.Printf("gesture: scroll %s delta=%d", ge.Axis, ge.Delta)
		}
	default:
		log.Printf("gesture: %s", describeGesture(ge))
	}
}

func describeGesture(ge gesture.Event) string {
	switch ge.Kind {
	case gesture.KindTap:
		return fmt.Sprintf("tap fingers=%d pressure=%.1f", ge.FingerCount, ge.PressureAvg)
	case gesture.KindSwipe:
		return fmt.Sprintf("swipe %s distance=%.0f", ge.Direction, ge.Distance)
	case gesture.KindPinch:
		return fmt.Sprintf("pinch %s scale=%.2f", ge.PinchKind, ge.ScaleFactor)
	default:
		return "unknown"
	}
}
