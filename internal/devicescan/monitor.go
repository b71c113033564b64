package devicescan

import (
	"context"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Monitor watches /dev/input for node creation/removal and notifies its
// caller that the device set may have changed, so the supervisor can retry
// auto-detection after a DeviceLost without polling on a fixed timer.
//
// Adapted from the teacher's internal/features.DeviceMonitor: same
// fsnotify-driven watch-and-debounce shape, but without the package-level
// singleton (spec §9: "avoid module-level singletons; pass Config and
// channel endpoints into constructors") and without the separate polling
// fallback goroutine, since fsnotify on /dev/input is reliable on Linux.
type Monitor struct {
	watcher *fsnotify.Watcher
	changed chan struct{}
}

// NewMonitor creates a Monitor watching /dev/input. Call Run to start it.
func NewMonitor() (*Monitor, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add("/dev/input"); err != nil {
		w.Close()
		return nil, err
	}
	return &Monitor{watcher: w, changed: make(chan struct{}, 1)}, nil
}

// Changed signals (non-blocking, coalesced) whenever a node under
// /dev/input was created or removed.
func (m *Monitor) Changed() <-chan struct{} { return m.changed }

// Run drains fsnotify events, debounces bursts of them (device
// connect/disconnect commonly fires several events in quick succession),
// and forwards a single coalesced notification on Changed(). It returns
// when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	const debounce = 300 * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	defer m.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if !pending {
				pending = true
				timer.Reset(debounce)
			}

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("devicescan: watch error: %v", err)

		case <-timer.C:
			pending = false
			select {
			case m.changed <- struct{}{}:
			default:
			}
		}
	}
}
