// Package reader implements the Device Reader (spec §4.1): it opens an
// input device node and republishes its raw input_event stream onto a
// bounded channel without decoding, filtering, or reordering anything.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/char5742/magicmoused/internal/coreerr"
	"github.com/char5742/magicmoused/internal/inputcodes"
)

const evIOCGrab = 0x40044590

// Reader owns one open device node and exclusively reads raw input_event
// records off it, in a dedicated goroutine started by Run.
type Reader struct {
	path    string
	file    *os.File
	grabbed bool

	dropped uint64
}

// Open opens path for exclusive read. Returns a wrapped coreerr.ErrDeviceUnavailable
// if the node is missing or unreadable.
func Open(path string) (*Reader, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s: %v", coreerr.ErrDeviceUnavailable, path, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", coreerr.ErrDeviceUnavailable, path, err)
	}
	return &Reader{path: path, file: f}, nil
}

// Path returns the device node this reader was opened against.
func (r *Reader) Path() string { return r.path }

// Grab requests exclusive access to the device so other processes (notably
// libinput) stop seeing its events while this daemon runs.
func (r *Reader) Grab() error {
	if r.grabbed {
		return nil
	}
	if err := unix.IoctlSetInt(int(r.file.Fd()), evIOCGrab, 1); err != nil {
		return fmt.Errorf("grab device %s: %w", r.path, err)
	}
	r.grabbed = true
	return nil
}

// Release relinquishes exclusive access previously acquired by Grab.
func (r *Reader) Release() error {
	if !r.grabbed {
		return nil
	}
	if err := unix.IoctlSetInt(int(r.file.Fd()), evIOCGrab, 0); err != nil {
		return fmt.Errorf("release device %s: %w", r.path, err)
	}
	r.grabbed = false
	return nil
}

// Close releases the device and closes its file descriptor.
func (r *Reader) Close() error {
	_ = r.Release()
	return r.file.Close()
}

// DroppedCount returns how many events have been dropped so far because the
// sink channel backpressured (spec §4.1: latency matters more than
// completeness for gesture input).
func (r *Reader) DroppedCount() uint64 { return r.dropped }

// Run reads batches of raw events forever and pushes each to sink in arrival
// order, until ctx is cancelled or the device is lost. It never mutates,
// filters, or reorders events.
//
// On transient read failure (EAGAIN, EINTR) it retries after a short
// backoff. On persistent failure it returns a wrapped coreerr.ErrDeviceLost;
// the caller (the pipeline's supervisor) may reopen the device after a
// delay.
func (r *Reader) Run(ctx context.Context, sink chan inputcodes.RawEvent) error {
	buf := make([]byte, inputcodes.Size)
	backoff := time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := r.file.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				// Close() was called as part of shutdown; this is expected.
				return nil
			}
			if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR) {
				time.Sleep(backoff)
				if backoff < 50*time.Millisecond {
					backoff *= 2
				}
				continue
			}
			return fmt.Errorf("%w: %s: %v", coreerr.ErrDeviceLost, r.path, err)
		}
		backoff = time.Millisecond

		if n != len(buf) {
			// Short read: nothing reliable to decode, discard silently.
			continue
		}

		ev, err := inputcodes.Decode(buf)
		if err != nil {
			continue
		}

		r.publish(sink, ev)
	}
}

// publish sends ev to sink, dropping the oldest buffered event (and logging
// the running drop count) if sink is full rather than blocking the read
// loop on a slow consumer. sink must have exactly one consumer for the
// evict-then-send sequence below to preserve FIFO order of what remains.
func (r *Reader) publish(sink chan inputcodes.RawEvent, ev inputcodes.RawEvent) {
	select {
	case sink <- ev:
		return
	default:
	}

	select {
	case <-sink:
		r.dropped++
		if r.dropped%128 == 1 {
			log.Printf("reader: sink full, dropped %d raw events so far", r.dropped)
		}
	default:
	}

	select {
	case sink <- ev:
	default:
		// Consumer raced us and refilled the slot; drop this event too.
		r.dropped++
	}
}
