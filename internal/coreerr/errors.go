// Package coreerr defines the pipeline's error taxonomy (spec §7) as
// sentinel errors so callers can branch with errors.Is/errors.As instead of
// matching on message text.
package coreerr

import "errors"

var (
	// ErrDeviceUnavailable means the device node is absent or unreadable at
	// startup. Fatal at startup; the reader may retry during runtime.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrDeviceLost means a previously-open device failed mid-session. The
	// ingest task exits; the supervisor may reopen after a delay.
	ErrDeviceLost = errors.New("device lost")

	// ErrProtocolViolation means an unexpected multi-touch event sequence
	// was observed (e.g. an update to an empty slot). Never fatal: the
	// offending event is discarded and decoder state is preserved.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrConfigInvalid means the configuration document is malformed.
	// Fatal at startup.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrActionSpawnFailure means a configured action's child process
	// failed to spawn. Never fatal: logged as a warning.
	ErrActionSpawnFailure = errors.New("action spawn failure")
)
