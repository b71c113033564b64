// Package action implements the Action Dispatcher (spec §4.4): it maps
// each gesture.Event to a configured action string and executes it as a
// detached child process, never blocking the pipeline on completion.
package action

import (
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/char5742/magicmoused/internal/coreerr"
	"github.com/char5742/magicmoused/internal/gesture"
)

// SynthesisTool is the external command used to realise a reserved literal
// action (spec §4.4, grounded on the xdotool invocation pattern the source
// prototype used). Overridable for tests and for non-xdotool environments.
var SynthesisTool = "xdotool"

// Dispatcher owns the gesture-key → action-string mapping and spawns the
// configured action for each GestureEvent it is given.
type Dispatcher struct {
	actions map[string]string
	verbose bool
}

// New constructs a Dispatcher from the configured action map (spec §3's
// `actions` config section; keys are the exact strings enumerated in
// spec §4.4).
func New(actions map[string]string, verbose bool) *Dispatcher {
	return &Dispatcher{actions: actions, verbose: verbose}
}

// Dispatch executes the action bound to ev's key, if any. It never blocks
// on the spawned process and never returns an error that should stop the
// pipeline: spawn failures are logged and swallowed (spec §7
// ActionSpawnFailure is a warning, not a fatal condition).
func (d *Dispatcher) Dispatch(ev gesture.Event) {
	key := ev.ActionKey()
	if key == "" {
		return
	}
	command, ok := d.actions[key]
	if !ok || strings.TrimSpace(command) == "" {
		d.debugf("no action configured for %q", key)
		return
	}

	cmd, err := buildCommand(command, ev)
	if err != nil {
		log.Printf("action: %v", err)
		return
	}

	if err := cmd.Start(); err != nil {
		log.Printf("action: %v: %s", fmt.Errorf("%w: %s", coreerr.ErrActionSpawnFailure, command), err)
		return
	}
	// Reap the child without blocking the caller; its exit status is not
	// on the critical path (spec §5: "their child processes may complete
	// in any order").
	go func() { _ = cmd.Wait() }()
}

func (d *Dispatcher) debugf(format string, args ...any) {
	if d.verbose {
		log.Printf("action: "+format, args...)
	}
}

// buildCommand turns one action string into an *exec.Cmd. Reserved
// literals synthesise pointer input via SynthesisTool; everything else is
// split on whitespace and executed directly, with no shell interpretation
// (spec §4.4, §6.3 — a deliberate departure from the source prototype's
// `sh -c` shell-out, so action strings can never inject shell
// metacharacters).
func buildCommand(command string, ev gesture.Event) (*exec.Cmd, error) {
	switch command {
	case "click":
		return exec.Command(SynthesisTool, "click", "1"), nil
	case "right_click":
		return exec.Command(SynthesisTool, "click", "3"), nil
	case "middle_click":
		return exec.Command(SynthesisTool, "click", "2"), nil
	case "scroll_vertical", "scroll_horizontal":
		return buildScrollCommand(command, ev)
	}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty action command")
	}
	return exec.Command(fields[0], fields[1:]...), nil
}

// buildScrollCommand maps a scroll GestureEvent's signed delta to the
// xdotool scroll-wheel button click sequence the source prototype used
// (button 4/5 for vertical up/down, 6/7 for horizontal right/left).
func buildScrollCommand(reserved string, ev gesture.Event) (*exec.Cmd, error) {
	delta := ev.Delta
	var button string
	switch reserved {
	case "scroll_vertical":
		if delta > 0 {
			button = "4"
		} else {
			button = "5"
		}
	case "scroll_horizontal":
		if delta > 0 {
			button = "6"
		} else {
			button = "7"
		}
	}
	steps := delta / 50
	if steps < 0 {
		steps = -steps
	}
	if steps < 1 {
		steps = 1
	}
	if steps > 10 {
		steps = 10 // cap to avoid flooding xdotool on a large single delta
	}
	return exec.Command(SynthesisTool, "click", "--repeat", strconv.Itoa(steps), button), nil
}
