package action

import (
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/char5742/magicmoused/internal/gesture"
)

func TestBuildCommand_NonReservedSplitsOnWhitespaceNoShell(t *testing.T) {
	cmd, err := buildCommand("notify-send 'hello world'", gesture.Event{})
	require.NoError(t, err)
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"notify-send", "'hello", "world'"}, cmd.Args,
		"must split on raw whitespace, never interpret quoting like a shell would")
}

func TestBuildCommand_ReservedLiteralsUseSynthesisTool(t *testing.T) {
	old := SynthesisTool
	SynthesisTool = "xdotool"
	defer func() { SynthesisTool = old }()

	cmd, err := buildCommand("click", gesture.Event{})
	require.NoError(t, err)
	assert.Equal(t, "xdotool", cmd.Args[0])
	assert.Contains(t, cmd.Args, "click")
	assert.Contains(t, cmd.Args, "1")
}

func TestBuildCommand_EmptyCommandErrors(t *testing.T) {
	_, err := buildCommand("   ", gesture.Event{})
	assert.Error(t, err)
}

func TestDispatch_MissingActionIsSilentNoop(t *testing.T) {
	d := New(map[string]string{}, false)
	d.Dispatch(gesture.Event{Kind: gesture.KindTap, FingerCount: 1})
	// No panic, no blocking: success.
}

func TestDispatch_SpawnsDetachedProcess(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) not available in this environment")
	}
	d := New(map[string]string{"tap_1finger": "true"}, false)
	d.Dispatch(gesture.Event{Kind: gesture.KindTap, FingerCount: 1})
	// Dispatch must return promptly; give the reaping goroutine a moment.
	time.Sleep(50 * time.Millisecond)
}

func TestMain(m *testing.M) {
	os.Exit(m.Run())
}
