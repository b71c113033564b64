// Package devicescan finds and watches for a Magic Mouse style input device:
// one that exposes both relative pointer axes and the absolute multi-touch
// axes on the same event node (spec §4.1 "Device selection").
package devicescan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/char5742/magicmoused/internal/inputcodes"
)

// Device describes one candidate input device node.
type Device struct {
	Name string
	Path string
}

// bitsLen covers event codes up to the ranges this daemon checks, for both
// the relative and the absolute capability buffers; the multi-touch codes (0x2f-0x39) and the relative axis codes
// (0x00-0x08) all fit in the first few bytes, but EVIOCGBIT rejects a
// buffer smaller than the kernel thinks it needs, so a generous fixed size
// is used for both.
const bitsLen = 96

// Scan enumerates /dev/input/event* nodes and returns every one whose name
// contains namePattern and which exposes REL_X, REL_Y, ABS_MT_SLOT,
// ABS_MT_POSITION_X, ABS_MT_POSITION_Y, and ABS_MT_TRACKING_ID.
func Scan(namePattern string) ([]Device, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, fmt.Errorf("devicescan: read /dev/input: %w", err)
	}

	var found []Device
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", entry.Name())

		name, ok, err := probe(path, namePattern)
		if err != nil || !ok {
			continue
		}
		found = append(found, Device{Name: name, Path: path})
	}
	return found, nil
}

// First returns the first device Scan finds, or an error if none match.
func First(namePattern string) (Device, error) {
	devices, err := Scan(namePattern)
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, fmt.Errorf("devicescan: no device matching %q with multi-touch + relative axes found", namePattern)
	}
	return devices[0], nil
}

// probe opens path, reads its name and capability bitmasks, and reports
// whether it both matches namePattern and looks like a Magic Mouse surface.
func probe(path, namePattern string) (name string, ok bool, err error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	fd := int(f.Fd())

	nameBuf := make([]byte, 256)
	if err := ioctl(fd, inputcodes.EVIOCGNAME(len(nameBuf)), &nameBuf[0]); err != nil {
		return "", false, err
	}
	name = strings.TrimRight(string(nameBuf), "\x00")
	if namePattern != "" && !strings.Contains(name, namePattern) {
		return name, false, nil
	}

	relBits := make([]byte, bitsLen)
	if err := ioctl(fd, inputcodes.EVIOCGBIT(int(inputcodes.Rel), len(relBits)), &relBits[0]); err != nil {
		return name, false, nil
	}
	absBits := make([]byte, bitsLen)
	if err := ioctl(fd, inputcodes.EVIOCGBIT(int(inputcodes.Abs), len(absBits)), &absBits[0]); err != nil {
		return name, false, nil
	}

	hasRel := hasBit(relBits, inputcodes.RelX) && hasBit(relBits, inputcodes.RelY)
	hasAbsMT := hasBit(absBits, inputcodes.AbsMtSlot) &&
		hasBit(absBits, inputcodes.AbsMtPositionX) &&
		hasBit(absBits, inputcodes.AbsMtPositionY) &&
		hasBit(absBits, inputcodes.AbsMtTrackingId)

	return name, hasRel && hasAbsMT, nil
}

func hasBit(bits []byte, code int) bool {
	byteIdx := code / 8
	bitIdx := uint(code % 8)
	if byteIdx >= len(bits) {
		return false
	}
	return bits[byteIdx]&(1<<bitIdx) != 0
}

func ioctl(fd int, req uintptr, arg *byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(arg)))
	if errno != 0 {
		return errno
	}
	return nil
}
