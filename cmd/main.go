package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/char5742/magicmoused/internal/action"
	"github.com/char5742/magicmoused/internal/config"
	"github.com/char5742/magicmoused/internal/coreerr"
	"github.com/char5742/magicmoused/internal/devicescan"
	"github.com/char5742/magicmoused/internal/pipeline"
)

// Exit codes (spec §6.4).
const (
	exitOK                = 0
	exitGeneric           = 1
	exitDeviceUnavailable = 2
	exitConfigInvalid     = 3
	exitMissingDependency = 4
)

func main() {
	configPath := flag.String("config", "", "configuration file path (defaults to the XDG config location)")
	devicePath := flag.String("device", "", "input device node to read, overriding auto-detection")
	verbose := flag.Bool("verbose", false, "enable per-event tracing")
	checkDeps := flag.Bool("check-deps", false, "verify external dependencies and exit")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "magicmoused: %v\n", err)
		if errors.Is(err, coreerr.ErrConfigInvalid) {
			os.Exit(exitConfigInvalid)
		}
		os.Exit(exitGeneric)
	}
	fmt.Printf("magicmoused: loaded configuration from %s\n", path)

	if *checkDeps {
		os.Exit(runCheckDeps(cfg))
	}

	os.Exit(run(cfg, *devicePath, *verbose))
}

// run starts the pipeline and blocks until it exits or a termination
// signal arrives, returning the process exit code (spec §6.4).
func run(cfg *config.Config, devicePath string, verbose bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, devicePath, verbose)

	printBanner(cfg, devicePath)

	if err := p.Run(ctx); err != nil {
		log.Printf("magicmoused: %v", err)
		if errors.Is(err, coreerr.ErrDeviceUnavailable) {
			return exitDeviceUnavailable
		}
		return exitGeneric
	}
	return exitOK
}

func printBanner(cfg *config.Config, devicePathOverride string) {
	devicePath := devicePathOverride
	switch {
	case devicePath != "":
	case cfg.Device.Path != "":
		devicePath = cfg.Device.Path
	case cfg.Device.AutoDetect:
		devicePath = fmt.Sprintf("auto-detect (%q)", cfg.Device.NamePattern)
	default:
		devicePath = "(none configured)"
	}

	log.Printf(
		"magicmoused starting: device=%s scroll_threshold=%.0f swipe_threshold=%.0f debounce_ms=%d actions=%d",
		devicePath, cfg.Gesture.ScrollThresholdRaw, cfg.Gesture.SwipeThresholdRaw, cfg.Gesture.DebounceMs, len(cfg.Actions),
	)
}

// runCheckDeps probes the external dependencies this daemon needs at
// runtime (spec §6.4 `--check-deps`), grounded on the source prototype's
// startup dependency check (original_source/src/main.rs).
func runCheckDeps(cfg *config.Config) int {
	ok := true

	if _, err := os.Stat("/dev/input"); err != nil {
		fmt.Printf("x /dev/input not accessible: %v\n", err)
		ok = false
	} else {
		fmt.Println("check: /dev/input accessible")
	}

	if cfg.Device.AutoDetect {
		if dev, err := devicescan.First(cfg.Device.NamePattern); err != nil {
			fmt.Printf("x no device matching %q found: %v\n", cfg.Device.NamePattern, err)
			ok = false
		} else {
			fmt.Printf("check: found device: %s (%s)\n", dev.Name, dev.Path)
		}
	}

	if _, err := exec.LookPath(action.SynthesisTool); err != nil {
		fmt.Printf("x %s not found on PATH - reserved actions (click, scroll_*) will fail\n", action.SynthesisTool)
		ok = false
	} else {
		fmt.Printf("check: %s found\n", action.SynthesisTool)
	}

	if !ok {
		return exitMissingDependency
	}
	return exitOK
}
