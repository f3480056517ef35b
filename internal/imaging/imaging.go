// Package imaging takes still photos of the plant with the Pi camera.
package imaging

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/device"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
)

const CaptureBinary = "/usr/bin/libcamera-jpeg"

type Resolution string

const (
	R1080p Resolution = "1080p"
	R720p  Resolution = "720p"
	R480p  Resolution = "480p"
	R360p  Resolution = "360p"
)

func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	if _, _, ok := r.size(); !ok {
		return "", fault.Configuration("parse resolution", fmt.Errorf("unknown resolution %q", s))
	}
	return r, nil
}

func (r Resolution) size() (int, int, bool) {
	switch r {
	case R1080p:
		return 1920, 1080, true
	case R720p:
		return 1280, 720, true
	case R480p:
		return 640, 480, true
	case R360p:
		return 480, 360, true
	}
	return 0, 0, false
}

// Size returns width and height in pixels. Unknown values fall back to 360p.
func (r Resolution) Size() (int, int) {
	if w, h, ok := r.size(); ok {
		return w, h
	}
	return 480, 360
}

// Command builds the capture invocation for an absolute output path.
func Command(r Resolution, absPath string) []string {
	w, h := r.Size()
	return []string{
		CaptureBinary,
		"-o", absPath,
		"-t", "1",
		"--width", strconv.Itoa(w),
		"--height", strconv.Itoa(h),
	}
}

var runCommand = func(ctx context.Context, argv []string) ([]byte, error) {
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}

// Capture writes a JPEG to path. A non-zero exit of the capture tool is
// returned as a hardware error carrying its output.
func Capture(ctx context.Context, r Resolution, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fault.Configuration("capture image", err)
	}
	argv := Command(r, abs)
	log.Debug().Strs("argv", argv).Msg("Capturing image")

	out, err := runCommand(ctx, argv)
	if err != nil {
		return fault.Hardware("capture image", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out))))
	}
	return nil
}

// SaveLatest turns the lights on, captures an image and restores the lights
// to their earlier state. The state is not held while the camera runs.
func SaveLatest(ctx context.Context, shared *state.Shared) error {
	cfg := shared.Config()
	res, err := ParseResolution(cfg.DataLogging.ImagingResolution)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to 360p")
		res = R360p
	}

	var previous model.SwitchState
	err = shared.Do("imaging lights on", func(p *state.ProgramState) error {
		s, err := device.State(p, model.Light)
		if err != nil {
			return err
		}
		previous = s
		return device.SwitchLights(p, model.On)
	})
	if err != nil {
		return err
	}

	captureErr := Capture(ctx, res, cfg.DataLogging.ImagePath)
	telemetry.ImageCaptured(captureErr)

	restoreErr := shared.Do("imaging lights restore", func(p *state.ProgramState) error {
		return device.SwitchLights(p, previous)
	})
	if captureErr != nil {
		return captureErr
	}
	if restoreErr != nil {
		return restoreErr
	}
	log.Info().Str("path", cfg.DataLogging.ImagePath).Str("resolution", string(res)).Msg("Saved latest image")
	return nil
}
