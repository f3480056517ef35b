package startup

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/pinctrl"
)

var readAllPins = pinctrl.ReadAllPins

var runScript = func(path string) error {
	cmd := exec.Command("/bin/bash", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// BootScript drives every configured relay pin high (relay off) before the
// controller starts, so a reboot never leaves the pump or lights running.
func BootScript(cfg config.Config) string {
	var lines []string
	lines = append(lines, "#!/bin/bash", "", "# Grow controller GPIO pin configuration at boot", "")

	labels := map[int]string{
		cfg.Relay.LightSlot: "light",
		cfg.Relay.FanSlot:   "fan",
		cfg.Relay.PumpSlot:  "pump",
	}
	for slot, pin := range cfg.Relay.GPIOPins {
		if pin < 0 {
			continue
		}
		label, ok := labels[slot]
		if !ok {
			label = "spare"
		}
		lines = append(lines, fmt.Sprintf("# relay slot %d (%s)", slot, label))
		lines = append(lines, pinctrl.SetCommand(pin, "op", "pn", "dh"))
		lines = append(lines, "")
	}

	if cfg.Sensor.TemperatureSource == "dht11" {
		lines = append(lines, "# dht11 data line")
		lines = append(lines, pinctrl.SetCommand(cfg.Sensor.DHT11Pin, "ip", "pu"))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n") + "\n"
}

func WriteStartupScript(cfg config.Config) error {
	return os.WriteFile(cfg.System.BootScriptFilePath, []byte(BootScript(cfg)), 0755)
}

func StartupUnit(cfg config.Config) string {
	return fmt.Sprintf(`[Unit]
Description=Configure grow controller GPIO pins at boot
After=network.target

[Service]
Type=oneshot
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
RemainAfterExit=true

[Install]
WantedBy=multi-user.target
`, cfg.System.BootScriptFilePath)
}

func InstallStartupService(cfg config.Config) error {
	return os.WriteFile(cfg.System.OSServicePath, []byte(StartupUnit(cfg)), 0644)
}

func RunStartupScript(cfg config.Config) error {
	return runScript(cfg.System.BootScriptFilePath)
}

func MainUnit(cfg config.Config) string {
	gpioUnitName := filepath.Base(cfg.System.OSServicePath)
	execCmd := cfg.System.ExecPath
	if cfg.ConfigFile != "" {
		execCmd += " -config-file " + cfg.ConfigFile
	}

	return fmt.Sprintf(`[Unit]
Description=Grow controller main service
After=%s
Requires=%s

[Service]
Type=simple
User=%s
WorkingDirectory=%s
Environment=PATH=/usr/local/bin:/usr/bin:/bin
ExecStart=%s
Restart=on-failure
RestartSec=5s

[Install]
WantedBy=multi-user.target
`, gpioUnitName, gpioUnitName, cfg.System.ServiceUser, cfg.System.WorkingDir, execCmd)
}

func InstallMainService(cfg config.Config) error {
	return os.WriteFile(cfg.System.MainServicePath, []byte(MainUnit(cfg)), 0644)
}

// CheckRelayPins reports relay pins the boot script has not left as outputs
// driven high. A relay found energised at startup means the script did not
// run or something else claimed the line.
func CheckRelayPins(cfg config.Config) error {
	states, err := readAllPins()
	if err != nil {
		return err
	}

	var errs []error
	for slot, pin := range cfg.Relay.GPIOPins {
		if pin < 0 {
			continue
		}
		ps, ok := states[pin]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("slot %d: pin %d not reported by pinctrl", slot, pin))
		case ps.Mode != "op" || ps.Level != "hi":
			errs = append(errs, fmt.Errorf("slot %d: pin %d is %s/%s, want op/hi", slot, pin, ps.Mode, ps.Level))
		}
	}
	return errors.Join(errs...)
}
