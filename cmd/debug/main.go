package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/thatsimonsguy/grow-controller/db"
	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/system/startup"
)

func main() {
	DebugCLI()
}

func DebugCLI() {
	var addr, command, device, state, configPath, dbPath string
	var grams, n int
	flag.StringVar(&addr, "addr", "http://localhost:2205", "Base URL of the controller API")
	flag.StringVar(&command, "cmd", "", "Command to run: switch, toggle, state, water, capture, sensors, history, init-config, boot-script, install-service, import-csv")
	flag.StringVar(&device, "device", "", "Device for relay commands: light, fan, pump")
	flag.StringVar(&state, "state", "", "State for switch: on, off")
	flag.IntVar(&grams, "grams", 0, "Grams of water for water (0 uses the configured amount)")
	flag.IntVar(&n, "n", 10, "Number of records for history")
	flag.StringVar(&configPath, "config-file", "growpi.json", "Path to controller config file")
	flag.StringVar(&dbPath, "db", "", "SQLite database for import-csv (defaults to the configured path)")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of growpi-debug:")
		fmt.Println("  -addr string\tBase URL of the controller API (default 'http://localhost:2205')")
		fmt.Println("  -cmd string\tCommand to run:")
		fmt.Println("    \t\tswitch, toggle, state, water, capture, sensors, history (via the API)")
		fmt.Println("    \t\tinit-config, boot-script, install-service, import-csv (local)")
		fmt.Println("  -device string\tDevice for relay commands: light, fan, pump")
		fmt.Println("  -state string\tState for switch: on, off")
		fmt.Println("  -grams int\tGrams of water for water")
		fmt.Println("  -n int\tNumber of records for history (default 10)")
		fmt.Println("  -config-file string\tPath to controller config file (default 'growpi.json')")
		fmt.Println("  -db string\tSQLite database for import-csv")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	client := &http.Client{Timeout: 60 * time.Second}

	var err error
	switch command {
	case "switch":
		requireDevice(device)
		err = call(client, http.MethodPut, addr+"/api/relays/"+device, map[string]string{"state": state})
	case "toggle":
		requireDevice(device)
		err = call(client, http.MethodPost, addr+"/api/relays/"+device+"/toggle", nil)
	case "state":
		if device == "" {
			err = call(client, http.MethodGet, addr+"/api/relays", nil)
		} else {
			err = call(client, http.MethodGet, addr+"/api/relays/"+device, nil)
		}
	case "water":
		err = call(client, http.MethodPost, addr+"/api/water", map[string]int{"grams": grams})
	case "capture":
		err = call(client, http.MethodPost, addr+"/api/image", nil)
	case "sensors":
		err = call(client, http.MethodGet, addr+"/api/sensors", nil)
	case "history":
		err = call(client, http.MethodGet, fmt.Sprintf("%s/api/history?n=%d", addr, n), nil)
	case "init-config":
		err = config.Save(configPath, config.Default())
	case "boot-script":
		err = startup.WriteStartupScript(loadConfig(configPath))
	case "install-service":
		cfg := loadConfig(configPath)
		if cfg.ConfigFile, err = filepath.Abs(configPath); err != nil {
			break
		}
		if err = startup.WriteStartupScript(cfg); err == nil {
			if err = startup.InstallStartupService(cfg); err == nil {
				err = startup.InstallMainService(cfg)
			}
		}
	case "import-csv":
		cfg := loadConfig(configPath)
		if dbPath == "" {
			dbPath = cfg.Storage.SQLitePath
		}
		err = db.ImportCSVCLI(dbPath, cfg.Storage.HistoryPath, cfg.Storage.DatalogPath)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
	fmt.Printf("Command %s completed successfully\n", command)
}

func requireDevice(device string) {
	if device == "" {
		fmt.Println("Error: device is required")
		os.Exit(1)
	}
}

func loadConfig(path string) config.Config {
	cfg := config.Default()
	if err := config.LoadFile(path, &cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func call(client *http.Client, method, url string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		fmt.Println(string(bytes.TrimSpace(data)))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, url, resp.Status)
	}
	return nil
}
