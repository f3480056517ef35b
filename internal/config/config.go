package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Relay struct {
	// -1 leaves a slot unbound
	GPIOPins  []int  `json:"gpio_pins"`
	LightSlot int    `json:"light_slot"`
	FanSlot   int    `json:"fan_slot"`
	PumpSlot  int    `json:"pump_slot"`
	Chip      string `json:"gpio_chip" env:"GROWPI_GPIO_CHIP"`
	Backend   string `json:"backend" env:"GROWPI_GPIO_BACKEND"` // cdev or pinctrl
}

type ADC struct {
	I2CBus    string  `json:"i2c_bus" env:"GROWPI_I2C_BUS"`
	Address   uint16  `json:"address"`
	FullScale float64 `json:"full_scale_volts"`
}

type Thermistor struct {
	Channel            int     `json:"channel"`
	DividerResistance  float64 `json:"divider_resistance"`
	NominalResistance  float64 `json:"nominal_resistance"`
	NominalTemperature float64 `json:"nominal_temperature_kelvin"`
	ThermalConstant    float64 `json:"thermal_constant"`
	Topology           string  `json:"topology"` // to_supply or to_ground
}

type SoilMoisture struct {
	Channel         int     `json:"channel"`
	Voltage100      float64 `json:"voltage_100"`
	VoltageNominal  float64 `json:"voltage_nominal"`
	MoistureNominal float64 `json:"moisture_nominal"`
}

type Sensor struct {
	TemperatureSource string `json:"temperature_source" env:"GROWPI_TEMPERATURE_SOURCE"` // thermistor or dht11
	DHT11Pin          int    `json:"dht11_pin"`
}

type Pump struct {
	FlowRateGramsPerMs float64 `json:"flow_rate_grams_per_ms"`
}

type Controller struct {
	TemperatureSetPointUpper float64 `json:"temperature_set_point_upper"`
	TemperatureSetPointLower float64 `json:"temperature_set_point_lower"`
	TemperatureLoopMins      int     `json:"temperature_loop_mins"`
	SunlightHours            int     `json:"sunlight_hours"`
	LightsOutHour            int     `json:"lights_out_hour"`
	LightLoopMins            int     `json:"light_loop_mins"`
	WateringFrequencyHours   int     `json:"watering_frequency_hours"`
	WateringAmountGrams      int     `json:"watering_amount_grams"`
	SoilLoopMins             int     `json:"soil_loop_mins"`
	WaterWithoutHistory      bool    `json:"water_without_history"`
}

type DataLogging struct {
	FrequencyMins        int    `json:"frequency_mins"`
	ImagingFrequencyMins int    `json:"imaging_frequency_mins"`
	ImagingResolution    string `json:"imaging_resolution"`
	ImagePath            string `json:"image_path"`
}

type Ventilation struct {
	FrequencyMins int `json:"frequency_mins"`
	DurationMins  int `json:"duration_mins"`
}

type Storage struct {
	Backend     string `json:"backend" env:"GROWPI_STORAGE_BACKEND"` // csv or sqlite
	HistoryPath string `json:"history_path"`
	DatalogPath string `json:"datalog_path"`
	SQLitePath  string `json:"sqlite_path" env:"GROWPI_SQLITE_PATH"`
}

type API struct {
	Listen string `json:"listen" env:"GROWPI_API_LISTEN"`
}

type MQTT struct {
	Broker      string `json:"broker" env:"GROWPI_MQTT_BROKER"`
	ClientID    string `json:"client_id"`
	TopicPrefix string `json:"topic_prefix"`
}

type Datadog struct {
	Enabled   bool     `json:"enabled" env:"GROWPI_DATADOG_ENABLED"`
	AgentAddr string   `json:"agent_addr" env:"DD_AGENT_ADDR"`
	Namespace string   `json:"namespace"`
	Tags      []string `json:"tags"`
}

type Ntfy struct {
	Topic string `json:"topic" env:"GROWPI_NTFY_TOPIC"`
}

type System struct {
	BootScriptFilePath string `json:"boot_script_file_path"`
	OSServicePath      string `json:"os_service_path"`
	MainServicePath    string `json:"main_service_path"`
	ServiceUser        string `json:"service_user"`
	WorkingDir         string `json:"working_dir"`
	ExecPath           string `json:"exec_path"`
}

type Config struct {
	ConfigFile string        `json:"-"`
	LogLevel   zerolog.Level `json:"-"`

	LogLevelName      string  `json:"log_level" env:"GROWPI_LOG_LEVEL"`
	LogFile           string  `json:"log_file" env:"GROWPI_LOG_FILE"`
	BoardLogicLevel   float64 `json:"board_logic_level"`
	LockTimeoutSecs   int     `json:"lock_timeout_secs"`
	PumpSafetyMaxSecs int     `json:"pump_safety_max_secs"`

	Relay        Relay        `json:"relay"`
	ADC          ADC          `json:"adc"`
	Thermistor   Thermistor   `json:"thermistor"`
	SoilMoisture SoilMoisture `json:"soil_moisture"`
	Sensor       Sensor       `json:"sensor"`
	Pump         Pump         `json:"pump"`
	Controller   Controller   `json:"controller"`
	DataLogging  DataLogging  `json:"data_logging"`
	Ventilation  Ventilation  `json:"ventilation"`
	Storage      Storage      `json:"storage"`
	API          API          `json:"api"`
	MQTT         MQTT         `json:"mqtt"`
	Datadog      Datadog      `json:"datadog"`
	Ntfy         Ntfy         `json:"ntfy"`
	System       System       `json:"system"`
}

// Default mirrors the reference grow box wiring: relays on BCM 17, 27 and 22
// behind an active-low board, a 10k NTC thermistor on ADS1115 channel 0.
func Default() Config {
	return Config{
		LogLevelName:      "info",
		LogFile:           "/var/log/grow-controller.log",
		BoardLogicLevel:   3.3,
		LockTimeoutSecs:   150,
		PumpSafetyMaxSecs: 120,
		Relay: Relay{
			GPIOPins:  []int{17, 27, 22, -1},
			LightSlot: 0,
			FanSlot:   1,
			PumpSlot:  2,
			Chip:      "gpiochip0",
			Backend:   "cdev",
		},
		ADC: ADC{
			Address:   0x48,
			FullScale: 4.096,
		},
		Thermistor: Thermistor{
			Channel:            0,
			DividerResistance:  9700,
			NominalResistance:  10000,
			NominalTemperature: 298.15,
			ThermalConstant:    3950,
			Topology:           "to_supply",
		},
		SoilMoisture: SoilMoisture{
			Channel:         1,
			Voltage100:      1.1,
			VoltageNominal:  1.9,
			MoistureNominal: 0.4,
		},
		Sensor: Sensor{
			TemperatureSource: "thermistor",
			DHT11Pin:          4,
		},
		Pump: Pump{
			FlowRateGramsPerMs: 0.025,
		},
		Controller: Controller{
			TemperatureSetPointUpper: 28,
			TemperatureSetPointLower: 24,
			TemperatureLoopMins:      5,
			SunlightHours:            14,
			LightsOutHour:            20,
			LightLoopMins:            5,
			WateringFrequencyHours:   24,
			WateringAmountGrams:      200,
			SoilLoopMins:             60,
		},
		DataLogging: DataLogging{
			FrequencyMins:        10,
			ImagingFrequencyMins: 60,
			ImagingResolution:    "1080p",
			ImagePath:            "./growpi.image.jpeg",
		},
		Ventilation: Ventilation{
			FrequencyMins: 60,
			DurationMins:  5,
		},
		Storage: Storage{
			Backend:     "csv",
			HistoryPath: "./growpi.history.csv",
			DatalogPath: "./growpi.datalog.csv",
			SQLitePath:  "data/growpi.db",
		},
		API: API{
			Listen: "0.0.0.0:2205",
		},
		MQTT: MQTT{
			ClientID:    "grow-controller",
			TopicPrefix: "growpi",
		},
		Datadog: Datadog{
			AgentAddr: "127.0.0.1:8125",
			Namespace: "growpi.",
		},
		System: System{
			BootScriptFilePath: "/usr/local/bin/growpi-gpio-init.sh",
			OSServicePath:      "/etc/systemd/system/growpi-gpio-init.service",
			MainServicePath:    "/etc/systemd/system/grow-controller.service",
			ServiceUser:        "pi",
			WorkingDir:         "/home/pi/grow-controller",
			ExecPath:           "/usr/local/bin/grow-controller",
		},
	}
}

func Load() Config {
	cfg := Default()
	var logLevel string

	flag.StringVar(&cfg.ConfigFile, "config-file", "growpi.json", "Path to controller config file")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flag.Parse()

	if err := LoadFile(cfg.ConfigFile, &cfg); err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	if err := env.Parse(&cfg); err != nil {
		panic("Failed to parse environment: " + err.Error())
	}
	if logLevel != "" {
		cfg.LogLevelName = logLevel
	}
	cfg.LogLevel = ParseLogLevel(cfg.LogLevelName)

	if err := cfg.Validate(); err != nil {
		panic("Invalid config: " + err.Error())
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}
	return cfg
}

// LoadFile decodes path over cfg, keeping values the file does not set.
func LoadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func ParseLogLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// relayPins maps each bound pin to the first slot using it.
func relayPins(pins []int) map[int]int {
	used := map[int]int{}
	for slot, pin := range pins {
		if pin < 0 {
			continue
		}
		if _, exists := used[pin]; !exists {
			used[pin] = slot
		}
	}
	return used
}

// Warnings lists problems that cost a relay slot but leave the controller
// usable. A pin repeated across slots stays bound to the first slot only.
func (cfg *Config) Warnings() []string {
	var out []string
	used := map[int]int{}
	for slot, pin := range cfg.Relay.GPIOPins {
		if pin < 0 {
			continue
		}
		if other, exists := used[pin]; exists {
			out = append(out, fmt.Sprintf("relay.gpio_pins slots %d and %d both use pin %d, slot %d stays unbound", other, slot, pin, slot))
			continue
		}
		used[pin] = slot
	}
	return out
}

// Validate reports every problem at once.
func (cfg *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if cfg.BoardLogicLevel <= 0 {
		add("board_logic_level must be positive")
	}
	if cfg.LockTimeoutSecs <= 0 {
		add("lock_timeout_secs must be positive")
	}
	// the pump runs while the program state is held, so every other waiter
	// must be able to outlast the longest allowed pump run
	if cfg.PumpSafetyMaxSecs <= 0 {
		add("pump_safety_max_secs must be positive")
	} else if cfg.LockTimeoutSecs <= cfg.PumpSafetyMaxSecs {
		add("lock_timeout_secs %d must exceed pump_safety_max_secs %d", cfg.LockTimeoutSecs, cfg.PumpSafetyMaxSecs)
	}

	usedPins := relayPins(cfg.Relay.GPIOPins)
	for name, slot := range map[string]int{
		"light_slot": cfg.Relay.LightSlot,
		"fan_slot":   cfg.Relay.FanSlot,
		"pump_slot":  cfg.Relay.PumpSlot,
	} {
		if slot < 0 || slot >= len(cfg.Relay.GPIOPins) {
			add("relay.%s %d out of range (%d slots)", name, slot, len(cfg.Relay.GPIOPins))
		}
	}
	switch cfg.Relay.Backend {
	case "cdev", "pinctrl":
	default:
		add("relay.backend must be cdev or pinctrl, got %q", cfg.Relay.Backend)
	}

	if cfg.Thermistor.Topology != "to_supply" && cfg.Thermistor.Topology != "to_ground" {
		add("thermistor.topology must be to_supply or to_ground, got %q", cfg.Thermistor.Topology)
	}
	for name, ch := range map[string]int{"thermistor.channel": cfg.Thermistor.Channel, "soil_moisture.channel": cfg.SoilMoisture.Channel} {
		if ch < 0 || ch > 3 {
			add("%s %d not in [0,3]", name, ch)
		}
	}

	switch cfg.Sensor.TemperatureSource {
	case "thermistor":
	case "dht11":
		if _, clash := usedPins[cfg.Sensor.DHT11Pin]; clash {
			add("sensor.dht11_pin %d is also a relay pin", cfg.Sensor.DHT11Pin)
		}
	default:
		add("sensor.temperature_source must be thermistor or dht11, got %q", cfg.Sensor.TemperatureSource)
	}

	c := cfg.Controller
	if c.TemperatureSetPointLower > c.TemperatureSetPointUpper {
		add("controller.temperature_set_point_lower %.1f above upper %.1f", c.TemperatureSetPointLower, c.TemperatureSetPointUpper)
	}
	if c.SunlightHours < 0 || c.SunlightHours > 24 {
		add("controller.sunlight_hours %d not in [0,24]", c.SunlightHours)
	}
	if c.LightsOutHour < 0 || c.LightsOutHour > 23 {
		add("controller.lights_out_hour %d not in [0,23]", c.LightsOutHour)
	}
	if c.TemperatureLoopMins <= 0 || c.LightLoopMins <= 0 || c.SoilLoopMins <= 0 {
		add("controller loop intervals must be positive")
	}
	if c.WateringAmountGrams < 0 {
		add("controller.watering_amount_grams must not be negative")
	}
	if cfg.Ventilation.FrequencyMins < 0 || cfg.Ventilation.DurationMins < 0 {
		add("ventilation frequency and duration must not be negative")
	}
	if cfg.DataLogging.FrequencyMins < 0 || cfg.DataLogging.ImagingFrequencyMins < 0 {
		add("data_logging frequencies must not be negative")
	}

	switch cfg.Storage.Backend {
	case "csv", "sqlite":
	default:
		add("storage.backend must be csv or sqlite, got %q", cfg.Storage.Backend)
	}

	return errors.Join(errs...)
}
