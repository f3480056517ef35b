package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/db"
	"github.com/thatsimonsguy/grow-controller/internal/adc"
	"github.com/thatsimonsguy/grow-controller/internal/api"
	"github.com/thatsimonsguy/grow-controller/internal/config"
	"github.com/thatsimonsguy/grow-controller/internal/control"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/datalogcontroller"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/imagingcontroller"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/lightcontroller"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/soilcontroller"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/temperaturecontroller"
	"github.com/thatsimonsguy/grow-controller/internal/controllers/ventilationcontroller"
	"github.com/thatsimonsguy/grow-controller/internal/datadog"
	"github.com/thatsimonsguy/grow-controller/internal/dht11"
	"github.com/thatsimonsguy/grow-controller/internal/gpio"
	"github.com/thatsimonsguy/grow-controller/internal/logging"
	"github.com/thatsimonsguy/grow-controller/internal/mqtt"
	"github.com/thatsimonsguy/grow-controller/internal/notifications"
	"github.com/thatsimonsguy/grow-controller/internal/relay"
	"github.com/thatsimonsguy/grow-controller/internal/sensors"
	"github.com/thatsimonsguy/grow-controller/internal/state"
	"github.com/thatsimonsguy/grow-controller/internal/store"
	"github.com/thatsimonsguy/grow-controller/internal/telemetry"
	"github.com/thatsimonsguy/grow-controller/system/shutdown"
	"github.com/thatsimonsguy/grow-controller/system/startup"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFile)

	log.Info().
		Str("config_file", cfg.ConfigFile).
		Str("storage", cfg.Storage.Backend).
		Str("gpio_backend", cfg.Relay.Backend).
		Msg("Starting grow controller")

	datadog.InitMetrics(cfg.Datadog)
	notifications.Init(cfg.Ntfy.Topic)

	var pub mqtt.Publisher = mqtt.Nop{}
	if cfg.MQTT.Broker != "" {
		broker, err := mqtt.NewRealPublisher(cfg.MQTT)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT unavailable, telemetry will not be published")
		} else {
			pub = broker
		}
	}
	stopTelemetry := telemetry.Start(pub)

	reader, err := adc.NewADS1115(cfg.ADC.I2CBus, cfg.ADC.Address, cfg.ADC.FullScale)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ADC")
	}

	chip, err := openChip(cfg.Relay)
	if err != nil {
		log.Fatal().Err(err).Str("chip", cfg.Relay.Chip).Msg("Failed to open GPIO chip")
	}

	var dht sensors.DHT11
	if cfg.Sensor.TemperatureSource == "dht11" {
		line, err := chip.IO(cfg.Sensor.DHT11Pin)
		if err != nil {
			log.Fatal().Err(err).Int("pin", cfg.Sensor.DHT11Pin).Msg("Failed to open DHT11 data line")
		}
		dht = dht11.New(line)
	}

	if err := startup.CheckRelayPins(cfg); err != nil {
		log.Warn().Err(err).Msg("Relay pins not in their boot state")
	}

	r, err := relay.New(chip, cfg.Relay.GPIOPins)
	if err != nil {
		// unbound slots report configuration errors when switched
		log.Error().Err(err).Msg("Some relay slots could not be bound")
	}

	st, err := openStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}

	p := state.New(cfg, r, sensors.New(reader, dht, cfg), st)
	shared := state.NewShared(p, time.Duration(cfg.LockTimeoutSecs)*time.Second)

	temperaturecontroller.RunTemperatureController(shared)
	lightcontroller.RunLightController(shared)
	soilcontroller.RunSoilController(shared)
	datalogcontroller.RunDataLogController(shared)
	imagingcontroller.RunImagingController(shared)
	ventilationcontroller.RunVentilationController(shared)

	server := api.NewServer(control.New(shared))
	go func() {
		if err := server.Start(cfg.API.Listen); err != nil {
			log.Error().Err(err).Str("listen", cfg.API.Listen).Msg("API server stopped")
		}
	}()

	closers := []io.Closer{r, st, reader, chip, pub, closerFunc(func() error { datadog.Close(); return nil })}
	if d, ok := dht.(io.Closer); ok {
		closers = append(closers, d)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	log.Info().Str("signal", received.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("API shutdown incomplete")
	}
	cancel()
	stopTelemetry()

	shutdown.Shutdown(shared, 0, closers...)
}

func openChip(cfg config.Relay) (gpio.Chip, error) {
	if cfg.Backend == "pinctrl" {
		return gpio.NewPinctrlChip(), nil
	}
	return gpio.NewCdevChip(cfg.Chip)
}

func openStore(cfg config.Storage) (store.Store, error) {
	if cfg.Backend == "sqlite" {
		return db.Open(cfg.SQLitePath)
	}
	return store.NewCSV(cfg.HistoryPath, cfg.DatalogPath), nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
