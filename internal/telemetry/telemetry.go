// Package telemetry fans controller events out to Prometheus, Datadog and
// MQTT. Prometheus and Datadog calls never block; MQTT publishes are queued
// and sent by a single background worker so callers holding the program
// state are never held up by the broker.
package telemetry

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/grow-controller/internal/datadog"
	"github.com/thatsimonsguy/grow-controller/internal/fault"
	"github.com/thatsimonsguy/grow-controller/internal/metrics"
	"github.com/thatsimonsguy/grow-controller/internal/model"
	"github.com/thatsimonsguy/grow-controller/internal/mqtt"
)

const queueSize = 64

type job struct {
	name string
	fn   func(mqtt.Publisher) error
}

var (
	mu    sync.Mutex
	queue chan job
)

// Start begins publishing queued events to p. The returned func drains the
// queue and stops the worker.
func Start(p mqtt.Publisher) (stop func()) {
	q := make(chan job, queueSize)
	done := make(chan struct{})

	mu.Lock()
	queue = q
	mu.Unlock()

	go func() {
		defer close(done)
		for j := range q {
			if err := j.fn(p); err != nil {
				log.Warn().Err(err).Str("event", j.name).Msg("Failed to publish MQTT event")
			}
		}
	}()

	return func() {
		mu.Lock()
		if queue == q {
			queue = nil
		}
		mu.Unlock()
		close(q)
		<-done
	}
}

func enqueue(name string, fn func(mqtt.Publisher) error) {
	mu.Lock()
	defer mu.Unlock()
	if queue == nil {
		return
	}
	select {
	case queue <- job{name: name, fn: fn}:
	default:
		log.Warn().Str("event", name).Msg("MQTT queue full, dropping event")
	}
}

func Readings(r model.DataRecord) {
	metrics.ObserveReadings(r)
	datadog.Gauge("temperature", r.Temperature)
	datadog.Gauge("soil_moisture", r.SoilMoisture)
	enqueue("readings", func(p mqtt.Publisher) error { return p.PublishReadings(r) })
}

func Watering(r model.WateringRecord) {
	metrics.ObserveWatering(r)
	datadog.Count("waterings", 1)
	datadog.Gauge("water_grams", float64(r.Amount))
	enqueue("watering", func(p mqtt.Publisher) error { return p.PublishWatering(r) })
}

func Relay(a model.Actuator, s model.SwitchState) {
	metrics.ObserveRelay(a, s)
	v := 0.0
	if s == model.On {
		v = 1
	}
	datadog.Gauge("relay_on", v, "device:"+string(a))
	enqueue("relay", func(p mqtt.Publisher) error { return p.PublishRelay(a, s) })
}

func ImageCaptured(err error) {
	metrics.ObserveImageCapture(err)
	if err != nil {
		datadog.Count("image_capture_errors", 1)
	}
}

// CycleError records a failed control loop cycle by fault kind.
func CycleError(loop string, err error) {
	kind := string(fault.KindOf(err))
	metrics.ObserveCycleError(loop, kind)
	datadog.Count("control_cycle_errors", 1, "loop:"+loop, "kind:"+kind)
}
