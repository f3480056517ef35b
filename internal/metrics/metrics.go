// Package metrics exposes controller readings and actions to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thatsimonsguy/grow-controller/internal/model"
)

var Temperature = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "growpi_temperature_celsius",
		Help: "Last measured air temperature.",
	})

var SoilMoisture = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "growpi_soil_moisture_ratio",
		Help: "Last measured soil moisture, 0 dry to 1 saturated.",
	})

var RelayState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "growpi_relay_on",
		Help: "1 while the actuator relay is energised.",
	}, []string{"device"})

var Waterings = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "growpi_waterings_total",
		Help: "Completed pump runs.",
	})

var WaterGrams = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "growpi_water_grams_total",
		Help: "Water delivered by the pump.",
	})

var CycleErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "growpi_control_cycle_errors_total",
		Help: "Control loop cycles that ended in an error.",
	}, []string{"loop", "kind"})

var ImageCaptures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "growpi_image_captures_total",
		Help: "Camera captures by result.",
	}, []string{"result"})

func init() {
	prometheus.MustRegister(
		Temperature,
		SoilMoisture,
		RelayState,
		Waterings,
		WaterGrams,
		CycleErrors,
		ImageCaptures,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveReadings(r model.DataRecord) {
	Temperature.Set(r.Temperature)
	SoilMoisture.Set(r.SoilMoisture)
}

func ObserveRelay(a model.Actuator, s model.SwitchState) {
	v := 0.0
	if s == model.On {
		v = 1
	}
	RelayState.WithLabelValues(string(a)).Set(v)
}

func ObserveWatering(r model.WateringRecord) {
	Waterings.Inc()
	WaterGrams.Add(float64(r.Amount))
	SoilMoisture.Set(r.MoistureBefore)
}

func ObserveCycleError(loop, kind string) {
	CycleErrors.WithLabelValues(loop, kind).Inc()
}

func ObserveImageCapture(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ImageCaptures.WithLabelValues(result).Inc()
}
