package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwagner-iiot/moldpress-monitor/internal/alerts"
	"github.com/lwagner-iiot/moldpress-monitor/internal/metrics"
	"github.com/lwagner-iiot/moldpress-monitor/internal/telemetry"
)

// Prom exports engine telemetry as Prometheus metrics. It implements
// engine.Observer.
type Prom struct {
	temperature       prometheus.Gauge
	pressure          prometheus.Gauge
	vibration         prometheus.Gauge
	healthIndex       prometheus.Gauge
	oee               prometheus.Gauge
	tempDeviation     prometheus.Gauge
	pressureDeviation prometheus.Gauge

	ticks   prometheus.Counter
	cycles  prometheus.Counter
	rejects prometheus.Counter
	alerts  *prometheus.CounterVec
}

// NewProm creates and registers the engine collectors on the default
// registry.
func NewProm() *Prom {
	p := &Prom{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_temperature_celsius",
			Help: "Current simulated process temperature.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_pressure_bar",
			Help: "Current simulated hydraulic pressure.",
		}),
		vibration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_vibration_mm_s",
			Help: "Current simulated vibration level.",
		}),
		healthIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_health_index",
			Help: "Weighted process health index (0-100).",
		}),
		oee: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_oee_percent",
			Help: "Overall equipment effectiveness.",
		}),
		tempDeviation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_temperature_deviation_percent",
			Help: "Temperature deviation from target during vulcanization phases.",
		}),
		pressureDeviation: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "moldpress_pressure_deviation_percent",
			Help: "Pressure deviation from target during pressing.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moldpress_ticks_total",
			Help: "Total engine ticks processed.",
		}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moldpress_cycles_total",
			Help: "Total completed press cycles.",
		}),
		rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moldpress_rejects_total",
			Help: "Total scrap parts recorded.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moldpress_alerts_total",
			Help: "Alerts accepted by the alert manager, by severity.",
		}, []string{"severity"}),
	}

	prometheus.MustRegister(
		p.temperature, p.pressure, p.vibration,
		p.healthIndex, p.oee, p.tempDeviation, p.pressureDeviation,
		p.ticks, p.cycles, p.rejects, p.alerts,
	)
	return p
}

// ObserveTick publishes the per-tick gauges.
func (p *Prom) ObserveTick(s telemetry.Sample, h metrics.HealthSnapshot, totalCycles, rejects int) {
	p.temperature.Set(s.Temperature)
	p.pressure.Set(s.Pressure)
	p.vibration.Set(s.Vibration)
	p.healthIndex.Set(h.HealthIndex)
	p.oee.Set(h.OEE)
	p.tempDeviation.Set(h.TempDeviation)
	p.pressureDeviation.Set(h.PressureDeviation)
	p.ticks.Inc()
}

// CycleCompleted counts a finished press cycle.
func (p *Prom) CycleCompleted(durationTicks int) {
	p.cycles.Inc()
}

// RejectRecorded counts a scrap part.
func (p *Prom) RejectRecorded() {
	p.rejects.Inc()
}

// AlertAccepted counts an accepted alert by severity.
func (p *Prom) AlertAccepted(severity alerts.Severity) {
	p.alerts.WithLabelValues(string(severity)).Inc()
}
