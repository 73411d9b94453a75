package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/lwagner-iiot/moldpress-monitor/internal/alerts"
	"github.com/lwagner-iiot/moldpress-monitor/internal/config"
	"github.com/lwagner-iiot/moldpress-monitor/internal/metrics"
	"github.com/lwagner-iiot/moldpress-monitor/internal/press"
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
	"github.com/lwagner-iiot/moldpress-monitor/internal/telemetry"
)

// Observer receives engine events for export (Prometheus, logging). All
// callbacks run inside the tick and must not block.
type Observer interface {
	ObserveTick(s telemetry.Sample, h metrics.HealthSnapshot, totalCycles, rejects int)
	CycleCompleted(durationTicks int)
	RejectRecorded()
	AlertAccepted(severity alerts.Severity)
}

// Status is the composite read-model for external consumers.
type Status struct {
	Running        bool                   `json:"running"`
	Phase          press.Phase            `json:"-"`
	PhaseName      string                 `json:"phase"`
	PhaseElapsed   int                    `json:"phaseElapsed"`
	Temperature    float64                `json:"temperature"`
	PredictedTemp  float64                `json:"predictedTemperature"`
	Pressure       float64                `json:"pressure"`
	Vibration      float64                `json:"vibration"`
	TotalCycles    int                    `json:"totalCycles"`
	Rejects        int                    `json:"rejects"`
	LastCycleTicks int                    `json:"lastCycleTicks"`
	Health         metrics.HealthSnapshot `json:"health"`
}

// Engine owns the full tick pipeline: phase state machine, process model,
// metrics, alert manager and telemetry history. One exclusive lock covers the
// whole tick, so a new tick never starts before the previous one's writes are
// committed; readers always observe a consistent snapshot.
type Engine struct {
	mu sync.Mutex

	targets  *config.RuntimeTargets
	machine  *press.PhaseMachine
	model    *press.Model
	alertMgr *alerts.Manager
	history  *telemetry.Ring
	noise    *sim.Noise

	running      bool
	phaseElapsed int
	lastSnapshot metrics.HealthSnapshot

	observer Observer
}

// New creates an engine in the running state.
func New(cfg *config.Config, noise *sim.Noise) *Engine {
	durations := press.PhaseDurations{
		Idle:     cfg.Phases.Idle,
		Closing:  cfg.Phases.Closing,
		Heating:  cfg.Phases.Heating,
		Pressing: cfg.Phases.Pressing,
		Cooling:  cfg.Phases.Cooling,
		Opening:  cfg.Phases.Opening,
	}
	return &Engine{
		targets:  config.NewRuntimeTargets(cfg.Targets),
		machine:  press.NewPhaseMachine(durations),
		model:    press.NewModel(cfg.Targets.TargetTemp, cfg.Targets.TargetPressure, noise),
		alertMgr: alerts.NewManager(),
		history:  telemetry.NewRing(cfg.HistoryCapacity),
		noise:    noise,
		running:  true,
	}
}

// SetObserver attaches an event observer. Call before the tick loop starts.
func (e *Engine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// Tick runs one full pipeline pass: state machine, process model, metrics,
// alerts, telemetry. A paused engine ignores ticks; time does not advance.
// The returned error is an internal-consistency fault, never a threshold
// breach — breaches surface as alerts.
func (e *Engine) Tick(now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}

	phase, elapsed, cycleCompleted := e.machine.Advance()
	e.phaseElapsed = elapsed

	reading := e.model.Step(phase)
	if reading.Temperature < press.TempMin || reading.Temperature > press.TempMax {
		return fmt.Errorf("temperature %.2f outside [%.0f, %.0f] after step", reading.Temperature, press.TempMin, press.TempMax)
	}
	if reading.Pressure < press.PressureMin || reading.Pressure > press.PressureMax {
		return fmt.Errorf("pressure %.2f outside [%.0f, %.0f] after step", reading.Pressure, press.PressureMin, press.PressureMax)
	}

	if cycleCompleted {
		e.model.CompleteCycle()
		if e.observer != nil {
			e.observer.CycleCompleted(e.model.LastCycleTicks())
		}
	}

	t := e.targets.Get()
	snapshot := metrics.Evaluate(metrics.Input{
		Phase:             phase,
		Temperature:       reading.Temperature,
		Pressure:          reading.Pressure,
		Vibration:         reading.Vibration,
		TargetTemp:        t.TargetTemp,
		TargetPressure:    t.TargetPressure,
		TolerancePct:      t.TolerancePct,
		VibrationSafe:     t.VibrationSafe,
		VibrationWarning:  t.VibrationWarning,
		VibrationCritical: t.VibrationCritical,
		Running:           e.running,
		Rejects:           e.model.Rejects(),
		TotalCycles:       e.model.TotalCycles(),
	}, e.noise)
	e.lastSnapshot = snapshot

	candidates, criticalLow := alerts.Classify(alerts.Conditions{
		Pressing:          phase == press.PhasePressing,
		Temperature:       reading.Temperature,
		TargetTemp:        t.TargetTemp,
		TempDeviation:     snapshot.TempDeviation,
		Pressure:          reading.Pressure,
		TargetPressure:    t.TargetPressure,
		PressureDeviation: snapshot.PressureDeviation,
		Vibration:         reading.Vibration,
		VibrationWarning:  t.VibrationWarning,
		VibrationCritical: t.VibrationCritical,
		TolerancePct:      t.TolerancePct,
		Timestamp:         now,
	})
	for _, candidate := range candidates {
		if e.alertMgr.Offer(candidate) && e.observer != nil {
			e.observer.AlertAccepted(candidate.Severity)
		}
	}

	if e.model.MaybeReject(criticalLow) && e.observer != nil {
		e.observer.RejectRecorded()
	}

	sample := telemetry.Sample{
		Timestamp:            now,
		Temperature:          reading.Temperature,
		PredictedTemperature: reading.PredictedTemperature,
		Pressure:             reading.Pressure,
		Vibration:            reading.Vibration,
		Phase:                phase,
		TempDeviation:        snapshot.TempDeviation,
		PressureDeviation:    snapshot.PressureDeviation,
		VibrationTier:        vibrationTier(reading.Vibration, t),
	}
	e.history.Push(sample)
	if e.history.Len() > e.history.Capacity() {
		return fmt.Errorf("telemetry ring holds %d samples, capacity %d", e.history.Len(), e.history.Capacity())
	}

	if e.observer != nil {
		e.observer.ObserveTick(sample, snapshot, e.model.TotalCycles(), e.model.Rejects())
	}
	return nil
}

func vibrationTier(v float64, t config.Targets) telemetry.VibrationTier {
	switch {
	case v >= t.VibrationCritical:
		return telemetry.TierCritical
	case v >= t.VibrationWarning:
		return telemetry.TierWarning
	default:
		return telemetry.TierNone
	}
}

// SetRunning pauses or resumes ticking. No ticks are queued or replayed on
// resume.
func (e *Engine) SetRunning(running bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = running
}

// Running reports whether the engine is processing ticks.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Configure replaces the process targets. An invalid set is rejected and the
// previous valid configuration stays in effect.
func (e *Engine) Configure(t config.Targets) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.targets.Update(t); err != nil {
		return err
	}
	e.model.SetTargets(t.TargetTemp, t.TargetPressure)
	return nil
}

// Targets returns the active process targets.
func (e *Engine) Targets() config.Targets {
	return e.targets.Get()
}

// CurrentPhase returns the active press phase.
func (e *Engine) CurrentPhase() press.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.Phase()
}

// CurrentMetrics returns the most recent health snapshot.
func (e *Engine) CurrentMetrics() metrics.HealthSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot
}

// RecentAlerts returns the retained alerts, at most ten, severity descending
// then most recent first.
func (e *Engine) RecentAlerts() []alerts.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alertMgr.Recent()
}

// TelemetryHistory returns the rolling sample history, oldest first.
func (e *Engine) TelemetryHistory() []telemetry.Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Snapshot()
}

// CurrentStatus returns the composite read-model for the API and OPC UA
// surfaces.
func (e *Engine) CurrentStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	phase := e.machine.Phase()
	return Status{
		Running:        e.running,
		Phase:          phase,
		PhaseName:      phase.String(),
		PhaseElapsed:   e.phaseElapsed,
		Temperature:    e.model.Temperature(),
		PredictedTemp:  e.model.Predicted(),
		Pressure:       e.model.Pressure(),
		Vibration:      e.model.Vibration(),
		TotalCycles:    e.model.TotalCycles(),
		Rejects:        e.model.Rejects(),
		LastCycleTicks: e.model.LastCycleTicks(),
		Health:         e.lastSnapshot,
	}
}
