package engine

import (
	"testing"
	"time"

	"github.com/lwagner-iiot/moldpress-monitor/internal/alerts"
	"github.com/lwagner-iiot/moldpress-monitor/internal/config"
	"github.com/lwagner-iiot/moldpress-monitor/internal/metrics"
	"github.com/lwagner-iiot/moldpress-monitor/internal/press"
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
	"github.com/lwagner-iiot/moldpress-monitor/internal/telemetry"
)

func testConfig() *config.Config {
	return &config.Config{
		MonitorName:     "test-press",
		TickInterval:    time.Second,
		HistoryCapacity: 60,
		Phases: config.PhaseConfig{
			Idle: 5, Closing: 3, Heating: 15, Pressing: 10, Cooling: 8, Opening: 4,
		},
		Targets: config.Targets{
			TargetTemp:        165,
			TargetPressure:    180,
			TolerancePct:      10,
			VibrationSafe:     4.0,
			VibrationWarning:  4.5,
			VibrationCritical: 6.0,
		},
	}
}

func runTicks(t *testing.T, e *Engine, start time.Time, n int) time.Time {
	t.Helper()
	now := start
	for i := 0; i < n; i++ {
		now = now.Add(time.Second)
		if err := e.Tick(now); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	return now
}

type recordingObserver struct {
	ticks   int
	cycles  int
	rejects int
	alerts  int
}

func (r *recordingObserver) ObserveTick(telemetry.Sample, metrics.HealthSnapshot, int, int) {
	r.ticks++
}
func (r *recordingObserver) CycleCompleted(int)           { r.cycles++ }
func (r *recordingObserver) RejectRecorded()              { r.rejects++ }
func (r *recordingObserver) AlertAccepted(alerts.Severity) { r.alerts++ }

func TestTickProducesBoundedState(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(1))
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	runTicks(t, e, start, 300)

	history := e.TelemetryHistory()
	if len(history) != 60 {
		t.Fatalf("expected history capped at 60 samples, got %d", len(history))
	}
	for i, s := range history {
		if s.Temperature < press.TempMin || s.Temperature > press.TempMax {
			t.Fatalf("sample %d: temperature %.2f out of range", i, s.Temperature)
		}
		if s.Pressure < press.PressureMin || s.Pressure > press.PressureMax {
			t.Fatalf("sample %d: pressure %.2f out of range", i, s.Pressure)
		}
		if i > 0 && !s.Timestamp.After(history[i-1].Timestamp) {
			t.Fatalf("sample %d: history not chronological", i)
		}
	}

	snap := e.CurrentMetrics()
	if snap.HealthIndex < 5 || snap.HealthIndex > 100 {
		t.Fatalf("health index %.2f out of bounds", snap.HealthIndex)
	}
	if snap.OEE < 50 || snap.OEE > 100 {
		t.Fatalf("OEE %.2f out of bounds", snap.OEE)
	}

	if got := len(e.RecentAlerts()); got > 10 {
		t.Fatalf("retained alerts exceed 10: %d", got)
	}
}

func TestCycleCountingFollowsPhaseDurations(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(2))
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// 45 ticks per full cycle with the default durations.
	now := runTicks(t, e, start, 45)
	st := e.CurrentStatus()
	if st.TotalCycles != 1 {
		t.Fatalf("expected 1 completed cycle after 45 ticks, got %d", st.TotalCycles)
	}
	if st.Phase != press.PhaseIdle {
		t.Fatalf("expected Idle after a full cycle, got %s", st.PhaseName)
	}
	if st.LastCycleTicks != 45 {
		t.Fatalf("expected last cycle duration 45 ticks, got %d", st.LastCycleTicks)
	}

	runTicks(t, e, now, 45)
	if got := e.CurrentStatus().TotalCycles; got != 2 {
		t.Fatalf("expected 2 completed cycles after 90 ticks, got %d", got)
	}
}

func TestPausedEngineIgnoresTicks(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(3))
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	now := runTicks(t, e, start, 10)
	before := e.CurrentStatus()
	historyLen := len(e.TelemetryHistory())

	e.SetRunning(false)
	runTicks(t, e, now, 20)

	after := e.CurrentStatus()
	if after.Running {
		t.Fatalf("engine still reports running after pause")
	}
	if after.Phase != before.Phase || after.PhaseElapsed != before.PhaseElapsed {
		t.Fatalf("phase advanced while paused: %s/%d -> %s/%d",
			before.PhaseName, before.PhaseElapsed, after.PhaseName, after.PhaseElapsed)
	}
	if after.Temperature != before.Temperature || after.Pressure != before.Pressure {
		t.Fatalf("process state changed while paused")
	}
	if got := len(e.TelemetryHistory()); got != historyLen {
		t.Fatalf("telemetry recorded while paused: %d -> %d samples", historyLen, got)
	}

	e.SetRunning(true)
	runTicks(t, e, now, 1)
	if got := len(e.TelemetryHistory()); got != historyLen+1 {
		t.Fatalf("expected one new sample after resume, got %d", got-historyLen)
	}
}

func TestConfigureRejectsInvalidTargets(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(4))
	original := e.Targets()

	bad := original
	bad.VibrationSafe = 7.0 // above warning and critical
	if err := e.Configure(bad); err == nil {
		t.Fatalf("expected invalid targets to be rejected")
	}
	if got := e.Targets(); got != original {
		t.Fatalf("previous targets lost after rejected update: %+v", got)
	}
}

func TestConfigureAppliesValidTargets(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(5))

	next := e.Targets()
	next.TargetTemp = 150
	next.TargetPressure = 160
	if err := e.Configure(next); err != nil {
		t.Fatalf("valid targets rejected: %v", err)
	}
	if got := e.Targets(); got != next {
		t.Fatalf("expected %+v, got %+v", next, got)
	}
}

func TestObserverReceivesTickEvents(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(6))
	obs := &recordingObserver{}
	e.SetObserver(obs)
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	now := runTicks(t, e, start, 90)
	if obs.ticks != 90 {
		t.Fatalf("expected 90 observed ticks, got %d", obs.ticks)
	}
	if obs.cycles != 2 {
		t.Fatalf("expected 2 observed cycle completions, got %d", obs.cycles)
	}

	e.SetRunning(false)
	runTicks(t, e, now, 10)
	if obs.ticks != 90 {
		t.Fatalf("observer saw ticks while paused: %d", obs.ticks)
	}
}

func TestStartupHeatingRaisesLowTemperatureAlert(t *testing.T) {
	e := New(testConfig(), sim.NewSeededNoise(7))
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	// First cycle starts from ambient, so early Heating ticks sit far below
	// the vulcanization window.
	runTicks(t, e, start, 9) // Idle (5) + Closing (3) + first Heating tick

	found := false
	for _, a := range e.RecentAlerts() {
		if a.Message == alerts.MsgTempCriticalLow && a.Severity == alerts.SeverityCritical {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a critical low-temperature alert during cold-start heating, got %v", e.RecentAlerts())
	}
}
