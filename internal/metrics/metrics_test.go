package metrics

import (
	"math"
	"testing"

	"github.com/lwagner-iiot/moldpress-monitor/internal/press"
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
)

func nominalInput() Input {
	return Input{
		Phase:             press.PhaseHeating,
		Temperature:       165,
		Pressure:          180,
		Vibration:         3.0,
		TargetTemp:        165,
		TargetPressure:    180,
		TolerancePct:      10,
		VibrationSafe:     4.0,
		VibrationWarning:  4.5,
		VibrationCritical: 6.0,
		Running:           true,
		TotalCycles:       20,
	}
}

func TestTempDeviationOnlyDuringVulcanization(t *testing.T) {
	want := (130.0 - 165.0) / 165.0 * 100 // ~ -21.21%

	for _, phase := range []press.Phase{press.PhaseHeating, press.PhasePressing} {
		got := TempDeviation(phase, 130, 165)
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s: expected deviation %.4f, got %.4f", phase, want, got)
		}
	}
	for _, phase := range []press.Phase{press.PhaseIdle, press.PhaseClosing, press.PhaseCooling, press.PhaseOpening} {
		if got := TempDeviation(phase, 130, 165); got != 0 {
			t.Fatalf("%s: expected zero deviation, got %.4f", phase, got)
		}
	}
}

func TestPressureDeviationOnlyDuringPressing(t *testing.T) {
	want := (150.0 - 180.0) / 180.0 * 100 // ~ -16.67%

	if got := PressureDeviation(press.PhasePressing, 150, 180); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected deviation %.4f, got %.4f", want, got)
	}
	for _, phase := range []press.Phase{press.PhaseIdle, press.PhaseClosing, press.PhaseHeating, press.PhaseCooling, press.PhaseOpening} {
		if got := PressureDeviation(phase, 150, 180); got != 0 {
			t.Fatalf("%s: expected zero deviation, got %.4f", phase, got)
		}
	}
}

func TestDeviationWithZeroTargetIsZero(t *testing.T) {
	if got := TempDeviation(press.PhaseHeating, 130, 0); got != 0 {
		t.Fatalf("expected zero deviation for zero target, got %.4f", got)
	}
	if got := PressureDeviation(press.PhasePressing, 150, 0); got != 0 {
		t.Fatalf("expected zero deviation for zero target, got %.4f", got)
	}
}

func TestHealthyBaselineScoresHigh(t *testing.T) {
	snap := Evaluate(nominalInput(), sim.NewSeededNoise(1))

	if snap.HealthIndex < 95 {
		t.Fatalf("expected near-perfect health for nominal input, got %.2f", snap.HealthIndex)
	}
	if snap.Status != StatusHealthy {
		t.Fatalf("expected healthy status, got %s", snap.Status)
	}
	// availability 0.98, performance 0.95, quality 1.0
	if math.Abs(snap.OEE-93.1) > 0.01 {
		t.Fatalf("expected OEE 93.1, got %.2f", snap.OEE)
	}
}

func TestVibrationExcursionCostsEightHealthPoints(t *testing.T) {
	in := nominalInput()
	in.Vibration = 9.0

	snap := Evaluate(in, sim.NewSeededNoise(2))

	// Full vibration penalty of 80 at weight 0.1, plus jitter of at most 0.5.
	if snap.HealthIndex < 91.5 || snap.HealthIndex > 92.5 {
		t.Fatalf("expected health near 92 for a critical vibration excursion, got %.2f", snap.HealthIndex)
	}
}

func TestHealthClampsAtFloorUnderExtremes(t *testing.T) {
	in := nominalInput()
	in.Phase = press.PhasePressing
	in.Temperature = 25
	in.Pressure = 0
	in.Vibration = 9.0
	in.Rejects = 100
	in.TotalCycles = 1

	snap := Evaluate(in, sim.NewSeededNoise(3))

	if snap.HealthIndex != 5.0 {
		t.Fatalf("expected health clamped at floor 5, got %.2f", snap.HealthIndex)
	}
	if snap.OEE != 50.0 {
		t.Fatalf("expected OEE clamped at floor 50, got %.2f", snap.OEE)
	}
	if snap.Status != StatusCritical {
		t.Fatalf("expected critical status, got %s", snap.Status)
	}
}

func TestPausedPressLowersAvailability(t *testing.T) {
	in := nominalInput()
	in.Running = false

	snap := Evaluate(in, sim.NewSeededNoise(4))

	// availability 0.70, performance 0.95, quality 1.0
	if math.Abs(snap.OEE-66.5) > 0.01 {
		t.Fatalf("expected OEE 66.5 while paused, got %.2f", snap.OEE)
	}
}

func TestStatusEscalatesWithDeviation(t *testing.T) {
	tests := []struct {
		temperature float64
		want        Status
	}{
		{165.0, StatusHealthy},  // 0% deviation
		{183.2, StatusDegraded}, // ~ +11%, above tolerance
		{191.5, StatusWarning},  // ~ +16%, above 1.5x tolerance
		{206.5, StatusCritical}, // ~ +25%, above 2x tolerance
	}
	for _, tt := range tests {
		in := nominalInput()
		in.Temperature = tt.temperature

		snap := Evaluate(in, sim.NewSeededNoise(5))
		if snap.Status != tt.want {
			t.Fatalf("temperature %.1f: expected status %s, got %s (health %.2f, dev %.2f)",
				tt.temperature, tt.want, snap.Status, snap.HealthIndex, snap.TempDeviation)
		}
	}
}

func TestRejectRatioDegradesQuality(t *testing.T) {
	in := nominalInput()
	in.Rejects = 4
	in.TotalCycles = 20 // 20% scrap

	snap := Evaluate(in, sim.NewSeededNoise(6))

	// quality 0.8: OEE = 0.98 * 0.95 * 0.8 * 100
	if math.Abs(snap.OEE-74.48) > 0.01 {
		t.Fatalf("expected OEE 74.48 at 20%% scrap, got %.2f", snap.OEE)
	}
	// reject penalty 30 at weight 0.2 costs 6 points
	if snap.HealthIndex > 95 || snap.HealthIndex < 93 {
		t.Fatalf("expected health near 94 at 20%% scrap, got %.2f", snap.HealthIndex)
	}
}
