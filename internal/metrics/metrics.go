package metrics

import (
	"math"

	"github.com/lwagner-iiot/moldpress-monitor/internal/press"
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
)

// Status classifies the overall process condition.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Health index weights and bounds.
const (
	weightTemperature = 0.4
	weightPressure    = 0.3
	weightRejects     = 0.2
	weightVibration   = 0.1

	healthFloor   = 5.0
	healthCeiling = 100.0
	healthJitter  = 0.5

	oeeFloor   = 50.0
	oeeCeiling = 100.0
)

// Input is everything Evaluate needs for one tick. Evaluate keeps no hidden
// memory beyond the counters passed in.
type Input struct {
	Phase press.Phase

	Temperature float64
	Pressure    float64
	Vibration   float64

	TargetTemp     float64
	TargetPressure float64
	TolerancePct   float64

	VibrationSafe     float64
	VibrationWarning  float64
	VibrationCritical float64

	Running     bool
	Rejects     int
	TotalCycles int
}

// HealthSnapshot is the derived per-tick condition summary. It is recomputed
// every tick and has no independent identity.
type HealthSnapshot struct {
	HealthIndex       float64 `json:"healthIndex"`
	OEE               float64 `json:"oee"`
	TempDeviation     float64 `json:"tempDeviation"`
	PressureDeviation float64 `json:"pressureDeviation"`
	Status            Status  `json:"status"`
}

// Evaluate derives deviations, health index, OEE and status from the current
// process state and counters.
func Evaluate(in Input, noise *sim.Noise) HealthSnapshot {
	tempDev := TempDeviation(in.Phase, in.Temperature, in.TargetTemp)
	pressureDev := PressureDeviation(in.Phase, in.Pressure, in.TargetPressure)

	tempPenalty := math.Min(math.Abs(tempDev)*2, 100)
	pressurePenalty := math.Min(math.Abs(pressureDev)*2, 100)

	cycles := math.Max(1, float64(in.TotalCycles))
	rejectRatio := float64(in.Rejects) / cycles
	rejectPenalty := math.Min(rejectRatio*150, 100)

	vibrationPenalty := vibrationPenalty(in.Vibration,
		in.VibrationSafe, in.VibrationWarning, in.VibrationCritical)

	health := 100 - (weightTemperature*tempPenalty +
		weightPressure*pressurePenalty +
		weightRejects*rejectPenalty +
		weightVibration*vibrationPenalty)
	health += noise.Jitter(healthJitter)
	health = sim.Clamp(health, healthFloor, healthCeiling)

	availability := 0.70
	if in.Running {
		availability = 0.98
	}
	performance := math.Max(0.60, 0.95-math.Abs(tempDev)/1000-math.Abs(pressureDev)/1000)
	quality := math.Max(0.55, 1-rejectRatio)
	oee := sim.Clamp(availability*performance*quality*100, oeeFloor, oeeCeiling)

	return HealthSnapshot{
		HealthIndex:       health,
		OEE:               oee,
		TempDeviation:     tempDev,
		PressureDeviation: pressureDev,
		Status:            classify(health, tempDev, pressureDev, in.TolerancePct),
	}
}

// TempDeviation returns the temperature deviation percentage. Deviation is
// only defined during the vulcanization phases; elsewhere it reports zero.
func TempDeviation(phase press.Phase, temperature, target float64) float64 {
	if phase != press.PhaseHeating && phase != press.PhasePressing {
		return 0
	}
	if target == 0 {
		return 0
	}
	return (temperature - target) / target * 100
}

// PressureDeviation returns the pressure deviation percentage, defined only
// during Pressing.
func PressureDeviation(phase press.Phase, pressure, target float64) float64 {
	if phase != press.PhasePressing {
		return 0
	}
	if target == 0 {
		return 0
	}
	return (pressure - target) / target * 100
}

func vibrationPenalty(v, safe, warning, critical float64) float64 {
	switch {
	case v > critical:
		return 80
	case v > warning:
		return 40
	case v > safe:
		return 20
	default:
		return 5
	}
}

// classify derives the status as a total order over health index and
// deviation magnitude.
func classify(health, tempDev, pressureDev, tolerance float64) Status {
	maxDev := math.Max(math.Abs(tempDev), math.Abs(pressureDev))
	switch {
	case health < 60 || maxDev > 2*tolerance:
		return StatusCritical
	case health < 75 || maxDev > 1.5*tolerance:
		return StatusWarning
	case health < 85 || maxDev > tolerance:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
