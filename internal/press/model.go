package press

import (
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
)

// Physical bounds and model constants. The thermal and hydraulic models are
// deliberate first-order approximations, not finite-element simulations.
const (
	TempMin     = 25.0  // °C, ambient floor
	TempMax     = 220.0 // °C, platen hardware limit
	PressureMin = 0.0   // bar
	PressureMax = 260.0 // bar, hydraulic hardware limit

	// Thermal relaxation time constants in ticks.
	tauVulcanizing = 26.0 // during Heating/Pressing
	tauDefault     = 18.0

	tempNoiseMagnitude = 0.4 // °C, bounded sensor noise per tick

	// Hydraulic balance: dP = (pump - leak - relief - piston) / compliance.
	leakCoefficient = 0.065 // leak flow per bar of line pressure
	pistonFlowIdle  = 0.5
	pistonFlowOpen  = 6.0 // piston return flow during Opening
	reliefThreshold = 235.0
	reliefGain      = 0.8
	compliance      = 1.2

	// Vibration bands in mm/s.
	vibBaselineMin = 2.0
	vibBaselineMax = 4.0
	vibWarningMin  = 4.5
	vibWarningMax  = 5.5
	vibCriticalMin = 6.0
	vibCriticalMax = 10.0

	// Per-tick excursion probabilities during Pressing, mutually exclusive.
	vibCriticalProbability = 0.04
	vibWarningProbability  = 0.08

	// Chance of a scrap part when a critical low excursion fired this tick.
	rejectProbability = 0.3
)

// Reading is the process model output for one tick.
type Reading struct {
	Temperature          float64 // °C, with sensor noise
	PredictedTemperature float64 // °C, noise-free relaxation step
	Pressure             float64 // bar
	Vibration            float64 // mm/s
}

// Model integrates the simplified thermal and hydraulic dynamics of the
// press. It is the sole owner of the mutable physical state and the
// cycle/reject counters.
type Model struct {
	noise *sim.Noise

	targetTemp     float64 // vulcanization setpoint °C
	targetPressure float64 // clamp setpoint bar

	temperature float64
	predicted   float64
	pressure    float64
	vibration   float64

	cycleTicks     int
	lastCycleTicks int
	totalCycles    int
	rejects        int
}

// NewModel creates a process model at ambient conditions.
func NewModel(targetTemp, targetPressure float64, noise *sim.Noise) *Model {
	return &Model{
		noise:          noise,
		targetTemp:     targetTemp,
		targetPressure: targetPressure,
		temperature:    TempMin,
		predicted:      TempMin,
		vibration:      vibBaselineMin,
	}
}

// SetTargets updates the process setpoints. Callers validate before calling.
func (m *Model) SetTargets(targetTemp, targetPressure float64) {
	m.targetTemp = targetTemp
	m.targetPressure = targetPressure
}

// phaseTemperatureTarget returns the thermal setpoint for a phase. Only
// Heating and Pressing track the configured vulcanization target; the other
// phases relax toward fixed intermediate levels.
func (m *Model) phaseTemperatureTarget(phase Phase) float64 {
	switch phase {
	case PhaseClosing:
		return 80.0
	case PhaseHeating:
		return m.targetTemp
	case PhasePressing:
		return m.targetTemp + 10.0
	case PhaseCooling:
		return 90.0
	case PhaseOpening:
		return 70.0
	default:
		return 60.0
	}
}

// Step advances the physical state by one tick for the given phase.
func (m *Model) Step(phase Phase) Reading {
	m.cycleTicks++
	m.stepTemperature(phase)
	m.stepPressure(phase)
	m.stepVibration(phase)

	return Reading{
		Temperature:          m.temperature,
		PredictedTemperature: m.predicted,
		Pressure:             m.pressure,
		Vibration:            m.vibration,
	}
}

func (m *Model) stepTemperature(phase Phase) {
	tau := tauDefault
	if phase == PhaseHeating || phase == PhasePressing {
		tau = tauVulcanizing
	}

	target := m.phaseTemperatureTarget(phase)
	m.predicted = sim.Clamp(m.temperature+(target-m.temperature)/tau, TempMin, TempMax)
	m.temperature = sim.Clamp(m.predicted+m.noise.Jitter(tempNoiseMagnitude), TempMin, TempMax)
}

func (m *Model) stepPressure(phase Phase) {
	// Pump flow sized so the line settles near the clamp setpoint.
	var pumpFlow float64
	if phase == PhaseClosing || phase == PhaseHeating || phase == PhasePressing {
		pumpFlow = leakCoefficient*m.targetPressure + pistonFlowIdle
	}

	leakFlow := leakCoefficient * m.pressure

	var reliefFlow float64
	if m.pressure > reliefThreshold {
		reliefFlow = (m.pressure - reliefThreshold) * reliefGain
	}

	pistonFlow := pistonFlowIdle
	if phase == PhaseOpening {
		pistonFlow = pistonFlowOpen
	}

	dP := (pumpFlow - leakFlow - reliefFlow - pistonFlow) / compliance
	m.pressure = sim.Clamp(m.pressure+dP, PressureMin, PressureMax)
}

func (m *Model) stepVibration(phase Phase) {
	if phase == PhasePressing {
		// Intentional fault injection, not sensor physics.
		r := m.noise.Float64()
		switch {
		case r < vibCriticalProbability:
			m.vibration = m.noise.Uniform(vibCriticalMin, vibCriticalMax)
			return
		case r < vibCriticalProbability+vibWarningProbability:
			m.vibration = m.noise.Uniform(vibWarningMin, vibWarningMax)
			return
		}
	}
	m.vibration = m.noise.Uniform(vibBaselineMin, vibBaselineMax)
}

// CompleteCycle records a finished press cycle.
func (m *Model) CompleteCycle() {
	m.totalCycles++
	m.lastCycleTicks = m.cycleTicks
	m.cycleTicks = 0
}

// MaybeReject stochastically increments the reject counter. The probability
// is non-zero only when a critical low excursion already fired this tick.
func (m *Model) MaybeReject(criticalExcursion bool) bool {
	if !criticalExcursion {
		return false
	}
	if m.noise.Bool(rejectProbability) {
		m.rejects++
		return true
	}
	return false
}

// Temperature returns the current process temperature in °C.
func (m *Model) Temperature() float64 { return m.temperature }

// Predicted returns the noise-free model temperature in °C.
func (m *Model) Predicted() float64 { return m.predicted }

// Pressure returns the current hydraulic pressure in bar.
func (m *Model) Pressure() float64 { return m.pressure }

// Vibration returns the current vibration level in mm/s.
func (m *Model) Vibration() float64 { return m.vibration }

// TotalCycles returns the number of completed press cycles.
func (m *Model) TotalCycles() int { return m.totalCycles }

// Rejects returns the cumulative scrap count.
func (m *Model) Rejects() int { return m.rejects }

// CycleTicks returns the ticks elapsed in the current cycle.
func (m *Model) CycleTicks() int { return m.cycleTicks }

// LastCycleTicks returns the duration of the most recent completed cycle.
func (m *Model) LastCycleTicks() int { return m.lastCycleTicks }
