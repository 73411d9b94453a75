package press

// Phase represents one stage of the press's repeating molding cycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseClosing  // Mold halves closing
	PhaseHeating  // Platens heating to vulcanization temperature
	PhasePressing // Full clamp force, material curing
	PhaseCooling  // Controlled cooldown before release
	PhaseOpening  // Mold opening, part release
)

// numPhases is the length of the fixed cycle.
const numPhases = 6

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseClosing:
		return "Closing"
	case PhaseHeating:
		return "Heating"
	case PhasePressing:
		return "Pressing"
	case PhaseCooling:
		return "Cooling"
	case PhaseOpening:
		return "Opening"
	default:
		return "Unknown"
	}
}

// PhaseDurations holds the target duration of each phase in ticks.
type PhaseDurations struct {
	Idle     int
	Closing  int
	Heating  int
	Pressing int
	Cooling  int
	Opening  int
}

// DefaultPhaseDurations returns the standard cycle timing.
func DefaultPhaseDurations() PhaseDurations {
	return PhaseDurations{
		Idle:     5,
		Closing:  3,
		Heating:  15,
		Pressing: 10,
		Cooling:  8,
		Opening:  4,
	}
}

// Total returns the sum of all phase durations in ticks.
func (d PhaseDurations) Total() int {
	return d.Idle + d.Closing + d.Heating + d.Pressing + d.Cooling + d.Opening
}

func (d PhaseDurations) forPhase(p Phase) int {
	switch p {
	case PhaseIdle:
		return d.Idle
	case PhaseClosing:
		return d.Closing
	case PhaseHeating:
		return d.Heating
	case PhasePressing:
		return d.Pressing
	case PhaseCooling:
		return d.Cooling
	case PhaseOpening:
		return d.Opening
	default:
		return 0
	}
}

// PhaseMachine cycles through the six press phases in fixed order. All
// transitions are duration-based; the machine never waits on process
// conditions.
type PhaseMachine struct {
	durations PhaseDurations
	phase     Phase
	elapsed   int
}

// NewPhaseMachine creates a phase machine starting in Idle.
func NewPhaseMachine(durations PhaseDurations) *PhaseMachine {
	return &PhaseMachine{durations: durations, phase: PhaseIdle}
}

// Phase returns the currently active phase.
func (m *PhaseMachine) Phase() Phase {
	return m.phase
}

// Elapsed returns the number of ticks spent in the current phase.
func (m *PhaseMachine) Elapsed() int {
	return m.elapsed
}

// Advance moves the machine forward by one tick. When the current phase has
// run for its full duration the machine transitions to the next phase in the
// cycle. cycleCompleted is true only on the Opening -> Idle transition.
func (m *PhaseMachine) Advance() (phase Phase, phaseElapsed int, cycleCompleted bool) {
	m.elapsed++
	if m.elapsed >= m.durations.forPhase(m.phase) {
		m.elapsed = 0
		m.phase = (m.phase + 1) % numPhases
		if m.phase == PhaseIdle {
			cycleCompleted = true
		}
	}
	return m.phase, m.elapsed, cycleCompleted
}
