package alerts

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Severity is the alert priority level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Alert is a single operational event raised from a threshold breach.
// Breaches are business events, never errors: they are reported here and
// never halt ticking.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert message texts. Kept static so the dedup check can compare them.
const (
	MsgTempCriticalLow     = "Temperature below vulcanization window"
	MsgTempOutOfTolerance  = "Temperature deviation outside tolerance"
	MsgPressureCriticalLow = "Clamp pressure below target during pressing"
	MsgVibrationCritical   = "Vibration in critical band"
	MsgVibrationWarning    = "Vibration above warning threshold"
)

// Conditions carries the per-tick readings the threshold rules evaluate.
type Conditions struct {
	Pressing bool

	Temperature   float64
	TargetTemp    float64
	TempDeviation float64 // percent

	Pressure          float64
	TargetPressure    float64
	PressureDeviation float64 // percent

	Vibration         float64
	VibrationWarning  float64
	VibrationCritical float64

	TolerancePct float64
	Timestamp    time.Time
}

// Classify evaluates the threshold rules against one tick's readings and
// returns candidate alerts. criticalLow reports whether a critical
// temperature-low or pressure-low excursion fired, which drives the reject
// counter in the process model.
func Classify(c Conditions) (candidates []Alert, criticalLow bool) {
	if math.Abs(c.TempDeviation) > c.TolerancePct {
		if c.Temperature < c.TargetTemp*0.85 {
			candidates = append(candidates, newAlert(MsgTempCriticalLow, SeverityCritical, c.Timestamp))
			criticalLow = true
		} else {
			candidates = append(candidates, newAlert(MsgTempOutOfTolerance, SeverityWarning, c.Timestamp))
		}
	}

	if c.Pressing && math.Abs(c.PressureDeviation) > c.TolerancePct && c.Pressure < c.TargetPressure*0.90 {
		candidates = append(candidates, newAlert(MsgPressureCriticalLow, SeverityCritical, c.Timestamp))
		criticalLow = true
	}

	switch {
	case c.Vibration >= c.VibrationCritical:
		candidates = append(candidates, newAlert(MsgVibrationCritical, SeverityCritical, c.Timestamp))
	case c.Vibration >= c.VibrationWarning:
		candidates = append(candidates, newAlert(MsgVibrationWarning, SeverityWarning, c.Timestamp))
	}

	return candidates, criticalLow
}

func newAlert(message string, severity Severity, ts time.Time) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		Timestamp: ts,
	}
}

const (
	maxRetained = 10
	dedupWindow = 5 * time.Second
)

// Manager accepts candidate alerts, suppresses immediate duplicates and
// retains a bounded list ordered by severity then recency. Not safe for
// concurrent use; the engine serializes access.
type Manager struct {
	alerts []Alert
	last   *Alert // most recently accepted, even if already evicted
}

// NewManager creates an empty alert manager.
func NewManager() *Manager {
	return &Manager{alerts: make([]Alert, 0, maxRetained)}
}

// Offer submits a candidate alert. A candidate with the same message as the
// single most-recently-accepted alert, arriving within the dedup window, is
// suppressed. The check is deliberately O(1) against one predecessor only,
// not a full-history dedup.
func (m *Manager) Offer(a Alert) bool {
	if m.last != nil && a.Message == m.last.Message &&
		a.Timestamp.Sub(m.last.Timestamp) < dedupWindow {
		return false
	}

	m.alerts = append(m.alerts, a)
	sort.SliceStable(m.alerts, func(i, j int) bool {
		ri, rj := m.alerts[i].Severity.rank(), m.alerts[j].Severity.rank()
		if ri != rj {
			return ri > rj
		}
		return m.alerts[i].Timestamp.After(m.alerts[j].Timestamp)
	})
	if len(m.alerts) > maxRetained {
		m.alerts = m.alerts[:maxRetained]
	}

	accepted := a
	m.last = &accepted
	return true
}

// Recent returns the retained alerts, severity descending then most recent
// first, at most ten entries. The returned slice is a copy.
func (m *Manager) Recent() []Alert {
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Len returns the number of retained alerts.
func (m *Manager) Len() int {
	return len(m.alerts)
}
