package telemetry

import (
	"time"

	"github.com/lwagner-iiot/moldpress-monitor/internal/press"
)

// DefaultCapacity is the standard history depth: one minute at one tick per
// second.
const DefaultCapacity = 60

// VibrationTier classifies a vibration reading against the configured bands.
type VibrationTier int

const (
	TierNone VibrationTier = iota
	TierWarning
	TierCritical
)

func (t VibrationTier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierCritical:
		return "critical"
	default:
		return "none"
	}
}

// Sample is an immutable per-tick snapshot of the press telemetry. Samples
// are created by the tick pipeline and read-only thereafter.
type Sample struct {
	Timestamp            time.Time     `json:"timestamp"`
	Temperature          float64       `json:"temperature"`
	PredictedTemperature float64       `json:"predictedTemperature"`
	Pressure             float64       `json:"pressure"`
	Vibration            float64       `json:"vibration"`
	Phase                press.Phase   `json:"phase"`
	TempDeviation        float64       `json:"tempDeviation"`
	PressureDeviation    float64       `json:"pressureDeviation"`
	VibrationTier        VibrationTier `json:"vibrationTier"`
}

// Ring is a fixed-capacity circular buffer of samples. Once full, each push
// overwrites the oldest entry. Not safe for concurrent use; the engine
// serializes access.
type Ring struct {
	buf  []Sample
	head int // index of the next write slot
	size int
}

// NewRing creates a ring store with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]Sample, capacity)}
}

// Capacity returns the fixed maximum number of retained samples.
func (r *Ring) Capacity() int {
	return len(r.buf)
}

// Len returns the number of samples currently stored.
func (r *Ring) Len() int {
	return r.size
}

// Push inserts a sample, overwriting the oldest when full. O(1).
func (r *Ring) Push(s Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Snapshot returns the stored samples oldest first, regardless of the
// internal wraparound position. The returned slice is a copy.
func (r *Ring) Snapshot() []Sample {
	out := make([]Sample, r.size)
	start := r.head - r.size
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
