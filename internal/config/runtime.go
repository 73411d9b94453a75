package config

import (
	"fmt"
	"sync"
)

// Targets holds the process setpoints and thresholds that can be changed at
// runtime.
type Targets struct {
	TargetTemp        float64 `yaml:"target_temp" json:"targetTemp"`                // °C
	TargetPressure    float64 `yaml:"target_pressure" json:"targetPressure"`       // bar
	TolerancePct      float64 `yaml:"tolerance_pct" json:"tolerancePct"`           // %
	VibrationSafe     float64 `yaml:"vibration_safe" json:"vibrationSafe"`         // mm/s
	VibrationWarning  float64 `yaml:"vibration_warning" json:"vibrationWarning"`   // mm/s
	VibrationCritical float64 `yaml:"vibration_critical" json:"vibrationCritical"` // mm/s
}

// Validate rejects non-positive setpoints and inverted threshold ordering.
func (t Targets) Validate() error {
	if t.TargetTemp <= 0 {
		return fmt.Errorf("target temperature must be positive, got %.1f", t.TargetTemp)
	}
	if t.TargetPressure <= 0 {
		return fmt.Errorf("target pressure must be positive, got %.1f", t.TargetPressure)
	}
	if t.TolerancePct <= 0 {
		return fmt.Errorf("tolerance must be positive, got %.1f", t.TolerancePct)
	}
	if t.VibrationSafe <= 0 {
		return fmt.Errorf("vibration safe threshold must be positive, got %.2f", t.VibrationSafe)
	}
	if t.VibrationSafe >= t.VibrationWarning || t.VibrationWarning >= t.VibrationCritical {
		return fmt.Errorf("vibration thresholds must be strictly increasing, got safe=%.2f warning=%.2f critical=%.2f",
			t.VibrationSafe, t.VibrationWarning, t.VibrationCritical)
	}
	return nil
}

// RuntimeTargets holds the live targets behind a lock. An invalid update is
// rejected and the previous valid configuration is retained. All methods are
// thread-safe.
type RuntimeTargets struct {
	mu sync.RWMutex
	t  Targets
}

// NewRuntimeTargets creates runtime targets from the static configuration.
func NewRuntimeTargets(initial Targets) *RuntimeTargets {
	return &RuntimeTargets{t: initial}
}

// Get returns a copy of the current targets.
func (r *RuntimeTargets) Get() Targets {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.t
}

// Update replaces the targets after validation. On error the previous
// configuration stays in effect.
func (r *RuntimeTargets) Update(t Targets) error {
	if err := t.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = t
	return nil
}
