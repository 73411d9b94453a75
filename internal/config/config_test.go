package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validTargets() Targets {
	return Targets{
		TargetTemp:        165,
		TargetPressure:    180,
		TolerancePct:      10,
		VibrationSafe:     4.0,
		VibrationWarning:  4.5,
		VibrationCritical: 6.0,
	}
}

func TestTargetsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Targets)
		wantErr bool
	}{
		{"valid", func(*Targets) {}, false},
		{"zero temp", func(tg *Targets) { tg.TargetTemp = 0 }, true},
		{"negative pressure", func(tg *Targets) { tg.TargetPressure = -1 }, true},
		{"zero tolerance", func(tg *Targets) { tg.TolerancePct = 0 }, true},
		{"zero safe threshold", func(tg *Targets) { tg.VibrationSafe = 0 }, true},
		{"safe above warning", func(tg *Targets) { tg.VibrationSafe = 5.0 }, true},
		{"warning equals critical", func(tg *Targets) { tg.VibrationWarning = 6.0 }, true},
	}
	for _, tt := range tests {
		tg := validTargets()
		tt.mutate(&tg)
		err := tg.Validate()
		if tt.wantErr && err == nil {
			t.Fatalf("%s: expected validation error, got nil", tt.name)
		}
		if !tt.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
	}
}

func TestRuntimeTargetsKeepPreviousOnInvalidUpdate(t *testing.T) {
	rt := NewRuntimeTargets(validTargets())

	bad := validTargets()
	bad.TolerancePct = -5
	if err := rt.Update(bad); err == nil {
		t.Fatalf("expected invalid update to be rejected")
	}

	got := rt.Get()
	if got != validTargets() {
		t.Fatalf("previous configuration lost after rejected update: %+v", got)
	}
}

func TestRuntimeTargetsAppliesValidUpdate(t *testing.T) {
	rt := NewRuntimeTargets(validTargets())

	next := validTargets()
	next.TargetTemp = 170
	next.TolerancePct = 8
	if err := rt.Update(next); err != nil {
		t.Fatalf("valid update rejected: %v", err)
	}
	if got := rt.Get(); got != next {
		t.Fatalf("expected %+v, got %+v", next, got)
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"MONITOR_NAME", "TICK_INTERVAL", "HISTORY_CAPACITY",
		"TARGET_TEMP", "TARGET_PRESSURE", "CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.MonitorName != "MoldPress-01" {
		t.Fatalf("expected default monitor name, got %q", cfg.MonitorName)
	}
	if cfg.TickInterval != time.Second {
		t.Fatalf("expected 1s tick interval, got %s", cfg.TickInterval)
	}
	if cfg.HistoryCapacity != 60 {
		t.Fatalf("expected history capacity 60, got %d", cfg.HistoryCapacity)
	}
	total := cfg.Phases.Idle + cfg.Phases.Closing + cfg.Phases.Heating +
		cfg.Phases.Pressing + cfg.Phases.Cooling + cfg.Phases.Opening
	if total != 45 {
		t.Fatalf("expected 45 ticks per default cycle, got %d", total)
	}
	if cfg.Targets.TargetTemp != 165.0 || cfg.Targets.TargetPressure != 180.0 {
		t.Fatalf("unexpected default targets: %+v", cfg.Targets)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MONITOR_NAME", "Press-07")
	t.Setenv("TARGET_TEMP", "172.5")
	t.Setenv("PHASE_PRESSING_TICKS", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MonitorName != "Press-07" {
		t.Fatalf("expected monitor name from env, got %q", cfg.MonitorName)
	}
	if cfg.Targets.TargetTemp != 172.5 {
		t.Fatalf("expected target temp 172.5, got %.1f", cfg.Targets.TargetTemp)
	}
	if cfg.Phases.Pressing != 12 {
		t.Fatalf("expected 12 pressing ticks, got %d", cfg.Phases.Pressing)
	}
}

func TestLoadAppliesConfigFileOverEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	body := []byte("monitor_name: Press-File\ntargets:\n  target_temp: 158.0\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("MONITOR_NAME", "Press-Env")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MonitorName != "Press-File" {
		t.Fatalf("expected file to override env, got %q", cfg.MonitorName)
	}
	if cfg.Targets.TargetTemp != 158.0 {
		t.Fatalf("expected target temp from file, got %.1f", cfg.Targets.TargetTemp)
	}
	// Values absent from the file keep their defaults.
	if cfg.Targets.TargetPressure != 180.0 {
		t.Fatalf("expected default target pressure, got %.1f", cfg.Targets.TargetPressure)
	}
}

func TestLoadRejectsInvalidFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	body := []byte("targets:\n  tolerance_pct: -5\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for negative tolerance")
	}
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestConfigValidateRejectsBadPhaseDurations(t *testing.T) {
	cfg := &Config{
		TickInterval:    time.Second,
		HistoryCapacity: 60,
		Phases:          PhaseConfig{Idle: 5, Closing: 3, Heating: 0, Pressing: 10, Cooling: 8, Opening: 4},
		Targets:         validTargets(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero heating duration")
	}

	cfg.Phases.Heating = 15
	cfg.TickInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero tick interval")
	}

	cfg.TickInterval = time.Second
	cfg.HistoryCapacity = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for negative history capacity")
	}

	cfg.HistoryCapacity = 60
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error for valid config: %v", err)
	}
}
