package api

import (
	"github.com/lwagner-iiot/moldpress-monitor/internal/alerts"
	"github.com/lwagner-iiot/moldpress-monitor/internal/engine"
	"github.com/lwagner-iiot/moldpress-monitor/internal/telemetry"
)

// StatusResponse is returned by GET /api/status
type StatusResponse struct {
	MonitorName string        `json:"monitorName"`
	Status      engine.Status `json:"status"`
}

// TelemetryResponse is returned by GET /api/telemetry
type TelemetryResponse struct {
	Samples []telemetry.Sample `json:"samples"`
}

// AlertsResponse is returned by GET /api/alerts
type AlertsResponse struct {
	Alerts []alerts.Alert `json:"alerts"`
}

// ConfigResponse is returned by GET and POST /api/config
type ConfigResponse struct {
	Running           bool    `json:"running"`
	TargetTemp        float64 `json:"targetTemp"`
	TargetPressure    float64 `json:"targetPressure"`
	TolerancePct      float64 `json:"tolerancePct"`
	VibrationSafe     float64 `json:"vibrationSafe"`
	VibrationWarning  float64 `json:"vibrationWarning"`
	VibrationCritical float64 `json:"vibrationCritical"`
}

// ConfigUpdateRequest is the body of POST /api/config. Nil fields keep their
// current values.
type ConfigUpdateRequest struct {
	Running           *bool    `json:"running,omitempty"`
	TargetTemp        *float64 `json:"targetTemp,omitempty"`
	TargetPressure    *float64 `json:"targetPressure,omitempty"`
	TolerancePct      *float64 `json:"tolerancePct,omitempty"`
	VibrationSafe     *float64 `json:"vibrationSafe,omitempty"`
	VibrationWarning  *float64 `json:"vibrationWarning,omitempty"`
	VibrationCritical *float64 `json:"vibrationCritical,omitempty"`
}
