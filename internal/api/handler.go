package api

import (
	"encoding/json"
	"net/http"

	"github.com/lwagner-iiot/moldpress-monitor/internal/config"
	"github.com/lwagner-iiot/moldpress-monitor/internal/engine"
)

// Handler serves the engine's read and control API as JSON over HTTP.
type Handler struct {
	monitorName string
	engine      *engine.Engine
}

// NewHandler creates an API handler for the given engine.
func NewHandler(monitorName string, eng *engine.Engine) *Handler {
	return &Handler{
		monitorName: monitorName,
		engine:      eng,
	}
}

// HandleStatus handles GET /api/status
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, StatusResponse{
		MonitorName: h.monitorName,
		Status:      h.engine.CurrentStatus(),
	})
}

// HandleTelemetry handles GET /api/telemetry
func (h *Handler) HandleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, TelemetryResponse{
		Samples: h.engine.TelemetryHistory(),
	})
}

// HandleAlerts handles GET /api/alerts
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, AlertsResponse{
		Alerts: h.engine.RecentAlerts(),
	})
}

// HandleConfig handles GET and POST /api/config
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.writeConfig(w)
	case http.MethodPost:
		h.handleConfigUpdate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Start from the active targets so partial updates keep current values.
	targets := h.engine.Targets()
	applyUpdate(&targets, req)

	if err := h.engine.Configure(targets); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Running != nil {
		h.engine.SetRunning(*req.Running)
	}

	h.writeConfig(w)
}

func applyUpdate(t *config.Targets, req ConfigUpdateRequest) {
	if req.TargetTemp != nil {
		t.TargetTemp = *req.TargetTemp
	}
	if req.TargetPressure != nil {
		t.TargetPressure = *req.TargetPressure
	}
	if req.TolerancePct != nil {
		t.TolerancePct = *req.TolerancePct
	}
	if req.VibrationSafe != nil {
		t.VibrationSafe = *req.VibrationSafe
	}
	if req.VibrationWarning != nil {
		t.VibrationWarning = *req.VibrationWarning
	}
	if req.VibrationCritical != nil {
		t.VibrationCritical = *req.VibrationCritical
	}
}

func (h *Handler) writeConfig(w http.ResponseWriter) {
	t := h.engine.Targets()
	h.writeJSON(w, ConfigResponse{
		Running:           h.engine.Running(),
		TargetTemp:        t.TargetTemp,
		TargetPressure:    t.TargetPressure,
		TolerancePct:      t.TolerancePct,
		VibrationSafe:     t.VibrationSafe,
		VibrationWarning:  t.VibrationWarning,
		VibrationCritical: t.VibrationCritical,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
