package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// warmup is the grace period before readiness can report complete; it gives
// the tick loop a few passes to populate telemetry.
const warmup = 5 * time.Second

// Response is the probe payload.
type Response struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Handler serves liveness and readiness probes for the monitor. Readiness
// requires the OPC UA server to be up, the engine to have produced telemetry
// and the warmup period to have passed.
type Handler struct {
	opcuaReady  atomic.Bool
	engineReady func() bool
	startTime   time.Time
}

// NewHandler creates a probe handler. engineReady reports whether the tick
// pipeline has produced at least one sample; nil means the check is skipped.
func NewHandler(engineReady func() bool) *Handler {
	return &Handler{
		engineReady: engineReady,
		startTime:   time.Now(),
	}
}

// SetOPCUAReady records whether the OPC UA server came up.
func (h *Handler) SetOPCUAReady(ready bool) {
	h.opcuaReady.Store(ready)
}

// HandleLive responds 200 whenever the process is able to serve HTTP.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeResponse(w, http.StatusOK, Response{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady responds 200 once all readiness checks pass, 503 otherwise.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	ready := true

	if h.opcuaReady.Load() {
		checks["opcua_server"] = "healthy"
	} else {
		checks["opcua_server"] = "not_ready"
		ready = false
	}

	if h.engineReady != nil {
		if h.engineReady() {
			checks["engine"] = "ticking"
		} else {
			checks["engine"] = "no_telemetry"
			ready = false
		}
	}

	if time.Since(h.startTime) > warmup {
		checks["startup"] = "complete"
	} else {
		checks["startup"] = "in_progress"
		ready = false
	}

	resp := Response{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if ready {
		resp.Status = "ready"
		writeResponse(w, http.StatusOK, resp)
		return
	}
	resp.Status = "not_ready"
	writeResponse(w, http.StatusServiceUnavailable, resp)
}

// HandleHealth is the combined endpoint used by container healthchecks; it
// mirrors readiness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.HandleReady(w, r)
}

func writeResponse(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
