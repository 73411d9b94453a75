package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lwagner-iiot/moldpress-monitor/internal/alerts"
	"github.com/lwagner-iiot/moldpress-monitor/internal/api"
	"github.com/lwagner-iiot/moldpress-monitor/internal/config"
	"github.com/lwagner-iiot/moldpress-monitor/internal/engine"
	"github.com/lwagner-iiot/moldpress-monitor/internal/health"
	"github.com/lwagner-iiot/moldpress-monitor/internal/observability"
	"github.com/lwagner-iiot/moldpress-monitor/internal/opcua"
	"github.com/lwagner-iiot/moldpress-monitor/internal/sim"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
		}
	}()

	log.Info().Msg("Starting Mold Press Monitor")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("name", cfg.MonitorName).
		Int("opcua_port", cfg.OPCUAPort).
		Int("http_port", cfg.HTTPPort).
		Dur("tick_interval", cfg.TickInterval).
		Float64("target_temp", cfg.Targets.TargetTemp).
		Float64("target_pressure", cfg.Targets.TargetPressure).
		Msg("Configuration loaded")

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize components
	eng := engine.New(cfg, sim.NewNoise())
	eng.SetObserver(observability.NewProm())
	healthHandler := health.NewHandler(func() bool {
		return len(eng.TelemetryHistory()) > 0
	})

	// Create OPC UA server
	opcuaServer := opcua.NewServer(cfg.OPCUAPort, cfg.MonitorName)
	if err := opcuaServer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start OPC UA server")
	}
	healthHandler.SetOPCUAReady(true)

	// Start HTTP server (health + API + Prometheus)
	apiHandler := api.NewHandler(cfg.MonitorName, eng)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler.HandleHealth)
	mux.HandleFunc("/health/live", healthHandler.HandleLive)
	mux.HandleFunc("/health/ready", healthHandler.HandleReady)
	mux.HandleFunc("/api/status", apiHandler.HandleStatus)
	mux.HandleFunc("/api/telemetry", apiHandler.HandleTelemetry)
	mux.HandleFunc("/api/alerts", apiHandler.HandleAlerts)
	mux.HandleFunc("/api/config", apiHandler.HandleConfig)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting HTTP server (health + API + metrics)")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Main simulation loop
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.TickInterval).
		Msg("Starting tick loop")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Shutdown signal received")
			goto shutdown

		case now := <-ticker.C:
			if err := eng.Tick(now); err != nil {
				// Internal-consistency fault: not user-recoverable.
				log.Fatal().Err(err).Msg("Engine invariant violation")
			}

			status := eng.CurrentStatus()
			lastMsg, lastSev := latestAlert(eng.RecentAlerts())
			opcuaServer.UpdateStatus(status, lastMsg, lastSev)

			// Log periodic status
			if now.Second()%10 == 0 {
				log.Debug().
					Str("phase", status.PhaseName).
					Float64("temperature", status.Temperature).
					Float64("pressure", status.Pressure).
					Float64("health", status.Health.HealthIndex).
					Float64("oee", status.Health.OEE).
					Int("cycles", status.TotalCycles).
					Msg("Tick")
			}
		}
	}

shutdown:
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := opcuaServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("OPC UA server shutdown error")
	}

	log.Info().Msg("Monitor stopped")
}

// latestAlert returns the message and severity of the most recent retained
// alert. The retained list is ordered by severity first, so scan by
// timestamp.
func latestAlert(list []alerts.Alert) (string, string) {
	if len(list) == 0 {
		return "", ""
	}
	latest := list[0]
	for _, a := range list[1:] {
		if a.Timestamp.After(latest.Timestamp) {
			latest = a
		}
	}
	return latest.Message, string(latest.Severity)
}
