package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/services"
)

// HandleMetrics returns server metrics.
func HandleMetrics(hub *services.Hub) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		snapshot := hub.GetMetrics()
		return e.JSON(http.StatusOK, snapshot)
	}
}

// HandleHealth returns server health status.
func HandleHealth(hub *services.Hub) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		snapshot := hub.GetMetrics()

		status := http.StatusOK
		if snapshot.HealthStatus == "critical" {
			status = http.StatusServiceUnavailable
		}

		return e.JSON(status, map[string]interface{}{
			"status":             snapshot.HealthStatus,
			"active_connections": snapshot.ActiveConnections,
			"active_debates":     snapshot.ActiveDebates,
			"uptime_seconds":     snapshot.UptimeSeconds,
		})
	}
}
