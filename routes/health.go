package routes

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"speedraw/failures"
	"speedraw/logger"
	"speedraw/success"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	GoVersion string            `json:"go_version"`
	Uptime    string            `json:"uptime"`
	StartTime string            `json:"start_time"`
	Checks    map[string]string `json:"checks"`
}

// Global start time for uptime calculation
var startTime = time.Now()

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports liveness and the state of the record stores.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	logger.Debugf("Health check request: method=%s, remoteAddr=%s", r.Method, r.RemoteAddr)
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version(),
		GoVersion: runtime.Version(),
		Uptime:    formatUptime(time.Since(startTime)),
		StartTime: startTime.Format("2006-01-02 15:04:05 MST"),
		Checks:    map[string]string{},
	}

	status := http.StatusOK
	for name, check := range map[string]func() error{
		"success_store":  success.CheckHealth,
		"failures_store": failures.CheckHealth,
	} {
		if err := check(); err != nil {
			response.Checks[name] = err.Error()
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		response.Checks[name] = "ok"
	}

	logger.Debugf("Health check response: status=%s, version=%s", response.Status, response.Version)
	writeJSON(w, status, response)
}
