package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"sendwave/internal/queue"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// HealthStatus represents the overall health of the engine process
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// BrokerStatus reports whether the event broker link is up
type BrokerStatus interface {
	IsConnected() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db      *sql.DB
	queue   *queue.BoltQueue
	broker  BrokerStatus
	version string
}

// NewHealthHandler creates a new HealthHandler instance. broker may be nil
// when event publishing is disabled.
func NewHealthHandler(db *sql.DB, q *queue.BoltQueue, broker BrokerStatus, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		queue:   q,
		broker:  broker,
		version: version,
	}
}

// HandleHealth handles GET requests to the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{
		"database": h.checkDatabase(r.Context()),
		"queue":    h.checkQueue(r.Context()),
	}
	if h.broker != nil {
		services["events"] = h.checkBroker()
	}

	status := StatusHealthy
	for _, s := range services {
		if s == StatusDisconnected {
			status = StatusUnhealthy
			break
		}
	}

	healthStatus := HealthStatus{
		Status:    status,
		Services:  services,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}

	code := http.StatusOK
	if status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, healthStatus)
}

// checkDatabase verifies PostgreSQL connectivity with a timeout
func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// checkQueue verifies the job queue is readable
func (h *HealthHandler) checkQueue(ctx context.Context) string {
	if _, err := h.queue.List(ctx, queue.StateActive); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

func (h *HealthHandler) checkBroker() string {
	if !h.broker.IsConnected() {
		return StatusDisconnected
	}
	return StatusConnected
}
