package http

import (
	"net/http"
	"time"

	"ragchat/internal/handler/http/respond"
)

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckStatus `json:"checks,omitempty"`
}

// CheckStatus reports one health check item.
type CheckStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports the health of one subsystem.
type HealthChecker interface {
	Name() string
	Check() CheckStatus
}

// HealthHandler serves GET /health. The endpoint is unauthenticated
// and exempt from rate limiting so load balancers can always probe it.
type HealthHandler struct {
	Version  string
	Checkers []HealthChecker
}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
	}

	if len(h.Checkers) > 0 {
		resp.Checks = make(map[string]CheckStatus, len(h.Checkers))
		for _, c := range h.Checkers {
			status := c.Check()
			resp.Checks[c.Name()] = status
			if status.Status != "healthy" {
				resp.Status = "degraded"
			}
		}
	}

	// Degraded still returns 200: the process serves traffic even when
	// an upstream dependency is down.
	respond.JSON(w, http.StatusOK, resp)
}

// BreakerChecker reports circuit breaker state as a health item.
type BreakerChecker struct {
	CheckerName string
	IsOpen      func() bool
}

func (b BreakerChecker) Name() string { return b.CheckerName }

func (b BreakerChecker) Check() CheckStatus {
	if b.IsOpen() {
		return CheckStatus{Status: "unhealthy", Message: "circuit breaker open"}
	}
	return CheckStatus{Status: "healthy"}
}
