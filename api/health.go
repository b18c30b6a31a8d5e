package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse defines the data the Health
// REST endpoint returns.
type HealthResponse struct {
	Status Status        `json:"status"`
	Uptime time.Duration `json:"uptime"`
}

// Health reports that kiln is serving requests, along with the
// server's uptime.
func (s *Server) Health(c echo.Context) error {
	return c.JSON(
		http.StatusOK,
		HealthResponse{
			Status: Healthy,
			Uptime: time.Since(s.startedAt),
		},
	)
}

// Status enumerates the health statues of kiln.
type Status string

const (
	// Healthy implies kiln is having no major issues.
	Healthy Status = "healthy"
)
