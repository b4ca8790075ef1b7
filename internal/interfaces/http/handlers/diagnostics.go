package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/domain/catalog"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthChecker is a dependency that can be pinged
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthFunc adapts a function to HealthChecker
type HealthFunc func(ctx context.Context) error

// Health calls f
func (f HealthFunc) Health(ctx context.Context) error { return f(ctx) }

// DiagnosticsHandler reports health of the store's backing services
type DiagnosticsHandler struct {
	checks         map[string]HealthChecker
	catalogService *catalog.Service
	version        string
	environment    string
	startedAt      time.Time
	logger         *logrus.Logger
}

// NewDiagnosticsHandler creates a new diagnostics handler
func NewDiagnosticsHandler(checks map[string]HealthChecker, catalogService *catalog.Service, version, environment string, logger *logrus.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		checks:         checks,
		catalogService: catalogService,
		version:        version,
		environment:    environment,
		startedAt:      time.Now(),
		logger:         logger,
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

func (h *DiagnosticsHandler) runChecks(ctx context.Context) (map[string]checkResult, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthy := true
	results := make(map[string]checkResult, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		start := time.Now()
		err := h.checks[name].Health(ctx)
		cancel()

		result := checkResult{Status: "ok", Latency: time.Since(start).String()}
		if err != nil {
			healthy = false
			result.Status = "failed"
			result.Error = err.Error()
			h.logger.WithField("check", name).WithError(err).Warn("Health check failed")
		}
		results[name] = result
	}
	return results, healthy
}

// Health handles GET /health
func (h *DiagnosticsHandler) Health(c *gin.Context) {
	results, healthy := h.runChecks(c.Request.Context())

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":      status,
		"checks":      results,
		"timestamp":   time.Now().UTC(),
		"version":     h.version,
		"environment": h.environment,
	})
}

// Ready handles GET /ready
func (h *DiagnosticsHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// StoreDiagnostics handles GET /api/test-firebase. It pings every backing
// service and counts stored products.
func (h *DiagnosticsHandler) StoreDiagnostics(c *gin.Context) {
	ctx := c.Request.Context()
	results, healthy := h.runChecks(ctx)

	data := gin.H{
		"checks":      results,
		"environment": h.environment,
	}
	count, err := h.catalogService.Count(ctx)
	if err != nil {
		healthy = false
		data["products_error"] = err.Error()
	} else {
		data["product_count"] = count
	}
	data["connected"] = healthy

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"message": "Store diagnostics",
		"data":    data,
	})
}
