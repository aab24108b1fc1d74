package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthChecker is a dependency that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	checkers  map[string]HealthChecker
	version   string
	backend   string
	startTime time.Time
}

type MemoryStatus struct {
	SystemUsedPercent float64 `json:"system_used_percent"`
	SystemAvailableMB uint64  `json:"system_available_mb"`
	HeapAllocMB       uint64  `json:"heap_alloc_mb"`
	Goroutines        int     `json:"goroutines"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Storage   string            `json:"storage"`
	Services  map[string]string `json:"services"`
	Memory    *MemoryStatus     `json:"memory,omitempty"`
}

// NewHealthHandler reports on the named checkers. Nil checkers are skipped,
// so an in-memory deployment has no services to check.
func NewHealthHandler(version, backend string, checkers map[string]HealthChecker) *HealthHandler {
	live := make(map[string]HealthChecker, len(checkers))
	for name, c := range checkers {
		if c != nil {
			live[name] = c
		}
	}
	return &HealthHandler{checkers: live, version: version, backend: backend, startTime: time.Now()}
}

// HealthCheck returns 503 when any dependency is unhealthy.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	services := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checkers[name].HealthCheck(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			status = "unhealthy"
			continue
		}
		services[name] = "healthy"
	}

	resp := HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Storage:   h.backend,
		Services:  services,
		Memory:    memoryStatus(ctx),
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// LivenessCheck only proves the process is serving.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now().Format(time.RFC3339)})
}

func memoryStatus(ctx context.Context) *MemoryStatus {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	out := &MemoryStatus{
		HeapAllocMB: ms.HeapAlloc / 1024 / 1024,
		Goroutines:  runtime.NumGoroutine(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out.SystemUsedPercent = vm.UsedPercent
		out.SystemAvailableMB = vm.Available / 1024 / 1024
	}
	return out
}
