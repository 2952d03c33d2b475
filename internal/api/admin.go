package api

import (
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/albri/mdplane/internal/models"
)

var processStartedAt = time.Now()

type adminMetricsResponse struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
	HeapSysBytes  uint64  `json:"heapSysBytes"`
	NumGC         uint32  `json:"numGC"`
}

// handleAdminMetrics implements GET /api/v1/admin/metrics: a process
// health snapshot guarded by a bearer secret, distinct from the
// Prometheus exposition format served separately by metrics.Handler()
// (§6). 401 when no secret is configured or none was supplied, 403 on
// a mismatch.
func (a *API) handleAdminMetrics(w http.ResponseWriter, r *http.Request) {
	secret := a.deps.Config.Admin.Secret
	if secret == "" {
		writeError(w, http.StatusUnauthorized, models.CodeUnauthorized, "admin metrics are not configured", nil)
		return
	}
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == "" || token == auth {
		writeError(w, http.StatusUnauthorized, models.CodeUnauthorized, "missing bearer token", nil)
		return
	}
	if token != secret {
		writeError(w, http.StatusForbidden, models.CodeForbidden, "invalid admin secret", nil)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	writeOK(w, http.StatusOK, adminMetricsResponse{
		UptimeSeconds:  time.Since(processStartedAt).Seconds(),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		HeapSysBytes:   mem.HeapSys,
		NumGC:          mem.NumGC,
	})
}
