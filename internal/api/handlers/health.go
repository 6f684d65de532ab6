package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/models"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Healthz godoc
// @Summary Health check
// @Description Returns process health status
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Runtime statistics
// @Description Returns system CPU/memory usage plus engine cache and index stats
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	memStats := models.MemoryStats{}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vmStat.Total) / 1024 / 1024
		memStats.FreeMB = float64(vmStat.Available) / 1024 / 1024
		memStats.UsedMB = float64(vmStat.Used) / 1024 / 1024
		memStats.UsedPercent = vmStat.UsedPercent
	}

	cpuStats := models.CPUStats{NumCPU: runtime.NumCPU()}
	if cpuPercent, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		cpuStats.UsedPercent = cpuPercent[0]
		cpuStats.IdlePercent = 100.0 - cpuPercent[0]
	}

	cacheSize, hits, misses, indexedIPs, malformed := h.engine.Stats()

	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		Engine: models.EngineStats{
			CacheSize:        cacheSize,
			CacheHits:        hits,
			CacheMisses:      misses,
			IndexedIPs:       indexedIPs,
			MalformedPackets: malformed,
		},
	}

	h.logStats(cacheSize, hits, misses, indexedIPs, malformed)

	c.JSON(http.StatusOK, resp)
}

// malformedWarnInterval is how many additional malformed packets must be
// seen before logStats warns again.
const malformedWarnInterval = 100

// logStats logs the DNS cache hit/miss counters at Debug on every poll, and
// warns once the cumulative malformed-packet count reaches
// malformedWarnInterval, and again each time it has grown by at least
// malformedWarnInterval since the count at the previous warning.
func (h *Handler) logStats(cacheSize, hits, misses, indexedIPs int, malformed uint64) {
	if h.logger == nil {
		return
	}
	h.logger.Debug("engine stats",
		"cache_size", cacheSize,
		"cache_hits", hits,
		"cache_misses", misses,
		"indexed_ips", indexedIPs,
		"malformed_packets", malformed,
	)

	if malformed < malformedWarnInterval {
		return
	}
	last := h.lastMalformedWarn.Load()
	if malformed-last < malformedWarnInterval {
		return
	}
	if h.lastMalformedWarn.CompareAndSwap(last, malformed) {
		h.logger.Warn("malformed DNS packet count crossed threshold",
			"malformed_packets", malformed,
			"threshold", malformedWarnInterval,
		)
	}
}
