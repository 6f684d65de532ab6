package models

import "time"

// CPUStats contains system CPU statistics.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats contains system memory statistics.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// EngineStats contains DNS cache and reverse-index statistics.
type EngineStats struct {
	CacheSize        int    `json:"cache_size"`
	CacheHits        int    `json:"cache_hits"`
	CacheMisses      int    `json:"cache_misses"`
	IndexedIPs       int    `json:"indexed_ips"`
	MalformedPackets uint64 `json:"malformed_packets"`
}

// ServerStatsResponse contains process runtime statistics.
type ServerStatsResponse struct {
	Uptime        string      `json:"uptime"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     time.Time   `json:"start_time"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
	Engine        EngineStats `json:"engine"`
}
