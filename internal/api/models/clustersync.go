package models

import "time"

// ClusterSyncStatusResponse is the response for GET /v1/clustersync/status.
type ClusterSyncStatusResponse struct {
	Mode          string     `json:"mode"`
	PrimaryURL    string     `json:"primary_url,omitempty"`
	LastSyncTime  *time.Time `json:"last_sync_time,omitempty"`
	LastSyncError string     `json:"last_sync_error,omitempty"`
	SyncCount     int64      `json:"sync_count"`
	ErrorCount    int64      `json:"error_count"`
}

// ClusterSnapshotResponse is the response for GET /v1/clustersync/snapshot,
// served by every node; secondaries poll their primary's.
type ClusterSnapshotResponse struct {
	Timestamp time.Time           `json:"timestamp"`
	Index     map[string][]string `json:"index"`
}
