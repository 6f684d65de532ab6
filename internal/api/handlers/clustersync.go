package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/models"
)

// ClusterSyncStatus godoc
// @Summary Clustersync status
// @Description Returns the last poll result for a secondary node
// @Tags clustersync
// @Produce json
// @Success 200 {object} models.ClusterSyncStatusResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /clustersync/status [get]
func (h *Handler) ClusterSyncStatus(c *gin.Context) {
	syncer := h.getSyncer()
	if syncer == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "clustersync not enabled"})
		return
	}
	s := syncer.Status()
	c.JSON(http.StatusOK, models.ClusterSyncStatusResponse{
		Mode:          string(s.Mode),
		PrimaryURL:    s.PrimaryURL,
		LastSyncTime:  s.LastSyncTime,
		LastSyncError: s.LastSyncError,
		SyncCount:     s.SyncCount,
		ErrorCount:    s.ErrorCount,
	})
}

// ClusterSyncSnapshot godoc
// @Summary Reverse-index snapshot for secondaries to poll
// @Description Served by every node; a secondary's clustersync.Syncer polls its primary's.
// @Tags clustersync
// @Produce json
// @Success 200 {object} models.ClusterSnapshotResponse
// @Router /clustersync/snapshot [get]
func (h *Handler) ClusterSyncSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, models.ClusterSnapshotResponse{
		Timestamp: time.Now(),
		Index:     h.engine.Snapshot(),
	})
}
