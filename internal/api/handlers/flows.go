package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/models"
)

// FlowBySessionID godoc
// @Summary Last-known flow snapshot for a session
// @Description Reads the durable observation store, if enabled
// @Tags engine
// @Produce json
// @Param session_id path int true "flow session ID"
// @Success 200 {object} models.FlowSnapshotResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /flows/{session_id} [get]
func (h *Handler) FlowBySessionID(c *gin.Context) {
	st := h.getStore()
	if st == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "observation store not enabled"})
		return
	}

	sessionID, err := strconv.ParseUint(c.Param("session_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid session_id"})
		return
	}

	rec, err := st.FlowSnapshotForSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "session not found"})
		return
	}

	c.JSON(http.StatusOK, models.FlowSnapshotResponse{
		SessionID:    rec.SessionID,
		FlowIP:       rec.FlowIP,
		DstPort:      rec.DstPort,
		Transport:    rec.Transport,
		Direction:    rec.Direction,
		ProcessID:    rec.ProcessID,
		ProcessName:  rec.ProcessName,
		ProcessPath:  rec.ProcessPath,
		Decision:     rec.Decision,
		PathDecision: rec.PathDecision,
		Domains:      rec.Domains,
		UpdatedAt:    rec.UpdatedAt,
	})
}
