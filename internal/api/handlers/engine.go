package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jroosing/flowinspect/internal/api/models"
)

// DomainsForIP godoc
// @Summary Domains ever observed for a flow IP
// @Description Looks up the reverse index for the given flow IP
// @Tags engine
// @Produce json
// @Param ip path string true "flow IP"
// @Success 200 {object} models.DomainsForIPResponse
// @Router /domains/{ip} [get]
func (h *Handler) DomainsForIP(c *gin.Context) {
	ip := c.Param("ip")
	domains := h.engine.GetDomainsForIP(ip)
	c.JSON(http.StatusOK, models.DomainsForIPResponse{
		IP:      ip,
		Domains: domains,
		Count:   len(domains),
	})
}

// DomainHistoryForIP godoc
// @Summary Historical domain observations for a flow IP
// @Description Reads the durable observation store, if enabled
// @Tags engine
// @Produce json
// @Param ip path string true "flow IP"
// @Param limit query int false "max rows to return (default 100)"
// @Success 200 {object} models.ObservationHistoryResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /domains/{ip}/history [get]
func (h *Handler) DomainHistoryForIP(c *gin.Context) {
	st := h.getStore()
	if st == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "observation store not enabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		limit = 100
	}

	ip := c.Param("ip")
	rows, err := st.ObservationsForIP(c.Request.Context(), ip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp := models.ObservationHistoryResponse{IP: ip}
	for _, r := range rows {
		resp.Observations = append(resp.Observations, models.ObservationResponse{
			SessionID:  r.SessionID,
			Domain:     r.Domain,
			ObservedAt: r.ObservedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// ClearCache godoc
// @Summary Clear the DNS response cache and reverse index
// @Tags engine
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Router /cache/clear [post]
func (h *Handler) ClearCache(c *gin.Context) {
	h.engine.ClearCache()
	c.JSON(http.StatusOK, models.StatusResponse{Status: "cleared"})
}
