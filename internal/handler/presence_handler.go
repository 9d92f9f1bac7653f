package handler

import (
	"net/http"
	"time"

	"marketsync/internal/middleware"
	"marketsync/internal/service"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	svc *service.PresenceService
}

func NewPresenceHandler(svc *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{svc: svc}
}

func (h *PresenceHandler) List(c *gin.Context) {
	list, err := h.svc.List()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": list})
}

// SetPresence upserts the caller's own row. Users never write each other's presence.
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	var req struct {
		Status      string    `json:"status" binding:"required,oneof=online away busy offline"`
		IsAvailable *bool     `json:"is_available" binding:"required"`
		LastSeen    time.Time `json:"last_seen"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.svc.Update(middleware.GetUserID(c), req.Status, *req.IsAvailable, req.LastSeen)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"presence": p})
}
