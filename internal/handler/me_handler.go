package handler

import (
	"net/http"

	"marketsync/internal/middleware"
	"marketsync/internal/repository"

	"github.com/gin-gonic/gin"
)

type MeHandler struct {
	userRepo *repository.UserRepository
}

func NewMeHandler(userRepo *repository.UserRepository) *MeHandler {
	return &MeHandler{userRepo: userRepo}
}

// GetProfile returns the caller's user row.
func (h *MeHandler) GetProfile(c *gin.Context) {
	u, err := h.userRepo.GetByID(middleware.GetUserID(c))
	if err != nil || u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// RegisterFCMToken saves the FCM token for push notifications.
func (h *MeHandler) RegisterFCMToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	if err := h.userRepo.UpdateFCMToken(middleware.GetUserID(c), req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
