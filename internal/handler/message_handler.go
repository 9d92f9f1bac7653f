package handler

import (
	"net/http"
	"strconv"

	"marketsync/internal/middleware"
	"marketsync/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	svc *service.MessageService
}

func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

func (h *MessageHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	list, err := h.svc.List(c.Param("id"), middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": list})
}

// Send answers 201 for a new message and 200 when client_ref matched an earlier send.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		ReceiverID  string `json:"receiver_id" binding:"required"`
		Content     string `json:"content" binding:"required,max=4000"`
		MessageType string `json:"message_type" binding:"omitempty,oneof=text image file system"`
		ClientRef   string `json:"client_ref" binding:"omitempty,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	msg, created, err := h.svc.Send(c.Param("id"), middleware.GetUserID(c), service.SendMessageInput{
		ReceiverID:  req.ReceiverID,
		Content:     req.Content,
		MessageType: req.MessageType,
		ClientRef:   req.ClientRef,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"message": msg})
}

func (h *MessageHandler) MarkThreadRead(c *gin.Context) {
	var req struct {
		SenderID string `json:"sender_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := h.svc.MarkThreadRead(c.Param("id"), middleware.GetUserID(c), req.SenderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
