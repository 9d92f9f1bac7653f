package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"marketsync/internal/middleware"
	"marketsync/pkg/cloudinary"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 10 << 20

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true}

type UploadHandler struct {
	cloud  cloudinary.Client
	folder string
}

// NewUploadHandler accepts a nil cloud; uploads then answer 503.
func NewUploadHandler(cloud cloudinary.Client, folder string) *UploadHandler {
	return &UploadHandler{cloud: cloud, folder: folder}
}

// UploadChatMedia stores a chat attachment and returns its URL. Images get an optimized
// rendition; anything else is stored raw.
func (h *UploadHandler) UploadChatMedia(c *gin.Context) {
	if h.cloud == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}
	folder := h.folder + "/" + middleware.GetUserID(c)
	ext := strings.ToLower(filepath.Ext(file.Filename))
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read file"})
		return
	}
	defer f.Close()

	var url string
	if imageExts[ext] {
		url, err = h.cloud.UploadImage(c.Request.Context(), f, folder, "img_"+id)
	} else {
		// raw resources keep their extension in the public id
		url, err = h.cloud.UploadFile(c.Request.Context(), f, folder, "file_"+id+ext)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
