package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 25 << 20

// UploadMedia stores a multipart "file" and returns the blob_ref to send with a message.
func (h *ChatHandler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "code": "INVALID_ARGUMENT"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload", "code": "INVALID_ARGUMENT"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload", "code": "INVALID_ARGUMENT"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	ref, err := h.svc.UploadMedia(c.Request.Context(), userIDFromContext(c), contentType, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"blob_ref": ref})
}

// BlobReader reads back blobs kept in process.
type BlobReader interface {
	Get(ref string) ([]byte, string, bool)
}

// ServeBlob answers GET /media/*ref for the in-process blob store, so the URLs
// it hands out resolve when no bucket is configured.
func ServeBlob(blobs BlobReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := strings.TrimPrefix(c.Param("ref"), "/")
		data, contentType, ok := blobs.Get(ref)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "media not found", "code": "NOT_FOUND"})
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(http.StatusOK, contentType, data)
	}
}
