package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OpenSnap starts the caller's viewing session.
func (h *ChatHandler) OpenSnap(c *gin.Context) {
	access, err := h.svc.OpenSnap(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, access)
}

func (h *ChatHandler) CloseSnap(c *gin.Context) {
	consumed, err := h.svc.CloseSnap(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consumed": consumed})
}

func (h *ChatHandler) SnapStatus(c *gin.Context) {
	status, err := h.svc.SnapStatus(c.Request.Context(), c.Param("id"), userIDFromContext(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
