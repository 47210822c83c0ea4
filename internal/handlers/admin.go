package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HideMessage toggles the moderation hidden flag. Mounted behind the admin middleware.
func (h *ChatHandler) HideMessage(c *gin.Context) {
	var req struct {
		Hidden *bool `json:"hidden" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_ARGUMENT"})
		return
	}

	if err := h.svc.HideMessage(c.Request.Context(), adminActor(c), c.Param("id"), *req.Hidden); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": c.Param("id"), "hidden": *req.Hidden})
}
