package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/phillip/food-rescue-go/services"
	utils "github.com/phillip/food-rescue-go/utils"
)

// ---------------- POST ----------------
func PostMessage(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sender, ok := actor(c)
		if !ok {
			return
		}
		postingID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		var input struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := svc.PostMessage(c.Request.Context(), postingID, sender, input.Text)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// ---------------- LIST ----------------
func ListMessages(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader, ok := actor(c)
		if !ok {
			return
		}
		postingID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		thread, err := svc.ListMessages(c.Request.Context(), postingID, reader)
		if err != nil {
			respondError(c, err)
			return
		}

		// --- Oldest first, so the tail is the latest ---
		if n := len(thread); n > 0 {
			last := thread[n-1]
			if notModified(c, utils.GenerateETag(last.ID, last.CreatedAt), last.CreatedAt) {
				return
			}
		}
		c.JSON(http.StatusOK, thread)
	}
}
