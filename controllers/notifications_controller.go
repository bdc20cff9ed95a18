package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	services "github.com/phillip/food-rescue-go/services"
	utils "github.com/phillip/food-rescue-go/utils"
)

// ---------------- LIST ----------------
func ListNotifications(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}

		notifications, err := svc.ListNotifications(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		// --- Newest first, so the head is the latest ---
		unread := 0
		for _, n := range notifications {
			if !n.IsRead {
				unread++
			}
		}
		if len(notifications) > 0 {
			latest := notifications[0].CreatedAt
			if notModified(c, utils.GenerateCollectionETag(latest, len(notifications), unread), latest) {
				return
			}
		}
		c.Header("X-Unread-Count", strconv.Itoa(unread))
		c.JSON(http.StatusOK, notifications)
	}
}

// ---------------- MARK READ ----------------
func MarkNotificationRead(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		n, err := svc.MarkRead(c.Request.Context(), user.ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, n)
	}
}

// ---------------- MARK ALL READ ----------------
func MarkAllNotificationsRead(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := actor(c)
		if !ok {
			return
		}

		count, err := svc.MarkAllRead(c.Request.Context(), user.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"updated": count})
	}
}
