package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	services "github.com/phillip/food-rescue-go/services"
	utils "github.com/phillip/food-rescue-go/utils"
)

// ---------------- REGISTER ----------------
func RegisterUser(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.RegisterUserInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := svc.RegisterUser(c.Request.Context(), input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// ---------------- GET ----------------
func GetUser(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := actor(c); !ok {
			return
		}
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}

		user, err := svc.GetUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		if notModified(c, utils.GenerateETag(user.ID, user.UpdatedAt), user.UpdatedAt) {
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ---------------- FAVORITES ----------------
func ToggleFavorite(svc *services.RescueService) gin.HandlerFunc {
	return func(c *gin.Context) {
		donor, ok := actor(c)
		if !ok {
			return
		}
		userID, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		if userID != donor.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "can only edit your own favorites"})
			return
		}
		requesterID, ok := objectIDParam(c, "requesterId")
		if !ok {
			return
		}

		user, err := svc.ToggleFavorite(c.Request.Context(), donor, requesterID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}
