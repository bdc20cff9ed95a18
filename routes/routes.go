package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	config "github.com/phillip/food-rescue-go/config"
	controllers "github.com/phillip/food-rescue-go/controllers"
	middleware "github.com/phillip/food-rescue-go/middleware"
	services "github.com/phillip/food-rescue-go/services"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, svc *services.RescueService) {
	// public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/users", controllers.RegisterUser(svc))

	// protected
	auth := middleware.AuthMiddleware(cfg)

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/:id", controllers.GetUser(svc))
		users.POST("/:id/favorites/:requesterId", controllers.ToggleFavorite(svc))
	}

	postings := r.Group("/postings")
	postings.Use(auth)
	{
		postings.POST("", controllers.CreatePosting(svc))
		postings.GET("", controllers.ListPostings(svc))
		postings.GET("/:id", controllers.GetPosting(svc))
		postings.DELETE("/:id", controllers.DeletePosting(svc))

		postings.POST("/:id/transitions", controllers.TransitionPosting(svc))
		postings.PUT("/:id/location", controllers.UpdateVolunteerLocation(svc))
		postings.POST("/:id/safety-override", controllers.OverrideSafety(svc))
		postings.POST("/:id/ratings", controllers.RatePosting(svc))

		postings.GET("/:id/messages", controllers.ListMessages(svc))
		postings.POST("/:id/messages", controllers.PostMessage(svc))
	}

	notifs := r.Group("/notifications")
	notifs.Use(auth)
	{
		notifs.GET("", controllers.ListNotifications(svc))
		notifs.PATCH("/read-all", controllers.MarkAllNotificationsRead(svc))
		notifs.PATCH("/:id/read", controllers.MarkNotificationRead(svc))
	}
}
