package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/motobuddies/internal/app/controllers"
	"github.com/yigit/motobuddies/internal/app/models/dto"
	"github.com/yigit/motobuddies/internal/middleware"
	"github.com/yigit/motobuddies/internal/pkg/websocket"
)

// Controllers bundles the HTTP handlers mounted by SetupRouter
type Controllers struct {
	Group        *controllers.GroupController
	Ride         *controllers.RideController
	Profile      *controllers.ProfileController
	Notification *controllers.NotificationController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c Controllers, authMiddleware *middleware.AuthMiddleware) {
	// Server-side fan-out endpoint, reachable with a user token or the API key
	router.POST("/api/notifications", authMiddleware.APIKeyOrJWT(), c.Notification.CreateNotification)

	// Notification stream; browsers pass the token as ?token=
	router.GET("/ws/notifications", authMiddleware.JWTAuth(), c.WebSocket.HandleConnection)

	// API version group
	v1 := router.Group("/api/v1")

	// Public
	v1.GET("/brands", c.Profile.ListBrands)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"status": "ok"}, ""))
	})

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.GET("/dashboard", c.Ride.GetDashboard)
		authenticated.GET("/calendar", c.Ride.GetCalendar)
		authenticated.GET("/geocode", c.Ride.SearchPlaces)

		profile := authenticated.Group("/profile")
		{
			profile.GET("", c.Profile.GetProfile)
			profile.PUT("", c.Profile.UpdateProfile)
		}

		groups := authenticated.Group("/groups")
		{
			groups.GET("", c.Group.ListMyGroups)
			groups.POST("", c.Group.CreateGroup)
			groups.POST("/join", c.Group.JoinGroup)
			groups.GET("/:id", c.Group.GetGroup)
			groups.PATCH("/:id", c.Group.RenameGroup)
			groups.DELETE("/:id/membership", c.Group.LeaveGroup)
			groups.GET("/:id/rides", c.Group.ListGroupRides)
		}

		rides := authenticated.Group("/rides")
		{
			rides.POST("", c.Ride.CreateRide)
			rides.GET("/:id", c.Ride.GetRide)
			rides.DELETE("/:id", c.Ride.DeleteRide)
			rides.PUT("/:id/rsvp", c.Ride.ToggleRSVP)
			rides.DELETE("/:id/gpx", c.Ride.RemoveGPX)
			rides.GET("/:id/gpx/summary", c.Ride.GetGPXSummary)
			rides.GET("/:id/weather", c.Ride.GetWeather)
		}

		notifications := authenticated.Group("/notifications")
		{
			notifications.GET("", c.Notification.ListNotifications)
			notifications.POST("/read-all", c.Notification.MarkAllRead)
			notifications.POST("/:id/read", c.Notification.MarkRead)
		}
	}
}
