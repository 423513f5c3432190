package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uturn/internal/api/handlers"
	"uturn/internal/api/middleware"
	"uturn/internal/api/ws"
	"uturn/internal/config"
	"uturn/internal/logger"
	"uturn/internal/services"
)

type Router struct {
	bookingHandler *handlers.BookingHandler
	jobHandler     *handlers.JobHandler
	driverHandler  *handlers.DriverHandler
	hub            *ws.Hub
	trips          *services.TripService
	auth           config.AuthConfig
	log            logger.Logger
}

func NewRouter(
	cfg *config.Config,
	trips *services.TripService,
	drivers *services.DriverService,
	hub *ws.Hub,
	log logger.Logger,
) *Router {
	return &Router{
		bookingHandler: handlers.NewBookingHandler(trips, cfg.Geo),
		jobHandler:     handlers.NewJobHandler(trips, cfg.Server.MaxUploadBytes),
		driverHandler:  handlers.NewDriverHandler(trips, drivers),
		hub:            hub,
		trips:          trips,
		auth:           cfg.Auth,
		log:            log,
	}
}

func (r *Router) Setup(engine *gin.Engine) {
	engine.Use(middleware.RequestLogger(r.log))

	// Health check endpoint
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public tracking link
	engine.GET("/track/:code", r.jobHandler.Track)
	engine.GET("/ws/track/:code", r.hub.Handler(r.trips.GetByTrackingID))

	api := engine.Group("/")
	api.Use(middleware.Authenticate(r.auth))
	{
		vendor := api.Group("/")
		vendor.Use(middleware.RequireRole(services.RoleVendor))
		{
			vendor.POST("/bookings", r.bookingHandler.Create)
			vendor.GET("/bookings", r.bookingHandler.List)
			vendor.POST("/bookings/:id/publish", r.bookingHandler.Publish)
			vendor.POST("/bookings/:id/approve", r.bookingHandler.Approve)
			vendor.POST("/bookings/:id/reject", r.bookingHandler.Reject)
			vendor.POST("/bookings/:id/cancel", r.jobHandler.CancelBooking)
		}

		driver := api.Group("/")
		driver.Use(middleware.RequireRole(services.RoleDriver))
		{
			driver.GET("/bookings/pending", r.bookingHandler.Pending)
			driver.POST("/bookings/:id/accept", r.bookingHandler.Accept)
			driver.POST("/solo-rides", r.driverHandler.CreateSoloRide)
			driver.GET("/drivers/me/jobs", r.driverHandler.MyJobs)
			driver.POST("/uploads", r.jobHandler.UploadProof)
			driver.POST("/jobs/:kind/:id/video", r.jobHandler.UploadVideo)
			driver.POST("/jobs/:kind/:id/start", r.jobHandler.Start)
			driver.POST("/jobs/:kind/:id/waiting", r.jobHandler.AddWaiting)
			driver.POST("/jobs/:kind/:id/complete", r.jobHandler.Complete)
		}

		admin := api.Group("/")
		admin.Use(middleware.RequireRole(services.RoleAdmin))
		{
			admin.POST("/drivers", r.driverHandler.Register)
			admin.GET("/drivers/:id", r.driverHandler.Get)
			admin.POST("/jobs/:kind/:id/commission/paid", r.jobHandler.MarkCommissionPaid)
		}

		// Shared endpoints; the service checks the caller is a party to the job.
		api.GET("/jobs/:kind/:id", r.jobHandler.Get)
		api.POST("/jobs/:kind/:id/otp", r.jobHandler.RegenerateOTP)
		api.POST("/jobs/:kind/:id/otp/validate", r.jobHandler.ValidateOTP)
		api.POST("/jobs/:kind/:id/cancel", r.jobHandler.Cancel)
	}
}
