package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uturn/internal/api/middleware"
	"uturn/internal/domain/entities"
	"uturn/internal/services"
)

// DriverHandler groups the driver-facing endpoints that are not tied to an
// existing job, plus the admin driver directory.
type DriverHandler struct {
	trips   *services.TripService
	drivers *services.DriverService
}

// NewDriverHandler creates a DriverHandler with its required service dependencies.
func NewDriverHandler(trips *services.TripService, drivers *services.DriverService) *DriverHandler {
	return &DriverHandler{trips: trips, drivers: drivers}
}

// CreateSoloRide handles POST /solo-rides. The ride starts out accepted by
// the calling driver; the OTP goes to the customer, not back to the driver.
func (h *DriverHandler) CreateSoloRide(c *gin.Context) {
	var req JobRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.trips.CreateSoloRide(c.Request.Context(), middleware.GetUserID(c), req.toService())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// MyJobs handles GET /drivers/me/jobs.
func (h *DriverHandler) MyJobs(c *gin.Context) {
	jobs, err := h.trips.ListDriverJobs(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// RegisterDriverBody is the admin's create-or-update payload. Status is
// optional; leaving it out keeps the current status of an existing driver.
type RegisterDriverBody struct {
	ID              string                `json:"id"`
	Name            string                `json:"name" binding:"required"`
	Phone           string                `json:"phone" binding:"required"`
	VehicleNumber   string                `json:"vehicle_number" binding:"required"`
	VehicleType     string                `json:"vehicle_type"`
	ProfilePhotoURL string                `json:"profile_photo_url"`
	Status          entities.DriverStatus `json:"status"`
}

// Register handles POST /drivers.
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	driver, err := h.drivers.Register(c.Request.Context(), services.RegisterDriverRequest{
		ID:              req.ID,
		Name:            req.Name,
		Phone:           req.Phone,
		VehicleNumber:   req.VehicleNumber,
		VehicleType:     req.VehicleType,
		ProfilePhotoURL: req.ProfilePhotoURL,
		Status:          req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

// Get handles GET /drivers/:id.
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.drivers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}
