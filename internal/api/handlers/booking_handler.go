package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"uturn/internal/api/middleware"
	"uturn/internal/config"
	"uturn/internal/domain/entities"
	"uturn/internal/geo"
	"uturn/internal/services"
)

// BookingHandler serves the vendor booking endpoints and the driver side of
// the booking market (pending list and accept).
type BookingHandler struct {
	trips *services.TripService
	geo   config.GeoConfig
}

func NewBookingHandler(trips *services.TripService, geoCfg config.GeoConfig) *BookingHandler {
	return &BookingHandler{trips: trips, geo: geoCfg}
}

type CreateBookingBody struct {
	JobRequestBody
	Draft bool `json:"draft"`
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c *gin.Context) {
	var req CreateBookingBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.trips.CreateBooking(c.Request.Context(), middleware.GetUserID(c), services.CreateBookingRequest{
		JobRequest: req.toService(),
		Draft:      req.Draft,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// List handles GET /bookings?status=pending,driver_accepted.
func (h *BookingHandler) List(c *gin.Context) {
	var statuses []entities.JobStatus
	for _, raw := range c.QueryArray("status") {
		for _, s := range strings.Split(raw, ",") {
			status := entities.JobStatus(strings.TrimSpace(s))
			if !status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + s})
				return
			}
			statuses = append(statuses, status)
		}
	}

	jobs, err := h.trips.ListVendorBookings(c.Request.Context(), middleware.GetUserID(c), statuses)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": jobs})
}

// Publish handles POST /bookings/:id/publish.
func (h *BookingHandler) Publish(c *gin.Context) {
	job, err := h.trips.Publish(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Approve handles POST /bookings/:id/approve. The response carries the
// trip start code for the vendor.
func (h *BookingHandler) Approve(c *gin.Context) {
	job, err := h.trips.Approve(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type ReasonBody struct {
	Reason string `json:"reason"`
}

// Reject handles POST /bookings/:id/reject.
func (h *BookingHandler) Reject(c *gin.Context) {
	var req ReasonBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	job, err := h.trips.Reject(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Pending handles GET /bookings/pending. With lat and lng the list is cut
// down to pickups in the 3x3 geohash block around that point.
func (h *BookingHandler) Pending(c *gin.Context) {
	var near *geo.Area
	if c.Query("lat") != "" || c.Query("lng") != "" {
		lat, errLat := cast.ToFloat64E(c.Query("lat"))
		lng, errLng := cast.ToFloat64E(c.Query("lng"))
		if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng must both be valid coordinates"})
			return
		}
		area := geo.AreaAround(lat, lng, h.geo.PickupCellPrecision)
		near = &area
	}

	jobs, err := h.trips.ListPending(c.Request.Context(), middleware.GetUserID(c), near)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": jobs})
}

// Accept handles POST /bookings/:id/accept.
func (h *BookingHandler) Accept(c *gin.Context) {
	job, err := h.trips.Accept(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job.Redacted())
}
