package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"uturn/internal/domain/entities"
	"uturn/internal/services"
)

// errorStatus maps service errors onto HTTP status codes.
var errorStatus = []struct {
	err    error
	status int
}{
	{services.ErrJobNotFound, http.StatusNotFound},
	{services.ErrDriverNotFound, http.StatusNotFound},
	{services.ErrInvalidOTP, http.StatusBadRequest},
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrInvalidOdometer, http.StatusBadRequest},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrDriverBusy, http.StatusConflict},
	{services.ErrScheduleConflict, http.StatusConflict},
	{services.ErrDriverBlocked, http.StatusForbidden},
	{services.ErrNotAuthorized, http.StatusForbidden},
}

// respondError writes err as {"error": msg} with the matching status.
// Unknown errors are 500s and their text is not echoed to the client.
func respondError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// jobKind resolves the :kind path segment.
func jobKind(c *gin.Context) (entities.JobKind, bool) {
	switch c.Param("kind") {
	case "bookings":
		return entities.JobKindBooking, true
	case "solo-rides":
		return entities.JobKindSolo, true
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be bookings or solo-rides"})
	return "", false
}

// JobRequestBody is the JSON shape of a new booking or solo ride.
type JobRequestBody struct {
	CustomerName        string              `json:"customer_name" binding:"required"`
	CustomerPhone       string              `json:"customer_phone" binding:"required"`
	Pickup              entities.Place      `json:"pickup"`
	Drop                entities.Place      `json:"drop"`
	TripType            entities.TripType   `json:"trip_type" binding:"required"`
	ScheduledAt         time.Time           `json:"scheduled_at"`
	ReturnAt            *time.Time          `json:"return_at"`
	RentalHours         float64             `json:"rental_hours"`
	Fare                entities.FareInputs `json:"fare"`
	EstimatedDistanceKm float64             `json:"estimated_distance_km"`
}

func (b JobRequestBody) toService() services.JobRequest {
	return services.JobRequest{
		CustomerName:        b.CustomerName,
		CustomerPhone:       b.CustomerPhone,
		Pickup:              b.Pickup,
		Drop:                b.Drop,
		TripType:            b.TripType,
		ScheduledAt:         b.ScheduledAt,
		ReturnAt:            b.ReturnAt,
		RentalHours:         b.RentalHours,
		Fare:                b.Fare,
		EstimatedDistanceKm: b.EstimatedDistanceKm,
	}
}

// isMultipart reports whether the request carries a form upload.
func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// readUpload reads the form file field, bounded by maxBytes.
func readUpload(c *gin.Context, field string, maxBytes int64) (services.Upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Upload{}, err
	}
	f, err := fh.Open()
	if err != nil {
		return services.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Upload{}, err
	}
	return services.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// bindOptionalJSON binds the body into v when there is one. It writes the
// 400 and returns false on a malformed body.
func bindOptionalJSON(c *gin.Context, v any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}
