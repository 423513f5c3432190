package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uturn/internal/api/middleware"
	"uturn/internal/domain/entities"
	"uturn/internal/services"
)

// JobHandler serves the endpoints shared by bookings and solo rides. The
// :kind path segment picks the table.
type JobHandler struct {
	trips     *services.TripService
	maxUpload int64
}

func NewJobHandler(trips *services.TripService, maxUpload int64) *JobHandler {
	return &JobHandler{trips: trips, maxUpload: maxUpload}
}

// Get handles GET /jobs/:kind/:id.
func (h *JobHandler) Get(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	job, err := h.trips.Get(c.Request.Context(), middleware.GetActor(c), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Track handles GET /track/:code. It is public and never shows the OTP.
func (h *JobHandler) Track(c *gin.Context) {
	job, err := h.trips.GetByTrackingID(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type VideoBody struct {
	VideoURL string `json:"video_url" binding:"required"`
}

// UploadVideo handles POST /jobs/:kind/:id/video. It accepts either a
// multipart "video" file or a JSON body naming an already hosted URL.
func (h *JobHandler) UploadVideo(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	driverID := middleware.GetUserID(c)

	if isMultipart(c) {
		file, err := readUpload(c, "video", h.maxUpload)
		if err != nil {
			badRequest(c, err)
			return
		}
		job, err := h.trips.UploadVideoFile(ctx, driverID, kind, c.Param("id"), file)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, job)
		return
	}

	var req VideoBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	job, err := h.trips.UploadVideo(ctx, driverID, kind, c.Param("id"), req.VideoURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type StartTripBody struct {
	Odometer *float64 `json:"odometer" binding:"required"`
	OTP      string   `json:"otp" binding:"required"`
	PhotoURL string   `json:"photo_url"`
}

// Start handles POST /jobs/:kind/:id/start.
func (h *JobHandler) Start(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	var req StartTripBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.trips.StartTrip(c.Request.Context(), middleware.GetUserID(c), kind, c.Param("id"), services.StartTripRequest{
		Odometer: *req.Odometer,
		OTP:      req.OTP,
		PhotoURL: req.PhotoURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type WaitingBody struct {
	Minutes int `json:"minutes" binding:"required,gt=0"`
}

// AddWaiting handles POST /jobs/:kind/:id/waiting.
func (h *JobHandler) AddWaiting(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	var req WaitingBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.trips.AddWaitingTime(c.Request.Context(), middleware.GetUserID(c), kind, c.Param("id"), req.Minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// CompleteTripBody accepts extra_charges as a number or a numeric string.
type CompleteTripBody struct {
	EndOdometer   *float64    `json:"end_odometer" binding:"required"`
	PaymentMethod string      `json:"payment_method"`
	PhotoURL      string      `json:"photo_url"`
	ExtraCharges  interface{} `json:"extra_charges"`
}

// Complete handles POST /jobs/:kind/:id/complete.
func (h *JobHandler) Complete(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	var req CompleteTripBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	job, err := h.trips.CompleteTrip(c.Request.Context(), middleware.GetUserID(c), kind, c.Param("id"), services.CompleteTripRequest{
		EndOdometer:   *req.EndOdometer,
		PaymentMethod: req.PaymentMethod,
		PhotoURL:      req.PhotoURL,
		ExtraCharges:  req.ExtraCharges,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// RegenerateOTP handles POST /jobs/:kind/:id/otp.
func (h *JobHandler) RegenerateOTP(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	job, err := h.trips.RegenerateOTP(c.Request.Context(), middleware.GetActor(c), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

type ValidateOTPBody struct {
	OTP string `json:"otp" binding:"required"`
}

// ValidateOTP handles POST /jobs/:kind/:id/otp/validate.
func (h *JobHandler) ValidateOTP(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	var req ValidateOTPBody
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	valid, err := h.trips.ValidateOTP(c.Request.Context(), middleware.GetActor(c), kind, c.Param("id"), req.OTP)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

// Cancel handles POST /jobs/:kind/:id/cancel.
func (h *JobHandler) Cancel(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	h.cancel(c, kind)
}

// CancelBooking handles POST /bookings/:id/cancel.
func (h *JobHandler) CancelBooking(c *gin.Context) {
	h.cancel(c, entities.JobKindBooking)
}

func (h *JobHandler) cancel(c *gin.Context, kind entities.JobKind) {
	var req ReasonBody
	if !bindOptionalJSON(c, &req) {
		return
	}
	job, err := h.trips.Cancel(c.Request.Context(), middleware.GetActor(c), kind, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// MarkCommissionPaid handles POST /jobs/:kind/:id/commission/paid.
func (h *JobHandler) MarkCommissionPaid(c *gin.Context) {
	kind, ok := jobKind(c)
	if !ok {
		return
	}
	job, err := h.trips.MarkCommissionPaid(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// UploadProof handles POST /uploads: a multipart "file" (odometer photo)
// is stored and its URL returned for use in start and complete.
func (h *JobHandler) UploadProof(c *gin.Context) {
	file, err := readUpload(c, "file", h.maxUpload)
	if err != nil {
		badRequest(c, err)
		return
	}
	url, err := h.trips.UploadProof(c.Request.Context(), middleware.GetUserID(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
