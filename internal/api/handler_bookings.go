package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"venue-booking-backend/internal/booking"
	"venue-booking-backend/internal/model"
)

// CreateBooking stores a booking when its window is free. A conflict is
// answered with 409 and the decision that blocked it.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req booking.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	res, err := h.bookings.Create(c.Request.Context(), req, h.now())
	if res != nil && res.Booking == nil && err == nil {
		c.JSON(http.StatusConflict, res)
		return
	}
	h.respond(c, http.StatusCreated, res, err, res != nil && res.Booking != nil)
}

func (h *Handler) GetBooking(c *gin.Context) {
	b, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdatePaymentStatus is called by the payments webhook relay.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.bookings.UpdatePaymentStatus(c.Request.Context(), c.Param("id"), model.PaymentStatus(req.Status), h.now())
	h.respond(c, http.StatusOK, res, err, res != nil)
}

func (h *Handler) UpdateLifecycle(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	res, err := h.bookings.UpdateLifecycle(c.Request.Context(), c.Param("id"), model.LifecycleStatus(req.Status), h.now())
	h.respond(c, http.StatusOK, res, err, res != nil)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelBooking(c *gin.Context) {
	var req cancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	res, err := h.bookings.Cancel(c.Request.Context(), c.Param("id"), req.Reason, h.now())
	h.respond(c, http.StatusOK, res, err, false)
}

func (h *Handler) SubmitHostReport(c *gin.Context) {
	res, err := h.bookings.SubmitHostReport(c.Request.Context(), c.Param("id"), h.now())
	h.respond(c, http.StatusOK, res, err, false)
}

// PlanFamily runs one family's planner. force=true replaces live jobs.
func (h *Handler) PlanFamily(c *gin.Context) {
	force := false
	if raw := c.Query("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "force must be a boolean")
			return
		}
		force = v
	}
	res, err := h.planner.PlanFamily(c.Request.Context(), c.Param("id"), model.JobFamily(c.Param("family")), force, h.now())
	h.respond(c, http.StatusOK, res, err, false)
}

func (h *Handler) RescheduleFamily(c *gin.Context) {
	res, err := h.planner.ForceReschedule(c.Request.Context(), c.Param("id"), model.JobFamily(c.Param("family")), h.now())
	h.respond(c, http.StatusOK, res, err, false)
}

func (h *Handler) GetBookingJobs(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.bookings.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	jobs, err := h.bookings.Jobs(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) GetBookingEvents(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.bookings.Get(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	events, err := h.bookings.Events(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
