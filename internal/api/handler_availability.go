package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venue-booking-backend/internal/availability"
	"venue-booking-backend/internal/interval"
	"venue-booking-backend/internal/model"
)

// GetAvailability resolves a proposed window without storing anything.
func (h *Handler) GetAvailability(c *gin.Context) {
	p := availability.Proposal{
		Type:      model.BookingType(c.Query("type")),
		Date:      c.Query("date"),
		StartTime: c.Query("start"),
		EndTime:   c.Query("end"),
	}
	if !p.Type.Valid() {
		badRequest(c, "type must be daily or hourly")
		return
	}
	if _, err := interval.ParseDate(p.Date); err != nil {
		badRequest(c, err.Error())
		return
	}

	decision, err := h.bookings.Check(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// GetCalendar lists bookings, blocks and blackouts in [from, to].
func (h *Handler) GetCalendar(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, "from and to are required")
		return
	}
	occ, err := h.bookings.Calendar(c.Request.Context(), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, occ)
}
