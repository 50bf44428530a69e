package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venue-booking-backend/internal/model"
)

type blockRequest struct {
	BlockType model.BookingType `json:"blockType" binding:"required"`
	StartDate string            `json:"startDate" binding:"required"`
	EndDate   string            `json:"endDate"`
	StartTime string            `json:"startTime"`
	EndTime   string            `json:"endTime"`
	Reason    string            `json:"reason"`
}

func (h *Handler) CreateBlock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.EndDate == "" {
		req.EndDate = req.StartDate
	}
	block := &model.AvailabilityBlock{
		BlockType: req.BlockType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}
	if err := h.bookings.CreateBlock(c.Request.Context(), block); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, block)
}

func (h *Handler) DeleteBlock(c *gin.Context) {
	if err := h.bookings.DeleteBlock(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blackoutRequest struct {
	StartDate string `json:"startDate" binding:"required"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (h *Handler) CreateBlackout(c *gin.Context) {
	var req blackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.EndDate == "" {
		req.EndDate = req.StartDate
	}
	blackout := &model.BlackoutDate{StartDate: req.StartDate, EndDate: req.EndDate, Reason: req.Reason}
	if err := h.bookings.CreateBlackout(c.Request.Context(), blackout); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blackout)
}

func (h *Handler) DeleteBlackout(c *gin.Context) {
	if err := h.bookings.DeleteBlackout(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
