package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxDueJobs = 500

// GetDueJobs lists pending jobs whose run time has passed, oldest first.
func (h *Handler) GetDueJobs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(v, maxDueJobs)
	}
	jobs, err := h.jobs.DueJobs(c.Request.Context(), h.now(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) CompleteJob(c *gin.Context) {
	if err := h.jobs.CompleteJob(c.Request.Context(), c.Param("id"), h.now()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type failJobRequest struct {
	Error string `json:"error" binding:"required"`
}

func (h *Handler) FailJob(c *gin.Context) {
	var req failJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.jobs.FailJob(c.Request.Context(), c.Param("id"), req.Error, h.now()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RequeueJob moves a failed job back to pending for another attempt.
func (h *Handler) RequeueJob(c *gin.Context) {
	if err := h.jobs.RequeueJob(c.Request.Context(), c.Param("id"), h.now()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
