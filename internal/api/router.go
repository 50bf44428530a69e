package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"venue-booking-backend/config"
	"venue-booking-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		r.Use(gin.Logger())
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.Invalidate(cacheStore))
	{
		api.GET("/availability", caching, handler.GetAvailability)
		api.GET("/calendar", caching, handler.GetCalendar)

		api.POST("/bookings", handler.CreateBooking)
		api.GET("/bookings/:id", handler.GetBooking)
		api.POST("/bookings/:id/payment-status", handler.UpdatePaymentStatus)
		api.POST("/bookings/:id/lifecycle", handler.UpdateLifecycle)
		api.POST("/bookings/:id/cancel", handler.CancelBooking)
		api.POST("/bookings/:id/host-report", handler.SubmitHostReport)
		api.POST("/bookings/:id/plan/:family", handler.PlanFamily)
		api.POST("/bookings/:id/reschedule/:family", handler.RescheduleFamily)
		api.GET("/bookings/:id/jobs", handler.GetBookingJobs)
		api.GET("/bookings/:id/events", handler.GetBookingEvents)

		api.POST("/blocks", handler.CreateBlock)
		api.DELETE("/blocks/:id", handler.DeleteBlock)
		api.POST("/blackouts", handler.CreateBlackout)
		api.DELETE("/blackouts/:id", handler.DeleteBlackout)

		api.GET("/jobs/due", handler.GetDueJobs)
		api.POST("/jobs/:id/complete", handler.CompleteJob)
		api.POST("/jobs/:id/fail", handler.FailJob)
		api.POST("/jobs/:id/requeue", handler.RequeueJob)

		api.GET("/staff/subscriptions", handler.GetSubscription)
		api.PUT("/staff/subscriptions", handler.PutSubscription)
		api.DELETE("/staff/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
