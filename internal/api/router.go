package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"equipment-status-backend/config"
	"equipment-status-backend/internal/mw"
	"equipment-status-backend/internal/reconcile"
	"equipment-status-backend/internal/statussync"
	"equipment-status-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, s store.Store, sync *statussync.Synchronizer, rec *reconcile.Reconciler, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	db := s.DB()
	handler := NewHandler(s, sync, rec, webpushOptions)

	rps := rate.Limit(cfg.RateLimitPerSec)
	if rps <= 0 {
		rps = rate.Limit(10)
	}
	rateLimiter := mw.RateLimiter(rps, 5, cfg.RequestIPHeader)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Read side; responses are cacheable.
		api.GET("/equipment", caching, GetEquipment(db))
		api.GET("/categories", caching, GetCategories(db))
		api.GET("/equipment/:id/status", handler.GetEquipmentStatus)

		// Engine write paths.
		api.POST("/equipment/:id/status", handler.ChangeStatus)
		api.POST("/faults", handler.CreateFault)
		api.POST("/faults/:id/status", handler.AdvanceFault)
		api.POST("/repairs", handler.CreateRepair)
		api.POST("/repairs/:id/status", handler.AdvanceRepair)

		// Reconciliation.
		api.GET("/reconcile/diagnose", handler.Diagnose)
		api.POST("/reconcile/repair", handler.RepairAll)

		// Push subscriptions.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
