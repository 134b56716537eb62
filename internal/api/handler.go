package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"equipment-status-backend/internal/reconcile"
	"equipment-status-backend/internal/statussync"
	"equipment-status-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	sync       *statussync.Synchronizer
	reconciler *reconcile.Reconciler
	webpush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, sync *statussync.Synchronizer, rec *reconcile.Reconciler, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:      s,
		sync:       sync,
		reconciler: rec,
		webpush:    webpushOptions,
	}
}
