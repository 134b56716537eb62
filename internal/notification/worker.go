package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"equipment-status-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Job is one status-change notification to fan out to subscribed observers.
type Job struct {
	EquipmentID string `json:"equipmentId"`
	Kind        string `json:"kind"`
	Message     string `json:"message"`
}

// WorkerPool manages a pool of workers for sending notifications. It
// implements the engine's Notifier contract: Notify never blocks and never
// reports failure to the caller.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case job := <-wp.jobs:
			log.Printf("Notification worker %d processing %s for equipment %s", id, job.Kind, job.EquipmentID)
			wp.sendForEquipment(ctx, job)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Notify enqueues a job for the pool. The channel is buffered; when it is
// full the notification is dropped and logged, keeping the synchronizer's
// write path from ever blocking on the side channel.
func (wp *WorkerPool) Notify(equipmentID, kind, message string) {
	select {
	case wp.jobs <- Job{EquipmentID: equipmentID, Kind: kind, Message: message}:
	default:
		log.Printf("Notification queue full, dropping %s for equipment %s", kind, equipmentID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// sendForEquipment fetches subscriptions and sends the notification to each.
func (wp *WorkerPool) sendForEquipment(ctx context.Context, job Job) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_equipment_mapping sem ON sem.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("sem.equipment_id = ?", job.EquipmentID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("Error fetching subscriptions for equipment %s: %v", job.EquipmentID, err)
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	log.Printf("Sending %d notifications for equipment %s", len(subscriptions), job.EquipmentID)

	var equip model.Equipment
	label := job.EquipmentID
	if err := wp.db.WithContext(ctx).
		Select("number", "name").
		First(&equip, "id = ?", job.EquipmentID).Error; err != nil {
		log.Printf("Error fetching equipment %s: %v", job.EquipmentID, err)
	} else if equip.Number != "" {
		label = equip.Number
	}

	payload, err := json.Marshal(map[string]string{
		"equipment": label,
		"kind":      job.Kind,
		"message":   job.Message,
	})
	if err != nil {
		log.Printf("Error encoding notification payload for equipment %s: %v", job.EquipmentID, err)
		return
	}

	for _, sub := range subscriptions {
		wp.sendOne(ctx, sub, payload)
	}
}

// sendOne sends a single web push notification.
func (wp *WorkerPool) sendOne(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
