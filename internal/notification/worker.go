package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"hotel-reservation-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is what the pool needs from persistence.
type SubscriptionStore interface {
	SubscriptionsForClients(ctx context.Context, clientIDs []int64) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool delivers events as web push notifications to every
// subscription of the event's recipients.
type WorkerPool struct {
	size    int
	jobs    chan Event
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*4),
		store:   store,
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

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("[notification] push worker %d started", id)
	for {
		select {
		case evt := <-wp.jobs:
			wp.deliver(ctx, evt)
		case <-ctx.Done():
			log.Printf("[notification] push worker %d shutting down", id)
			return
		}
	}
}

// Publish queues an event. It gives up when ctx is done.
func (wp *WorkerPool) Publish(ctx context.Context, evt Event) {
	select {
	case wp.jobs <- evt:
	case <-ctx.Done():
		log.Printf("[notification] dropped %s for reservation %d: %v", evt.Kind, evt.ReservationID, ctx.Err())
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

type pushPayload struct {
	Title         string `json:"title"`
	Body          string `json:"body"`
	Kind          string `json:"kind"`
	ReservationID int64  `json:"reservationId"`
}

func (wp *WorkerPool) deliver(ctx context.Context, evt Event) {
	subs, err := wp.store.SubscriptionsForClients(ctx, evt.ClientIDs)
	if err != nil {
		log.Printf("[notification] error fetching subscriptions for reservation %d: %v", evt.ReservationID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		Title:         evt.Subject,
		Body:          evt.Body,
		Kind:          evt.Kind,
		ReservationID: evt.ReservationID,
	})
	if err != nil {
		log.Printf("[notification] payload marshal failed: %v", err)
		return
	}

	log.Printf("[notification] sending %d push notifications for %s reservation=%d", len(subs), evt.Kind, evt.ReservationID)
	for _, sub := range subs {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("[notification] error sending to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("[notification] subscription %s expired, deleting", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("[notification] failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
