// Package notification pushes request activity to the browsers subscribed
// to a maintenance team.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"gearguard-backend/internal/metrics"
	"gearguard-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender sends through the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Event is one piece of request activity to announce.
type Event struct {
	Request model.Request
	// From is the previous status; empty for a newly created request.
	From model.RequestStatus
}

// Message is the push payload delivered to the browser.
type Message struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
}

func (e Event) message() Message {
	m := Message{RequestID: e.Request.ID, Status: string(e.Request.Status)}
	if e.From == "" {
		m.Title = "New maintenance request"
		m.Body = fmt.Sprintf("%s (%s priority)", e.Request.Subject, e.Request.Priority)
	} else {
		m.Title = "Request status changed"
		m.Body = fmt.Sprintf("%s moved from %s to %s", e.Request.Subject, e.From, e.Request.Status)
	}
	return m
}

// WorkerPool fans request events out to team subscribers.
type WorkerPool struct {
	size    int
	jobs    chan Event
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, log *zap.Logger, m *metrics.Metrics) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("push"),
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case ev := <-wp.jobs:
			wp.deliver(ctx, ev)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an event. A full queue drops the event so request
// handling never waits on push delivery.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn("push queue full, dropping event", zap.String("request", ev.Request.ID))
		return false
	}
}

// RequestCreated announces a new request to its team.
func (wp *WorkerPool) RequestCreated(r model.Request) {
	wp.Dispatch(Event{Request: r})
}

// RequestStatusChanged announces a status move to the request's team.
func (wp *WorkerPool) RequestStatusChanged(r model.Request, from model.RequestStatus) {
	wp.Dispatch(Event{Request: r, From: from})
}

func (wp *WorkerPool) deliver(ctx context.Context, ev Event) {
	team := ev.Request.MaintenanceTeam
	subs, err := wp.subs.ForTeam(ctx, team)
	if err != nil {
		wp.log.Error("fetching subscriptions failed", zap.String("team", team), zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(ev.message())
	if err != nil {
		wp.log.Error("encoding push payload failed", zap.Error(err))
		return
	}
	wp.log.Debug("sending notifications", zap.String("team", team), zap.Int("count", len(subs)))
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
		wp.metrics.PushDelivered(false)
		wp.log.Warn("push delivery failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		wp.metrics.PushDelivered(false)
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.Delete(ctx, sub.Endpoint); err != nil {
			wp.log.Error("deleting expired subscription failed", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	case resp.StatusCode >= 400:
		wp.metrics.PushDelivered(false)
		wp.log.Warn("push service rejected notification", zap.String("endpoint", sub.Endpoint), zap.Int("status", resp.StatusCode))
	default:
		wp.metrics.PushDelivered(true)
	}
}
