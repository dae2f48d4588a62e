package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/config"
	appErrors "github.com/chendurkumaran/Edu-resource-sub000/pkg/errors"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string, at time.Time) error
}

type notificationJob struct {
	UserID  string
	Event   models.NotificationEvent
	Payload json.RawMessage
}

// NotificationService fans workflow events out to per-user notification
// rows. Emitting never blocks or fails the calling workflow: events go
// through an in-memory queue and failures are logged, not surfaced.
type NotificationService struct {
	store   notificationStore
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(store notificationStore, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{store: store, enabled: cfg.Enabled, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handleJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Notify enqueues an event for the given recipient. The payload is
// marshalled up front so a bad payload is caught in the caller's logs
// rather than a worker retry loop.
func (s *NotificationService) Notify(ctx context.Context, userID string, event models.NotificationEvent, payload interface{}) {
	if !s.enabled || userID == "" {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("notification payload marshal failed", zap.String("event", string(event)), zap.Error(err))
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: string(event),
		Payload: notificationJob{
			UserID:  userID,
			Event:   event,
			Payload: raw,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped", zap.String("event", string(event)), zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(notificationJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.store.Create(ctx, &models.Notification{
		UserID:  payload.UserID,
		Event:   payload.Event,
		Payload: payload.Payload,
	})
}

// List returns the most recent notifications for a user.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead stamps a notification as read by its owner.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.store.MarkRead(ctx, id, userID, time.Now().UTC()); err != nil {
		return appErrors.ErrNotFound
	}
	return nil
}
