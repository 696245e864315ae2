package service

import (
	"context"
	"log"
	"time"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
)

type NotificationService interface {
	Notify(ctx context.Context, userID string, typ model.NotificationType, title, body, requestID string)
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

// Notify is best-effort; failures are logged and never reach the caller.
func (s *notificationService) Notify(ctx context.Context, userID string, typ model.NotificationType, title, body, requestID string) {
	if s == nil || s.repo == nil || userID == "" || typ == "" {
		return
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	n := &model.Notification{
		UserID:          userID,
		Type:            typ,
		Title:           title,
		Body:            body,
		RepairRequestID: requestID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Printf("[notify] rid=%s req=%s user=%s type=%s err=%v", reqctx.RID(ctx), requestID, userID, typ, err)
	}
}

func (s *notificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userID)
}

func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
