package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return 20
	}
	return limit
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Notification
	q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if err := q.Order("created_at DESC").Limit(clampLimit(limit)).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	now := r.db.NowFunc()
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now).Error
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	if r.db == nil {
		return 0, ErrDBNotReady
	}
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

type firestoreNotificationRepository struct {
	client *firestore.Client
}

func NewFirestoreNotificationRepository(client *firestore.Client) NotificationRepository {
	return &firestoreNotificationRepository{client: client}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := r.client.Collection(model.CollectionNotifications).Doc(n.ID).Create(ctx, n)
	return err
}

// unread-ness is filtered in memory: Firestore cannot query for a missing field.
func (r *firestoreNotificationRepository) all(ctx context.Context, userID string) ([]model.Notification, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snaps, err := r.client.Collection(model.CollectionNotifications).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]model.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n model.Notification
		if err := snap.DataTo(&n); err != nil {
			return nil, err
		}
		n.ID = snap.Ref.ID
		list = append(list, n)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (r *firestoreNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]model.Notification, error) {
	list, err := r.all(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(list))
	for _, n := range list {
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
		if len(out) == clampLimit(limit) {
			break
		}
	}
	return out, nil
}

func (r *firestoreNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	list, err := r.all(ctx, userID)
	if err != nil {
		return err
	}
	bw := r.client.BulkWriter(ctx)
	for _, n := range list {
		if n.ReadAt != nil {
			continue
		}
		ref := r.client.Collection(model.CollectionNotifications).Doc(n.ID)
		if _, err := bw.Update(ref, []firestore.Update{{Path: "readAt", Value: firestore.ServerTimestamp}}); err != nil {
			bw.End()
			return err
		}
	}
	bw.End()
	return nil
}

func (r *firestoreNotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	list, err := r.all(ctx, userID)
	if err != nil {
		return 0, err
	}
	var cnt int64
	for _, n := range list {
		if n.ReadAt == nil {
			cnt++
		}
	}
	return cnt, nil
}
