package repository

import (
	"context"
	"errors"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	// FindPendingByRequest returns the newest pending payment for the request.
	FindPendingByRequest(ctx context.Context, requestID string) (*model.Payment, error)
	FindPendingBySession(ctx context.Context, requestID, sessionID string) (*model.Payment, error)
	AttachSession(ctx context.Context, id, sessionID string) error
	MarkCompleted(ctx context.Context, id string) error
	// MarkRefundDue flags a captured payment that must be returned.
	MarkRefundDue(ctx context.Context, id string) error
	ListByRequest(ctx context.Context, requestID string) ([]model.Payment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, p *model.Payment) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = model.PaymentStatusPending
	}
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepository) FindPendingByRequest(ctx context.Context, requestID string) (*model.Payment, error) {
	return r.first(ctx, "repair_request_id = ? AND status = ?", requestID, string(model.PaymentStatusPending))
}

func (r *paymentRepository) FindPendingBySession(ctx context.Context, requestID, sessionID string) (*model.Payment, error) {
	return r.first(ctx, "repair_request_id = ? AND stripe_session_id = ? AND status = ?", requestID, sessionID, string(model.PaymentStatusPending))
}

func (r *paymentRepository) first(ctx context.Context, query string, args ...interface{}) (*model.Payment, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Payment
	if err := r.db.WithContext(ctx).Where(query, args...).Order("created_at DESC").First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) AttachSession(ctx context.Context, id, sessionID string) error {
	return r.update(ctx, id, map[string]interface{}{"stripe_session_id": sessionID})
}

func (r *paymentRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]interface{}{"status": string(model.PaymentStatusCompleted)})
}

func (r *paymentRepository) MarkRefundDue(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]interface{}{"status": string(model.PaymentStatusRefundDue)})
}

func (r *paymentRepository) update(ctx context.Context, id string, updates map[string]interface{}) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Payment, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Payment
	if err := r.db.WithContext(ctx).Where("repair_request_id = ?", requestID).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

type firestorePaymentRepository struct {
	client *firestore.Client
}

func NewFirestorePaymentRepository(client *firestore.Client) PaymentRepository {
	return &firestorePaymentRepository{client: client}
}

func (r *firestorePaymentRepository) Create(ctx context.Context, p *model.Payment) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = model.PaymentStatusPending
	}
	_, err := r.client.Collection(model.CollectionPayments).Doc(p.ID).Create(ctx, p)
	return err
}

func (r *firestorePaymentRepository) FindPendingByRequest(ctx context.Context, requestID string) (*model.Payment, error) {
	list, err := r.query(ctx, r.client.Collection(model.CollectionPayments).
		Where("repairRequestId", "==", requestID).
		Where("status", "==", string(model.PaymentStatusPending)))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *firestorePaymentRepository) FindPendingBySession(ctx context.Context, requestID, sessionID string) (*model.Payment, error) {
	list, err := r.query(ctx, r.client.Collection(model.CollectionPayments).
		Where("repairRequestId", "==", requestID).
		Where("stripeSessionId", "==", sessionID).
		Where("status", "==", string(model.PaymentStatusPending)))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return &list[0], nil
}

func (r *firestorePaymentRepository) AttachSession(ctx context.Context, id, sessionID string) error {
	return r.update(ctx, id, firestore.Update{Path: "stripeSessionId", Value: sessionID})
}

func (r *firestorePaymentRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.update(ctx, id, firestore.Update{Path: "status", Value: string(model.PaymentStatusCompleted)})
}

func (r *firestorePaymentRepository) MarkRefundDue(ctx context.Context, id string) error {
	return r.update(ctx, id, firestore.Update{Path: "status", Value: string(model.PaymentStatusRefundDue)})
}

func (r *firestorePaymentRepository) update(ctx context.Context, id string, u firestore.Update) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	_, err := r.client.Collection(model.CollectionPayments).Doc(id).Update(ctx, []firestore.Update{
		u,
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil && isNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (r *firestorePaymentRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Payment, error) {
	return r.query(ctx, r.client.Collection(model.CollectionPayments).Where("repairRequestId", "==", requestID))
}

// query sorts in memory, newest first, so equality filters need no composite index.
func (r *firestorePaymentRepository) query(ctx context.Context, q firestore.Query) ([]model.Payment, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]model.Payment, 0, len(snaps))
	for _, snap := range snaps {
		var p model.Payment
		if err := snap.DataTo(&p); err != nil {
			return nil, err
		}
		p.ID = snap.Ref.ID
		list = append(list, p)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
