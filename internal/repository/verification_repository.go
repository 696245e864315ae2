package repository

import (
	"context"
	"sort"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
)

// VerificationRepository is an append-only audit trail.
type VerificationRepository interface {
	Create(ctx context.Context, v *model.Verification) error
	ListByRequest(ctx context.Context, requestID string) ([]model.Verification, error)
}

type verificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Create(ctx context.Context, v *model.Verification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *verificationRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Verification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Verification
	if err := r.db.WithContext(ctx).Where("repair_request_id = ?", requestID).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

type firestoreVerificationRepository struct {
	client *firestore.Client
}

func NewFirestoreVerificationRepository(client *firestore.Client) VerificationRepository {
	return &firestoreVerificationRepository{client: client}
}

func (r *firestoreVerificationRepository) Create(ctx context.Context, v *model.Verification) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := r.client.Collection(model.CollectionVerifications).Doc(v.ID).Create(ctx, v)
	return err
}

func (r *firestoreVerificationRepository) ListByRequest(ctx context.Context, requestID string) ([]model.Verification, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snaps, err := r.client.Collection(model.CollectionVerifications).Where("repairRequestId", "==", requestID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]model.Verification, 0, len(snaps))
	for _, snap := range snaps {
		var v model.Verification
		if err := snap.DataTo(&v); err != nil {
			return nil, err
		}
		v.ID = snap.Ref.ID
		list = append(list, v)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}
