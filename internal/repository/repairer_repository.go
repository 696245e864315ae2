package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RepairerRepository interface {
	List(ctx context.Context) ([]model.RepairerProfile, error)
	FindByID(ctx context.Context, id string) (*model.RepairerProfile, error)
	// Save inserts or fully replaces the profile keyed by its id.
	Save(ctx context.Context, p *model.RepairerProfile) error
}

type repairerRepository struct {
	db *gorm.DB
}

func NewRepairerRepository(db *gorm.DB) RepairerRepository {
	return &repairerRepository{db: db}
}

func (r *repairerRepository) List(ctx context.Context) ([]model.RepairerProfile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.RepairerProfile
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repairerRepository) FindByID(ctx context.Context, id string) (*model.RepairerProfile, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.RepairerProfile
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repairerRepository) Save(ctx context.Context, p *model.RepairerProfile) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(p).Error
}

type firestoreRepairerRepository struct {
	client *firestore.Client
}

func NewFirestoreRepairerRepository(client *firestore.Client) RepairerRepository {
	return &firestoreRepairerRepository{client: client}
}

func (r *firestoreRepairerRepository) List(ctx context.Context) ([]model.RepairerProfile, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snaps, err := r.client.Collection(model.CollectionRepairers).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]model.RepairerProfile, 0, len(snaps))
	for _, snap := range snaps {
		var p model.RepairerProfile
		if err := snap.DataTo(&p); err != nil {
			return nil, err
		}
		if p.ID == "" {
			p.ID = snap.Ref.ID
		}
		list = append(list, p)
	}
	return list, nil
}

func (r *firestoreRepairerRepository) FindByID(ctx context.Context, id string) (*model.RepairerProfile, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.client.Collection(model.CollectionRepairers).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var p model.RepairerProfile
	if err := snap.DataTo(&p); err != nil {
		return nil, err
	}
	p.ID = snap.Ref.ID
	return &p, nil
}

func (r *firestoreRepairerRepository) Save(ctx context.Context, p *model.RepairerProfile) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	_, err := r.client.Collection(model.CollectionRepairers).Doc(p.ID).Set(ctx, p)
	return err
}
