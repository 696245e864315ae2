package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
)

// ReportRepository stores diagnostic reports. Reports are never updated.
type ReportRepository interface {
	Create(ctx context.Context, rep *model.DiagnosticReport) error
	FindByID(ctx context.Context, id string) (*model.DiagnosticReport, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, rep *model.DiagnosticReport) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *reportRepository) FindByID(ctx context.Context, id string) (*model.DiagnosticReport, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var rep model.DiagnosticReport
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&rep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

type firestoreReportRepository struct {
	client *firestore.Client
}

func NewFirestoreReportRepository(client *firestore.Client) ReportRepository {
	return &firestoreReportRepository{client: client}
}

func (r *firestoreReportRepository) Create(ctx context.Context, rep *model.DiagnosticReport) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	_, err := r.client.Collection(model.CollectionDiagnosticReports).Doc(rep.ID).Create(ctx, rep)
	return err
}

func (r *firestoreReportRepository) FindByID(ctx context.Context, id string) (*model.DiagnosticReport, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	if id == "" {
		return nil, ErrNotFound
	}
	snap, err := r.client.Collection(model.CollectionDiagnosticReports).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rep model.DiagnosticReport
	if err := snap.DataTo(&rep); err != nil {
		return nil, err
	}
	rep.ID = snap.Ref.ID
	return &rep, nil
}
