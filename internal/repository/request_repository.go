package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"gorm.io/gorm"
)

// RequestRepository reads repair requests from both the canonical and the
// legacy collection and writes new ones to the canonical collection only.
type RequestRepository interface {
	Create(ctx context.Context, req *model.RepairRequest) error
	FindByID(ctx context.Context, id string) (*model.RepairRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]model.RepairRequest, error)
	ListByRepairer(ctx context.Context, repairerID string) ([]model.RepairRequest, error)
	ListByStatus(ctx context.Context, statuses []model.RepairStatus) ([]model.RepairRequest, error)
	// Update applies patch only while the stored status still equals expected
	// (empty expected skips the check). Returns ErrNotFound or ErrConflict.
	Update(ctx context.Context, id string, expected model.RepairStatus, patch RequestPatch) (*model.RepairRequest, error)
}

// RequestPatch holds the mutable fields of a request. Zero values are left untouched.
type RequestPatch struct {
	Status             model.RepairStatus
	RepairerID         string
	DiagnosticReportID string
	Price              *float64
}

func (p RequestPatch) applyTo(req *model.RepairRequest) {
	if p.Status != "" {
		req.Status = p.Status
	}
	// repairerId is never overwritten once set
	if p.RepairerID != "" && req.RepairerID == "" {
		req.RepairerID = p.RepairerID
	}
	if p.DiagnosticReportID != "" {
		req.DiagnosticReportID = p.DiagnosticReportID
	}
	if p.Price != nil {
		v := *p.Price
		req.Price = &v
	}
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.RepairRequest) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Table(model.CollectionRepairRequests).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id string) (*model.RepairRequest, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	req, _, err := findRequest(r.db.WithContext(ctx), id)
	return req, err
}

func findRequest(tx *gorm.DB, id string) (*model.RepairRequest, string, error) {
	for _, table := range model.RequestCollections {
		var req model.RepairRequest
		err := tx.Table(table).Where("id = ?", id).Take(&req).Error
		if err == nil {
			return &req, table, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}
	return nil, "", ErrNotFound
}

func (r *requestRepository) ListByRequester(ctx context.Context, requesterID string) ([]model.RepairRequest, error) {
	return r.listAll(ctx, "user_id = ?", requesterID)
}

func (r *requestRepository) ListByRepairer(ctx context.Context, repairerID string) ([]model.RepairRequest, error) {
	return r.listAll(ctx, "repairer_id = ?", repairerID)
}

func (r *requestRepository) ListByStatus(ctx context.Context, statuses []model.RepairStatus) ([]model.RepairRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.listAll(ctx, "status IN ?", values)
}

func (r *requestRepository) listAll(ctx context.Context, query string, args ...interface{}) ([]model.RepairRequest, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	batches := make([][]model.RepairRequest, 0, len(model.RequestCollections))
	for _, table := range model.RequestCollections {
		var list []model.RepairRequest
		if err := r.db.WithContext(ctx).Table(table).Where(query, args...).Find(&list).Error; err != nil {
			return nil, err
		}
		batches = append(batches, list)
	}
	return mergeRequests(batches...), nil
}

func (r *requestRepository) Update(ctx context.Context, id string, expected model.RepairStatus, patch RequestPatch) (*model.RepairRequest, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var out *model.RepairRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, table, err := findRequest(tx, id)
		if err != nil {
			return err
		}
		if expected != "" && cur.Status != expected {
			return ErrConflict
		}
		now := tx.NowFunc()
		updates := map[string]interface{}{"updated_at": now}
		if patch.Status != "" {
			updates["status"] = string(patch.Status)
		}
		if patch.RepairerID != "" && cur.RepairerID == "" {
			updates["repairer_id"] = patch.RepairerID
		}
		if patch.DiagnosticReportID != "" {
			updates["diagnostic_report_id"] = patch.DiagnosticReportID
		}
		if patch.Price != nil {
			updates["price"] = *patch.Price
		}
		q := tx.Table(table).Where("id = ?", id)
		if expected != "" {
			q = q.Where("status = ?", string(expected))
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		patch.applyTo(cur)
		cur.UpdatedAt = now
		out = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// mergeRequests concatenates per-collection results, dropping ids already seen
// in an earlier (more canonical) batch, newest first.
func mergeRequests(batches ...[]model.RepairRequest) []model.RepairRequest {
	seen := make(map[string]struct{})
	out := make([]model.RepairRequest, 0)
	for _, batch := range batches {
		for _, req := range batch {
			if _, ok := seen[req.ID]; ok {
				continue
			}
			seen[req.ID] = struct{}{}
			out = append(out, req)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
