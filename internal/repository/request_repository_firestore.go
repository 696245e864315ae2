package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/shinyyama/quickfix-backend/internal/model"
)

type firestoreRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreRequestRepository(client *firestore.Client) RequestRepository {
	return &firestoreRequestRepository{client: client}
}

func (r *firestoreRequestRepository) Create(ctx context.Context, req *model.RepairRequest) error {
	if r.client == nil {
		return ErrDBNotReady
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ref := r.client.Collection(model.CollectionRepairRequests).Doc(req.ID)
	if _, err := ref.Create(ctx, req); err != nil {
		return err
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return err
	}
	stored, err := decodeRequest(snap)
	if err != nil {
		return err
	}
	*req = *stored
	return nil
}

func (r *firestoreRequestRepository) FindByID(ctx context.Context, id string) (*model.RepairRequest, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snap, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeRequest(snap)
}

// locate looks the id up as a document id first, then as an "id" field, in
// each collection in turn. Some legacy documents carry an id field that does
// not match their document id.
func (r *firestoreRequestRepository) locate(ctx context.Context, id string) (*firestore.DocumentSnapshot, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	for _, name := range model.RequestCollections {
		col := r.client.Collection(name)
		snap, err := col.Doc(id).Get(ctx)
		if err == nil {
			return snap, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
		snaps, err := col.Where("id", "==", id).Limit(1).Documents(ctx).GetAll()
		if err != nil {
			return nil, err
		}
		if len(snaps) > 0 {
			return snaps[0], nil
		}
	}
	return nil, ErrNotFound
}

func decodeRequest(snap *firestore.DocumentSnapshot) (*model.RepairRequest, error) {
	var req model.RepairRequest
	if err := snap.DataTo(&req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = snap.Ref.ID
	}
	return &req, nil
}

func (r *firestoreRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]model.RepairRequest, error) {
	return r.listAll(ctx, func(col *firestore.CollectionRef) firestore.Query {
		return col.Where("userId", "==", requesterID)
	})
}

func (r *firestoreRequestRepository) ListByRepairer(ctx context.Context, repairerID string) ([]model.RepairRequest, error) {
	return r.listAll(ctx, func(col *firestore.CollectionRef) firestore.Query {
		return col.Where("repairerId", "==", repairerID)
	})
}

func (r *firestoreRequestRepository) ListByStatus(ctx context.Context, statuses []model.RepairStatus) ([]model.RepairRequest, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return r.listAll(ctx, func(col *firestore.CollectionRef) firestore.Query {
		return col.Where("status", "in", values)
	})
}

func (r *firestoreRequestRepository) listAll(ctx context.Context, build func(*firestore.CollectionRef) firestore.Query) ([]model.RepairRequest, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	batches := make([][]model.RepairRequest, 0, len(model.RequestCollections))
	for _, name := range model.RequestCollections {
		snaps, err := build(r.client.Collection(name)).Documents(ctx).GetAll()
		if err != nil {
			return nil, err
		}
		list := make([]model.RepairRequest, 0, len(snaps))
		for _, snap := range snaps {
			req, err := decodeRequest(snap)
			if err != nil {
				return nil, err
			}
			list = append(list, *req)
		}
		batches = append(batches, list)
	}
	return mergeRequests(batches...), nil
}

func (r *firestoreRequestRepository) Update(ctx context.Context, id string, expected model.RepairStatus, patch RequestPatch) (*model.RepairRequest, error) {
	if r.client == nil {
		return nil, ErrDBNotReady
	}
	snap, err := r.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	ref := snap.Ref
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		cur, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		req, err := decodeRequest(cur)
		if err != nil {
			return err
		}
		if expected != "" && req.Status != expected {
			return ErrConflict
		}
		updates := []firestore.Update{{Path: "updatedAt", Value: firestore.ServerTimestamp}}
		if patch.Status != "" {
			updates = append(updates, firestore.Update{Path: "status", Value: string(patch.Status)})
		}
		if patch.RepairerID != "" && req.RepairerID == "" {
			updates = append(updates, firestore.Update{Path: "repairerId", Value: patch.RepairerID})
		}
		if patch.DiagnosticReportID != "" {
			updates = append(updates, firestore.Update{Path: "diagnosticReportId", Value: patch.DiagnosticReportID})
		}
		if patch.Price != nil {
			updates = append(updates, firestore.Update{Path: "price", Value: *patch.Price})
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, err
	}
	after, err := ref.Get(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRequest(after)
}
