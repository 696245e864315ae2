package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, AutoMigrate(db))
	return db
}

func newRequest(requester string) *model.RepairRequest {
	return &model.RepairRequest{
		RequesterID: requester,
		Title:       "Cracked screen",
		Description: "Phone screen cracked after a fall",
		Category:    string(model.CategoryElectronics),
		ImageURLs:   []string{"https://img/1.jpg"},
		Location:    model.GeoPoint{Latitude: 19.07, Longitude: 72.87, Address: "Mumbai"},
		Status:      model.StatusPendingDiagnosis,
	}
}

func TestRequestRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(setupDB(t))

	req := newRequest("u1")
	require.NoError(t, repo.Create(ctx, req))
	require.NotEmpty(t, req.ID)

	got, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req.RequesterID, got.RequesterID)
	assert.Equal(t, req.Title, got.Title)
	assert.Equal(t, req.ImageURLs, got.ImageURLs)
	assert.Equal(t, req.Location, got.Location)
	assert.Equal(t, model.StatusPendingDiagnosis, got.Status)
	assert.Nil(t, got.Price)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestFindByIDMissing(t *testing.T) {
	repo := NewRequestRepository(setupDB(t))
	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLegacyRecordIsReadableAndUpdatable(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewRequestRepository(db)

	legacy := newRequest("u1")
	legacy.ID = "legacy-1"
	legacy.Status = model.StatusAwaitingPayment
	require.NoError(t, db.Table(model.CollectionLegacyRepairRequests).Create(legacy).Error)

	got, err := repo.FindByID(ctx, "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingPayment, got.Status)

	updated, err := repo.Update(ctx, "legacy-1", model.StatusAwaitingPayment, RequestPatch{Status: model.StatusPaid})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaid, updated.Status)

	var stored model.RepairRequest
	require.NoError(t, db.Table(model.CollectionLegacyRepairRequests).Where("id = ?", "legacy-1").Take(&stored).Error)
	assert.Equal(t, model.StatusPaid, stored.Status)

	var count int64
	require.NoError(t, db.Table(model.CollectionRepairRequests).Where("id = ?", "legacy-1").Count(&count).Error)
	assert.Zero(t, count, "update must not copy the record into the canonical table")
}

func TestUpdateConflictOnStatusMismatch(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(setupDB(t))
	req := newRequest("u1")
	require.NoError(t, repo.Create(ctx, req))

	_, err := repo.Update(ctx, req.ID, model.StatusDiagnosed, RequestPatch{Status: model.StatusAccepted})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.Update(ctx, "missing", model.StatusDiagnosed, RequestPatch{Status: model.StatusAccepted})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateNeverOverwritesRepairer(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(setupDB(t))
	req := newRequest("u1")
	req.RepairerID = "r1"
	req.Status = model.StatusAwaitingRepairer
	require.NoError(t, repo.Create(ctx, req))

	price := 120.0
	got, err := repo.Update(ctx, req.ID, model.StatusAwaitingRepairer, RequestPatch{
		Status:     model.StatusAccepted,
		RepairerID: "r2",
		Price:      &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RepairerID)
	require.NotNil(t, got.Price)
	assert.Equal(t, 120.0, *got.Price)

	again, err := repo.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "r1", again.RepairerID)
	assert.Equal(t, model.StatusAccepted, again.Status)
}

func TestListsMergeBothCollections(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	repo := NewRequestRepository(db)

	older := newRequest("u1")
	older.ID = "old"
	older.RepairerID = "r1"
	older.Status = model.StatusAwaitingRepairer
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, db.Table(model.CollectionLegacyRepairRequests).Create(older).Error)

	newer := newRequest("u1")
	newer.RepairerID = "r1"
	require.NoError(t, repo.Create(ctx, newer))

	other := newRequest("u2")
	require.NoError(t, repo.Create(ctx, other))

	mine, err := repo.ListByRequester(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, "old", mine[1].ID)

	assigned, err := repo.ListByRepairer(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	open, err := repo.ListByStatus(ctx, []model.RepairStatus{model.StatusAwaitingRepairer})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "old", open[0].ID)
}

func TestMergeRequestsPrefersFirstBatch(t *testing.T) {
	now := time.Now()
	canonical := []model.RepairRequest{{ID: "a", Title: "canonical", CreatedAt: now}}
	legacy := []model.RepairRequest{{ID: "a", Title: "legacy", CreatedAt: now}, {ID: "b", CreatedAt: now.Add(time.Minute)}}

	got := mergeRequests(canonical, legacy)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "canonical", got[1].Title)
}
