package repository

import (
	"context"
	"testing"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairerSaveUpserts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepairerRepository(setupDB(t))

	p := &model.RepairerProfile{
		ID:          "r1",
		DisplayName: "Asha",
		Categories:  []string{"electronics"},
		ServiceArea: 15,
		Location:    &model.GeoPoint{Latitude: 1, Longitude: 2},
	}
	require.NoError(t, repo.Save(ctx, p))

	p.DisplayName = "Asha K"
	p.Categories = []string{"electronics", "appliances"}
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Asha K", got.DisplayName)
	assert.Equal(t, []string{"electronics", "appliances"}, got.Categories)
	require.NotNil(t, got.Location)
	assert.Equal(t, 2.0, got.Location.Longitude)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportCreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewReportRepository(setupDB(t))

	rep := &model.DiagnosticReport{
		RepairRequestID:     "req1",
		Analysis:            "short",
		FormattedAnalysis:   "short",
		EstimatedComplexity: model.ComplexityHigh,
		EstimatedCost:       model.CostEstimate{Min: 200, Max: 400, MinInr: 15000, MaxInr: 30000},
		EstimatedTime:       model.TimeEstimate{Min: 2, Max: 4},
		SuggestedParts:      []string{"screen"},
	}
	require.NoError(t, repo.Create(ctx, rep))

	got, err := repo.FindByID(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.EstimatedCost, got.EstimatedCost)
	assert.Equal(t, rep.SuggestedParts, got.SuggestedParts)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(setupDB(t))

	p := &model.Payment{RepairRequestID: "req1", UserID: "u1", RepairerID: "r1", Amount: 99.5}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, model.PaymentStatusPending, p.Status)

	pending, err := repo.FindPendingByRequest(ctx, "req1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, pending.ID)

	_, err = repo.FindPendingBySession(ctx, "req1", "cs_1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.AttachSession(ctx, p.ID, "cs_1"))
	bySession, err := repo.FindPendingBySession(ctx, "req1", "cs_1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySession.ID)

	require.NoError(t, repo.MarkCompleted(ctx, p.ID))
	_, err = repo.FindPendingByRequest(ctx, "req1")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := repo.ListByRequest(ctx, "req1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PaymentStatusCompleted, list[0].Status)

	assert.ErrorIs(t, repo.MarkCompleted(ctx, "missing"), ErrNotFound)
}

func TestVerificationAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewVerificationRepository(setupDB(t))

	require.NoError(t, repo.Create(ctx, &model.Verification{RepairRequestID: "req1", Verified: false, Message: "blurry"}))
	require.NoError(t, repo.Create(ctx, &model.Verification{RepairRequestID: "req1", Verified: true, Message: "ok"}))
	require.NoError(t, repo.Create(ctx, &model.Verification{RepairRequestID: "req2", Verified: true}))

	list, err := repo.ListByRequest(ctx, "req1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestNotificationReadFlow(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(setupDB(t))

	for _, typ := range []model.NotificationType{model.NotifyAccepted, model.NotifyStarted} {
		require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "u1", Type: typ, RepairRequestID: "req1"}))
	}
	require.NoError(t, repo.Create(ctx, &model.Notification{UserID: "u2", Type: model.NotifyPaid}))

	cnt, err := repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), cnt)

	list, err := repo.ListByUser(ctx, "u1", true, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.MarkAllRead(ctx, "u1"))

	cnt, err = repo.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, cnt)

	unread, err := repo.ListByUser(ctx, "u1", true, 10)
	require.NoError(t, err)
	assert.Empty(t, unread)

	all, err := repo.ListByUser(ctx, "u1", false, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cnt, err = repo.CountUnread(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cnt)
}
