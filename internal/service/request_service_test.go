package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	good := SubmitRequestInput{
		Title:       "Chair leg broken",
		Description: "One leg snapped",
		Category:    string(model.CategoryFurniture),
		Location:    model.GeoPoint{Latitude: 10, Longitude: 10},
	}

	tests := []struct {
		name  string
		mod   func(in *SubmitRequestInput)
		field string
	}{
		{"missing title", func(in *SubmitRequestInput) { in.Title = "  " }, "title"},
		{"missing description", func(in *SubmitRequestInput) { in.Description = "" }, "description"},
		{"repairer-only category", func(in *SubmitRequestInput) { in.Category = string(model.CategoryPlumbing) }, "category"},
		{"bad latitude", func(in *SubmitRequestInput) { in.Location.Latitude = 91 }, "location"},
		{"too many images", func(in *SubmitRequestInput) { in.ImageURLs = []string{"a", "b", "c", "d", "e", "f"} }, "imageUrls"},
		{"unknown repairer", func(in *SubmitRequestInput) { in.RepairerID = "ghost" }, "repairerId"},
		{"self hire", func(in *SubmitRequestInput) { in.RepairerID = "u1" }, "repairerId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := good
			tt.mod(&in)
			_, err := f.requests.Submit(ctx, Actor{UID: "u1"}, in)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	list, err := f.requests.ListMine(ctx, Actor{UID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitInitialStatus(t *testing.T) {
	f := newFixture(t)
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 12.97, Longitude: 77.6}, "appliances")

	open := f.submit(t, "u1", "")
	assert.Equal(t, model.StatusPendingDiagnosis, open.Status)
	assert.Empty(t, open.RepairerID)

	hired := f.submit(t, "u1", "r1")
	assert.Equal(t, model.StatusAwaitingRepairer, hired.Status)
	assert.Equal(t, "r1", hired.RepairerID)

	mine, err := f.requests.ListMine(context.Background(), Actor{UID: "u1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestGetPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 12.97, Longitude: 77.6})
	req := f.submit(t, "u1", "")

	_, err := f.requests.Get(ctx, Actor{UID: "u1"}, req.ID)
	assert.NoError(t, err)
	_, err = f.requests.Get(ctx, Actor{UID: "r1"}, req.ID)
	assert.NoError(t, err, "registered repairer may browse open requests")
	_, err = f.requests.Get(ctx, Actor{UID: "stranger"}, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.requests.Get(ctx, Actor{UID: "admin", Admin: true}, req.ID)
	assert.NoError(t, err)
	_, err = f.requests.Get(ctx, Actor{UID: "u1"}, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiagnoseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, "u1", "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return(diagnosisText, nil).Once()

	first, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ComplexityHigh, first.EstimatedComplexity)
	assert.Equal(t, model.CostEstimate{Min: 200, Max: 400, MinInr: 15000, MaxInr: 30000}, first.EstimatedCost)
	assert.Equal(t, []string{"Door gasket", "Drain hose"}, first.SuggestedParts)

	second, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	f.gen.AssertNumberOfCalls(t, "GenerateDiagnosis", 1)

	stored, err := f.repos.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDiagnosed, stored.Status)
	assert.Equal(t, first.ID, stored.DiagnosticReportID)
	assert.Empty(t, stored.RepairerID, "diagnosis never assigns a repairer")

	notes, unread, err := f.notify.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyDiagnosed, notes[0].Type)
}

func TestDiagnoseRegenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, "u1", "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return(diagnosisText, nil).Twice()

	first, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, false)
	require.NoError(t, err)
	second, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	stored, err := f.repos.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, stored.DiagnosticReportID)
	assert.Equal(t, model.StatusDiagnosed, stored.Status)
}

func TestDiagnoseGenerationFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, "u1", "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()

	_, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, false)
	assert.ErrorIs(t, err, ErrDiagnosticGeneration)

	stored, err := f.repos.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingDiagnosis, stored.Status)
	assert.Empty(t, stored.DiagnosticReportID)
}

func TestDiagnoseKeepsLaterStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 12.97, Longitude: 77.6})
	req := f.submit(t, "u1", "r1")
	f.setStatus(t, req.ID, model.StatusInProgress, "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return(diagnosisText, nil).Once()

	rep, err := f.requests.Diagnose(ctx, Actor{UID: "r1"}, req.ID, false)
	require.NoError(t, err)

	stored, err := f.repos.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, stored.Status)
	assert.Equal(t, rep.ID, stored.DiagnosticReportID)
}

func TestDiagnoseTerminalRejected(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "u1", "")
	f.setStatus(t, req.ID, model.StatusCancelled, "")

	_, err := f.requests.Diagnose(context.Background(), Actor{UID: "u1"}, req.ID, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	f.gen.AssertNotCalled(t, "GenerateDiagnosis", mock.Anything, mock.Anything)
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 12.97, Longitude: 77.6}, "appliances")
	req := f.submit(t, "u1", "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return(diagnosisText, nil).Once()
	f.judge.On("CompareCompletion", mock.Anything, mock.MatchedBy(func(in ai.VerificationInput) bool {
		return in.AfterImageURL == "https://img/after.jpg" && len(in.BeforeImageURLs) == 1
	})).Return(&ai.VerificationVerdict{Verified: true, Message: "Looks fixed"}, nil).Once()

	_, err := f.requests.Diagnose(ctx, Actor{UID: "u1"}, req.ID, false)
	require.NoError(t, err)

	_, err = f.requests.Start(ctx, Actor{UID: "r1"}, req.ID)
	assert.ErrorIs(t, err, ErrForbidden, "start needs an assigned repairer")

	got, err := f.requests.Accept(ctx, Actor{UID: "r1"}, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
	assert.Equal(t, "r1", got.RepairerID)

	got, err = f.requests.Start(ctx, Actor{UID: "r1"}, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	res, err := f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "https://img/after.jpg", Note: "new gasket"})
	require.NoError(t, err)
	assert.True(t, res.Verification.Verified)
	assert.Equal(t, model.StatusVerified, res.Request.Status)

	got, err = f.requests.SetPrice(ctx, Actor{UID: "r1"}, req.ID, 1500)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingPayment, got.Status)
	require.NotNil(t, got.Price)
	assert.Equal(t, 1500.0, *got.Price)

	pending, err := f.repos.Payments.FindPendingByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, pending.Amount)
	assert.Equal(t, "u1", pending.UserID)
	assert.Equal(t, "r1", pending.RepairerID)

	audit, err := f.requests.Verifications(ctx, Actor{UID: "u1"}, req.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.True(t, audit[0].Verified)
	assert.Equal(t, []string{"https://img/before.jpg"}, audit[0].BeforeImageURLs)
}

func TestAcceptPreassignedToOther(t *testing.T) {
	f := newFixture(t)
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	f.addRepairer(t, "r2", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")

	_, err := f.requests.Accept(context.Background(), Actor{UID: "r2"}, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.requests.Accept(context.Background(), Actor{UID: "nobody"}, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.requests.Accept(context.Background(), Actor{UID: "r1"}, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
}

func TestAcceptBeforeDiagnosisRejected(t *testing.T) {
	f := newFixture(t)
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "")

	_, err := f.requests.Accept(context.Background(), Actor{UID: "r1"}, req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompleteFailedVerificationStaysCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")
	f.setStatus(t, req.ID, model.StatusInProgress, "")
	f.judge.On("CompareCompletion", mock.Anything, mock.Anything).
		Return(&ai.VerificationVerdict{Verified: false, Message: "Still leaking"}, nil).Once()
	f.judge.On("CompareCompletion", mock.Anything, mock.Anything).
		Return(&ai.VerificationVerdict{Verified: true, Message: "Dry now"}, nil).Once()

	res, err := f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "https://img/a1.jpg"})
	require.NoError(t, err)
	assert.False(t, res.Verification.Verified)
	assert.Equal(t, model.StatusCompleted, res.Request.Status)

	res, err = f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "https://img/a2.jpg"})
	require.NoError(t, err)
	assert.True(t, res.Verification.Verified)
	assert.Equal(t, model.StatusVerified, res.Request.Status)

	audit, err := f.verify.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, audit, 2)
}

func TestCompleteJudgeUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")
	f.setStatus(t, req.ID, model.StatusInProgress, "")
	f.judge.On("CompareCompletion", mock.Anything, mock.Anything).Return(nil, errors.New("timeout")).Once()

	res, err := f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "https://img/a1.jpg"})
	require.NoError(t, err)
	assert.False(t, res.Verification.Verified)
	assert.Equal(t, verificationUnavailableMessage, res.Verification.Message)
	assert.Equal(t, model.StatusCompleted, res.Request.Status)
	require.NotNil(t, res.Verification.Entry)
	assert.False(t, res.Verification.Entry.ServiceAvailable)
}

func TestCompleteUnassignedAssignsRepairer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "")
	f.setStatus(t, req.ID, model.StatusDiagnosed, "")
	f.judge.On("CompareCompletion", mock.Anything, mock.Anything).
		Return(&ai.VerificationVerdict{Verified: true, Message: "ok"}, nil).Once()

	_, err := f.requests.Complete(ctx, Actor{UID: "stranger"}, req.ID, CompletionInput{ImageURL: "x"})
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "x"})
	require.NoError(t, err)
	assert.Equal(t, "r1", res.Request.RepairerID)
	assert.Equal(t, model.StatusVerified, res.Request.Status)
}

func TestCompleteRequiresImage(t *testing.T) {
	f := newFixture(t)
	_, err := f.requests.Complete(context.Background(), Actor{UID: "r1"}, "any", CompletionInput{})
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSetPriceRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")
	f.setStatus(t, req.ID, model.StatusCompleted, "")

	_, err := f.requests.SetPrice(ctx, Actor{UID: "r1"}, req.ID, 0)
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = f.requests.SetPrice(ctx, Actor{UID: "u1"}, req.ID, 100)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.requests.SetPrice(ctx, Actor{UID: "r1"}, req.ID, 100)
	assert.ErrorIs(t, err, ErrInvalidTransition, "price is set only after verification")

	f.setStatus(t, req.ID, model.StatusVerified, "")
	priced, err := f.requests.SetPrice(ctx, Actor{UID: "r1"}, req.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingPayment, priced.Status)

	pending, err := f.repos.Payments.FindPendingByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, pending.Amount)
	assert.Equal(t, "inr", pending.Currency)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")

	_, err := f.requests.Cancel(ctx, Actor{UID: "r1"}, req.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.requests.Cancel(ctx, Actor{UID: "u1"}, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = f.requests.Cancel(ctx, Actor{UID: "u1"}, req.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	notes, _, err := f.notify.List(ctx, "r1", true, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyCancelled, notes[0].Type)
}

func TestTerminalStatesRejectEveryTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	for _, terminal := range []model.RepairStatus{model.StatusPaid, model.StatusCancelled} {
		req := f.submit(t, "u1", "r1")
		f.setStatus(t, req.ID, terminal, "")

		_, err := f.requests.Accept(ctx, Actor{UID: "r1"}, req.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.requests.Start(ctx, Actor{UID: "r1"}, req.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.requests.Complete(ctx, Actor{UID: "r1"}, req.ID, CompletionInput{ImageURL: "x"})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.requests.Cancel(ctx, Actor{UID: "u1"}, req.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		stored, err := f.repos.Requests.FindByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, terminal, stored.Status)
	}
	f.judge.AssertNotCalled(t, "CompareCompletion", mock.Anything, mock.Anything)
}

// staleRepo simulates a write that lost a race with another writer.
type staleRepo struct {
	repository.RequestRepository
}

func (staleRepo) Update(context.Context, string, model.RepairStatus, repository.RequestPatch) (*model.RepairRequest, error) {
	return nil, repository.ErrConflict
}

func TestConflictingWriteIsStale(t *testing.T) {
	f := newFixture(t)
	f.addRepairer(t, "r1", model.GeoPoint{Latitude: 1, Longitude: 1})
	req := f.submit(t, "u1", "r1")

	svc := NewRequestService(staleRepo{f.repos.Requests}, f.repos.Repairers, f.repos.Payments, f.diag, f.verify, f.notify, "")
	_, err := svc.Accept(context.Background(), Actor{UID: "r1"}, req.ID)
	assert.ErrorIs(t, err, ErrStaleRequest)
}

// cancelBeforeWrite cancels the request just before the first conditional
// write lands, as a concurrent Cancel would.
type cancelBeforeWrite struct {
	repository.RequestRepository
	fired bool
}

func (r *cancelBeforeWrite) Update(ctx context.Context, id string, expected model.RepairStatus, patch repository.RequestPatch) (*model.RepairRequest, error) {
	if !r.fired {
		r.fired = true
		if _, err := r.RequestRepository.Update(ctx, id, "", repository.RequestPatch{Status: model.StatusCancelled}); err != nil {
			return nil, err
		}
	}
	return r.RequestRepository.Update(ctx, id, expected, patch)
}

func TestDiagnosisNotLinkedToCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submit(t, "u1", "")
	f.gen.On("GenerateDiagnosis", mock.Anything, mock.Anything).Return(diagnosisText, nil).Once()

	diag := NewDiagnosticService(f.gen, f.repos.Reports, &cancelBeforeWrite{RequestRepository: f.repos.Requests})
	_, err := diag.GetOrGenerate(ctx, req, false)
	assert.ErrorIs(t, err, ErrStaleRequest)

	stored, err := f.repos.Requests.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	assert.Empty(t, stored.DiagnosticReportID)
}
