package service

import (
	"context"
	"testing"

	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/payment"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) GenerateDiagnosis(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type mockJudge struct{ mock.Mock }

func (m *mockJudge) CompareCompletion(ctx context.Context, in ai.VerificationInput) (*ai.VerificationVerdict, error) {
	args := m.Called(ctx, in)
	v, _ := args.Get(0).(*ai.VerificationVerdict)
	return v, args.Error(1)
}

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateSession(ctx context.Context, in payment.SessionParams) (*payment.Session, error) {
	args := m.Called(ctx, in)
	s, _ := args.Get(0).(*payment.Session)
	return s, args.Error(1)
}

func (m *mockProvider) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(*payment.Event)
	return ev, args.Error(1)
}

type fixture struct {
	repos    *repository.Repositories
	gen      *mockGenerator
	judge    *mockJudge
	provider *mockProvider
	notify   NotificationService
	diag     DiagnosticService
	verify   VerificationService
	requests RequestService
	payments PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	require.NoError(t, repository.AutoMigrate(db))
	f := &fixture{
		repos:    repository.NewGormRepositories(db),
		gen:      &mockGenerator{},
		judge:    &mockJudge{},
		provider: &mockProvider{},
	}
	f.notify = NewNotificationService(f.repos.Notifications)
	f.diag = NewDiagnosticService(f.gen, f.repos.Reports, f.repos.Requests)
	f.verify = NewVerificationService(f.judge, f.repos.Requests, f.repos.Verifications)
	f.requests = NewRequestService(f.repos.Requests, f.repos.Repairers, f.repos.Payments, f.diag, f.verify, f.notify, "inr")
	f.payments = NewPaymentService(f.provider, payment.NopDeduper{}, f.repos.Requests, f.repos.Payments, f.notify,
		PaymentConfig{Currency: "inr", AppBaseURL: "https://app.test/"})
	return f
}

func (f *fixture) addRepairer(t *testing.T, id string, loc model.GeoPoint, categories ...string) *model.RepairerProfile {
	t.Helper()
	p := &model.RepairerProfile{
		ID:          id,
		DisplayName: "Repairer " + id,
		Categories:  categories,
		ServiceArea: 10,
		Location:    &loc,
	}
	require.NoError(t, f.repos.Repairers.Save(context.Background(), p))
	return p
}

func (f *fixture) submit(t *testing.T, requester, repairer string) *model.RepairRequest {
	t.Helper()
	req, err := f.requests.Submit(context.Background(), Actor{UID: requester}, SubmitRequestInput{
		Title:       "Washing machine leaks",
		Description: "Water pools under the drum after each cycle",
		Category:    string(model.CategoryAppliances),
		ImageURLs:   []string{"https://img/before.jpg"},
		Location:    model.GeoPoint{Latitude: 12.97, Longitude: 77.59, Address: "Bengaluru"},
		RepairerID:  repairer,
	})
	require.NoError(t, err)
	return req
}

// setStatus forces a stored status, for arranging tests mid-lifecycle.
func (f *fixture) setStatus(t *testing.T, id string, status model.RepairStatus, repairer string) *model.RepairRequest {
	t.Helper()
	req, err := f.repos.Requests.Update(context.Background(), id, "", repository.RequestPatch{Status: status, RepairerID: repairer})
	require.NoError(t, err)
	return req
}

const diagnosisText = `Likely a worn door gasket.
Complexity: high
Estimated cost: $200 - $400
Estimated time: 2-4 hours
Suggested parts:
- Door gasket
- Drain hose

Check the pump filter too.`
