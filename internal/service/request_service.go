package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxTitleLen      = 200
	maxRequestImages = 5
)

type SubmitRequestInput struct {
	Title       string
	Description string
	Category    string
	ImageURLs   []string
	Location    model.GeoPoint
	RepairerID  string
}

type CompletionInput struct {
	ImageURL string
	Note     string
}

type CompletionResult struct {
	Request      *model.RepairRequest
	Verification *VerificationResult
}

// RequestService drives a repair request through its lifecycle. Every status
// change is a conditional write against the status that was read.
type RequestService interface {
	Submit(ctx context.Context, actor Actor, in SubmitRequestInput) (*model.RepairRequest, error)
	Get(ctx context.Context, actor Actor, id string) (*model.RepairRequest, error)
	ListMine(ctx context.Context, actor Actor) ([]model.RepairRequest, error)
	ListAssigned(ctx context.Context, actor Actor) ([]model.RepairRequest, error)
	Diagnose(ctx context.Context, actor Actor, id string, regenerate bool) (*model.DiagnosticReport, error)
	Report(ctx context.Context, actor Actor, id string) (*model.DiagnosticReport, error)
	Accept(ctx context.Context, actor Actor, id string) (*model.RepairRequest, error)
	Start(ctx context.Context, actor Actor, id string) (*model.RepairRequest, error)
	Complete(ctx context.Context, actor Actor, id string, in CompletionInput) (*CompletionResult, error)
	SetPrice(ctx context.Context, actor Actor, id string, price float64) (*model.RepairRequest, error)
	Cancel(ctx context.Context, actor Actor, id string) (*model.RepairRequest, error)
	Verifications(ctx context.Context, actor Actor, id string) ([]model.Verification, error)
}

// DefaultCurrency settles payments when none is configured.
const DefaultCurrency = "inr"

type requestService struct {
	requests  repository.RequestRepository
	repairers repository.RepairerRepository
	payments  repository.PaymentRepository
	diag      DiagnosticService
	verifier  VerificationService
	notify    NotificationService
	currency  string
	tracer    trace.Tracer
}

func NewRequestService(
	requests repository.RequestRepository,
	repairers repository.RepairerRepository,
	payments repository.PaymentRepository,
	diag DiagnosticService,
	verifier VerificationService,
	notify NotificationService,
	currency string,
) RequestService {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &requestService{
		requests:  requests,
		repairers: repairers,
		payments:  payments,
		diag:      diag,
		verifier:  verifier,
		notify:    notify,
		currency:  currency,
		tracer:    otel.Tracer("quickfix/request"),
	}
}

func (s *requestService) startSpan(ctx context.Context, name, requestID string) (context.Context, trace.Span) {
	ctx = reqctx.WithRequestID(ctx, requestID)
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("repair_request.id", requestID)))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *requestService) Submit(ctx context.Context, actor Actor, in SubmitRequestInput) (_ *model.RepairRequest, err error) {
	ctx, span := s.tracer.Start(ctx, "request.submit")
	defer func() { finishSpan(span, err) }()

	if actor.UID == "" {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	switch {
	case title == "":
		return nil, invalid("title", "is required")
	case len([]rune(title)) > maxTitleLen:
		return nil, invalid("title", "is too long")
	case desc == "":
		return nil, invalid("description", "is required")
	case !model.IsRequestCategory(in.Category):
		return nil, invalid("category", "unknown category")
	case !in.Location.Valid():
		return nil, invalid("location", "latitude/longitude out of range")
	case len(in.ImageURLs) > maxRequestImages:
		return nil, invalid("imageUrls", "too many images")
	}
	images := make([]string, 0, len(in.ImageURLs))
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u == "" {
			return nil, invalid("imageUrls", "empty image url")
		}
		images = append(images, u)
	}

	req := &model.RepairRequest{
		RequesterID: actor.UID,
		Title:       title,
		Description: desc,
		Category:    in.Category,
		ImageURLs:   images,
		Location:    in.Location,
		Status:      model.StatusPendingDiagnosis,
	}
	if in.RepairerID != "" {
		if in.RepairerID == actor.UID {
			return nil, invalid("repairerId", "cannot hire yourself")
		}
		if _, err := s.repairers.FindByID(ctx, in.RepairerID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, invalid("repairerId", "unknown repairer")
			}
			return nil, err
		}
		req.RepairerID = in.RepairerID
		req.Status = model.StatusAwaitingRepairer
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("repair_request.id", req.ID))
	log.Printf("[request] rid=%s req=%s stage=submitted status=%s", reqctx.RID(ctx), req.ID, req.Status)
	return req, nil
}

func (s *requestService) load(ctx context.Context, id string) (*model.RepairRequest, error) {
	req, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, readErr(err)
	}
	return req, nil
}

// canView: participants, admins, and registered repairers looking at an
// unassigned request that is still open.
func (s *requestService) canView(ctx context.Context, actor Actor, req *model.RepairRequest) bool {
	if actor.Admin || req.HasParticipant(actor.UID) {
		return true
	}
	if req.RepairerID != "" || !isOpen(req.Status) {
		return false
	}
	_, err := s.repairers.FindByID(ctx, actor.UID)
	return err == nil
}

func isOpen(st model.RepairStatus) bool {
	for _, open := range model.OpenPoolStatuses {
		if st == open {
			return true
		}
	}
	return false
}

func (s *requestService) Get(ctx context.Context, actor Actor, id string) (*model.RepairRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(ctx, actor, req) {
		return nil, ErrForbidden
	}
	return req, nil
}

func (s *requestService) ListMine(ctx context.Context, actor Actor) ([]model.RepairRequest, error) {
	if actor.UID == "" {
		return nil, ErrForbidden
	}
	return s.requests.ListByRequester(ctx, actor.UID)
}

func (s *requestService) ListAssigned(ctx context.Context, actor Actor) ([]model.RepairRequest, error) {
	if actor.UID == "" {
		return nil, ErrForbidden
	}
	return s.requests.ListByRepairer(ctx, actor.UID)
}

func (s *requestService) Diagnose(ctx context.Context, actor Actor, id string, regenerate bool) (_ *model.DiagnosticReport, err error) {
	ctx, span := s.startSpan(ctx, "request.diagnose", id)
	defer func() { finishSpan(span, err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !req.HasParticipant(actor.UID) {
		return nil, ErrForbidden
	}
	if req.Status.Terminal() && (regenerate || req.DiagnosticReportID == "") {
		return nil, transitionError(req.Status, model.StatusDiagnosed)
	}
	before := req.Status
	rep, err := s.diag.GetOrGenerate(ctx, req, regenerate)
	if err != nil {
		return nil, err
	}
	if before != req.Status && req.Status == model.StatusDiagnosed {
		s.notify.Notify(ctx, req.RequesterID, model.NotifyDiagnosed, "Diagnosis ready",
			"We estimated the repair for \""+req.Title+"\".", req.ID)
	}
	return rep, nil
}

func (s *requestService) Report(ctx context.Context, actor Actor, id string) (*model.DiagnosticReport, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.diag.Get(ctx, req.DiagnosticReportID)
}

func (s *requestService) Verifications(ctx context.Context, actor Actor, id string) ([]model.Verification, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && !req.HasParticipant(actor.UID) {
		return nil, ErrForbidden
	}
	return s.verifier.ListByRequest(ctx, req.ID)
}
