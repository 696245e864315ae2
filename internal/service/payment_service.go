package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/payment"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CheckoutProvider is the card processor behind the hosted checkout page.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, in payment.SessionParams) (*payment.Session, error)
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

type CheckoutInput struct {
	RequestID   string
	UserID      string
	RepairerID  string
	Amount      float64
	Description string
}

type CheckoutResult struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type PaymentConfig struct {
	Currency   string
	AppBaseURL string
}

type PaymentService interface {
	CreateCheckout(ctx context.Context, actor Actor, in CheckoutInput) (*CheckoutResult, error)
	// HandleWebhook only fails on an unauthenticated payload. Everything after
	// that is logged and acknowledged so the processor stops retrying.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type paymentService struct {
	provider CheckoutProvider
	dedupe   payment.Deduper
	requests repository.RequestRepository
	payments repository.PaymentRepository
	notify   NotificationService
	cfg      PaymentConfig
	tracer   trace.Tracer
}

func NewPaymentService(
	provider CheckoutProvider,
	dedupe payment.Deduper,
	requests repository.RequestRepository,
	payments repository.PaymentRepository,
	notify NotificationService,
	cfg PaymentConfig,
) PaymentService {
	if dedupe == nil {
		dedupe = payment.NopDeduper{}
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	return &paymentService{
		provider: provider,
		dedupe:   dedupe,
		requests: requests,
		payments: payments,
		notify:   notify,
		cfg:      cfg,
		tracer:   otel.Tracer("quickfix/payment"),
	}
}

func validateCheckout(in CheckoutInput) error {
	switch {
	case strings.TrimSpace(in.RequestID) == "":
		return invalid("requestId", "is required")
	case strings.TrimSpace(in.UserID) == "":
		return invalid("userId", "is required")
	case strings.TrimSpace(in.RepairerID) == "":
		return invalid("repairerId", "is required")
	case in.Amount <= 0 || math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0):
		return invalid("amount", "must be greater than zero")
	}
	return nil
}

func (s *paymentService) CreateCheckout(ctx context.Context, actor Actor, in CheckoutInput) (_ *CheckoutResult, err error) {
	if err := validateCheckout(in); err != nil {
		return nil, err
	}
	ctx = reqctx.WithRequestID(ctx, in.RequestID)
	ctx, span := s.tracer.Start(ctx, "payment.checkout", trace.WithAttributes(attribute.String("repair_request.id", in.RequestID)))
	defer func() { finishSpan(span, err) }()
	rid := reqctx.RID(ctx)

	if in.UserID != actor.UID {
		return nil, ErrForbidden
	}
	req, err := s.requests.FindByID(ctx, in.RequestID)
	if err != nil {
		return nil, readErr(err)
	}
	if req.RequesterID != actor.UID {
		return nil, ErrForbidden
	}
	if req.RepairerID == "" || req.RepairerID != in.RepairerID {
		return nil, invalid("repairerId", "does not match the assigned repairer")
	}
	// only the repairer prices a job; SetPrice moves it to awaiting_payment
	if req.Status != model.StatusAwaitingPayment {
		return nil, transitionError(req.Status, model.StatusPaid)
	}
	if req.Price == nil || *req.Price <= 0 {
		return nil, invalid("price", "has not been set by the repairer")
	}
	price := *req.Price
	if math.Abs(price-in.Amount) > 0.005 {
		return nil, invalid("amount", "does not match the quoted price")
	}
	if s.provider == nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, payment.ErrNotConfigured)
	}

	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = "Repair request #" + req.ID
	}
	sess, err := s.provider.CreateSession(ctx, payment.SessionParams{
		RequestID:   req.ID,
		UserID:      req.RequesterID,
		RepairerID:  req.RepairerID,
		AmountMinor: payment.MinorUnits(price, s.cfg.Currency),
		Currency:    s.cfg.Currency,
		Description: desc,
		SuccessURL:  s.cfg.AppBaseURL + "/dashboard?payment_success=true&request_id=" + url.QueryEscape(req.ID),
		CancelURL:   s.cfg.AppBaseURL + "/dashboard?payment_cancelled=true",
	})
	if err != nil {
		log.Printf("[payment] rid=%s req=%s stage=session_fail err=%v", rid, req.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	log.Printf("[payment] rid=%s req=%s stage=session_created session=%s", rid, req.ID, sess.ID)

	// the request must still be awaiting payment, e.g. not cancelled meanwhile
	if _, err := s.requests.Update(ctx, req.ID, model.StatusAwaitingPayment, repository.RequestPatch{}); err != nil {
		// an unused session expires at the processor
		log.Printf("[payment] rid=%s req=%s stage=status_recheck_fail session=%s err=%v", rid, req.ID, sess.ID, err)
		return nil, writeErr(err)
	}
	s.recordSession(ctx, req, price, sess.ID)

	return &CheckoutResult{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

func (s *paymentService) recordSession(ctx context.Context, req *model.RepairRequest, amount float64, sessionID string) {
	rid := reqctx.RID(ctx)
	p, err := s.payments.FindPendingByRequest(ctx, req.ID)
	switch {
	case err == nil:
		if err := s.payments.AttachSession(ctx, p.ID, sessionID); err != nil {
			log.Printf("[payment] rid=%s req=%s stage=attach_fail payment=%s err=%v", rid, req.ID, p.ID, err)
		}
	case errors.Is(err, repository.ErrNotFound):
		np := &model.Payment{
			RepairRequestID: req.ID,
			UserID:          req.RequesterID,
			RepairerID:      req.RepairerID,
			Amount:          amount,
			Currency:        s.cfg.Currency,
			Status:          model.PaymentStatusPending,
			StripeSessionID: sessionID,
		}
		if err := s.payments.Create(ctx, np); err != nil {
			log.Printf("[payment] rid=%s req=%s stage=payment_create_fail err=%v", rid, req.ID, err)
		}
	default:
		log.Printf("[payment] rid=%s req=%s stage=payment_lookup_fail err=%v", rid, req.ID, err)
	}
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.provider == nil {
		return payment.ErrInvalidSignature
	}
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return err
		}
		log.Printf("[webhook] rid=%s stage=parse_fail err=%v", reqctx.RID(ctx), err)
		return nil
	}
	if ev.Type != payment.EventCheckoutSessionCompleted {
		return nil
	}
	requestID := ev.Metadata["requestId"]
	if requestID == "" {
		log.Printf("[webhook] rid=%s event=%s stage=no_request_id", reqctx.RID(ctx), ev.ID)
		return nil
	}
	ctx = reqctx.WithRequestID(ctx, requestID)
	rid := reqctx.RID(ctx)

	if ev.ID != "" {
		first, err := s.dedupe.FirstSeen(ctx, ev.ID)
		if err != nil {
			log.Printf("[webhook] rid=%s event=%s stage=dedupe_fail err=%v", rid, ev.ID, err)
		} else if !first {
			log.Printf("[webhook] rid=%s event=%s stage=duplicate", rid, ev.ID)
			return nil
		}
	}

	ctx, span := s.tracer.Start(ctx, "payment.webhook", trace.WithAttributes(
		attribute.String("repair_request.id", requestID),
		attribute.String("stripe.session_id", ev.SessionID),
	))
	defer span.End()

	req, err := s.markPaid(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		log.Printf("[webhook] rid=%s stage=mark_paid_fail err=%v", rid, err)
	}
	if req != nil && req.Status.Terminal() && req.Status != model.StatusPaid {
		s.flagRefund(ctx, req, ev.SessionID)
		return nil
	}
	s.completePayment(ctx, requestID, ev.SessionID)
	return nil
}

// markPaid settles the request and returns its last known state. A request
// still at verified is walked through awaiting_payment.
func (s *paymentService) markPaid(ctx context.Context, requestID string) (*model.RepairRequest, error) {
	rid := reqctx.RID(ctx)
	var req *model.RepairRequest
	for attempt := 0; attempt < 3; attempt++ {
		cur, err := s.requests.FindByID(ctx, requestID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[webhook] rid=%s stage=request_missing", rid)
			return nil, nil
		}
		if err != nil {
			return req, err
		}
		req = cur
		switch req.Status {
		case model.StatusPaid:
			return req, nil
		case model.StatusVerified:
			log.Printf("[webhook] rid=%s stage=paid_from_verified", rid)
			_, err = s.requests.Update(ctx, req.ID, req.Status, repository.RequestPatch{Status: model.StatusAwaitingPayment})
		case model.StatusAwaitingPayment:
			var updated *model.RepairRequest
			updated, err = s.requests.Update(ctx, req.ID, req.Status, repository.RequestPatch{Status: model.StatusPaid})
			if err == nil {
				log.Printf("[webhook] rid=%s stage=paid", rid)
				s.notify.Notify(ctx, updated.RequesterID, model.NotifyPaid, "Payment received",
					"Thanks! Your payment for \""+updated.Title+"\" went through.", updated.ID)
				s.notify.Notify(ctx, updated.RepairerID, model.NotifyPaid, "Payment received",
					"The customer paid for \""+updated.Title+"\".", updated.ID)
				return updated, nil
			}
		default:
			log.Printf("[webhook] rid=%s stage=unexpected_status status=%s", rid, req.Status)
			return req, nil
		}
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return req, err
		}
	}
	return req, repository.ErrConflict
}

// flagRefund records money taken for a request that can no longer be paid,
// typically one cancelled after checkout started.
func (s *paymentService) flagRefund(ctx context.Context, req *model.RepairRequest, sessionID string) {
	rid := reqctx.RID(ctx)
	log.Printf("[webhook] rid=%s session=%s status=%s stage=refund_required", rid, sessionID, req.Status)
	p, err := s.payments.FindPendingBySession(ctx, req.ID, sessionID)
	switch {
	case err == nil:
		if err := s.payments.MarkRefundDue(ctx, p.ID); err != nil {
			log.Printf("[webhook] rid=%s payment=%s stage=refund_flag_fail err=%v", rid, p.ID, err)
		}
	case errors.Is(err, repository.ErrNotFound):
		log.Printf("[webhook] rid=%s session=%s stage=no_pending_payment", rid, sessionID)
	default:
		log.Printf("[webhook] rid=%s session=%s stage=payment_lookup_fail err=%v", rid, sessionID, err)
	}
	s.notify.Notify(ctx, req.RequesterID, model.NotifyRefundDue, "Refund on its way",
		"We received a payment for \""+req.Title+"\" after it was "+string(req.Status)+". It will be refunded.", req.ID)
}

func (s *paymentService) completePayment(ctx context.Context, requestID, sessionID string) {
	rid := reqctx.RID(ctx)
	p, err := s.payments.FindPendingBySession(ctx, requestID, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("[webhook] rid=%s session=%s stage=no_pending_payment", rid, sessionID)
		return
	}
	if err != nil {
		log.Printf("[webhook] rid=%s session=%s stage=payment_lookup_fail err=%v", rid, sessionID, err)
		return
	}
	if err := s.payments.MarkCompleted(ctx, p.ID); err != nil {
		log.Printf("[webhook] rid=%s payment=%s stage=payment_complete_fail err=%v", rid, p.ID, err)
	}
}
