package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
)

// transition moves req to status "to" if the table allows it, applying extra
// patch fields in the same conditional write.
func (s *requestService) transition(ctx context.Context, req *model.RepairRequest, to model.RepairStatus, patch repository.RequestPatch) (*model.RepairRequest, error) {
	if !model.CanTransition(req.Status, to) {
		return nil, transitionError(req.Status, to)
	}
	patch.Status = to
	updated, err := s.requests.Update(ctx, req.ID, req.Status, patch)
	if err != nil {
		return nil, writeErr(err)
	}
	log.Printf("[request] rid=%s req=%s stage=transition from=%s to=%s", reqctx.RID(ctx), req.ID, req.Status, to)
	return updated, nil
}

func (s *requestService) requireRepairer(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrForbidden
	}
	if _, err := s.repairers.FindByID(ctx, uid); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForbidden
		}
		return err
	}
	return nil
}

func (s *requestService) Accept(ctx context.Context, actor Actor, id string) (_ *model.RepairRequest, err error) {
	ctx, span := s.startSpan(ctx, "request.accept", id)
	defer func() { finishSpan(span, err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireRepairer(ctx, actor.UID); err != nil {
		return nil, err
	}
	if req.RepairerID != "" && req.RepairerID != actor.UID {
		return nil, ErrForbidden
	}
	if req.RequesterID == actor.UID {
		return nil, ErrForbidden
	}
	updated, err := s.transition(ctx, req, model.StatusAccepted, repository.RequestPatch{RepairerID: actor.UID})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, updated.RequesterID, model.NotifyAccepted, "Repairer assigned",
		"A repairer accepted \""+updated.Title+"\".", updated.ID)
	return updated, nil
}

func (s *requestService) Start(ctx context.Context, actor Actor, id string) (_ *model.RepairRequest, err error) {
	ctx, span := s.startSpan(ctx, "request.start", id)
	defer func() { finishSpan(span, err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RepairerID == "" || req.RepairerID != actor.UID {
		return nil, ErrForbidden
	}
	updated, err := s.transition(ctx, req, model.StatusInProgress, repository.RequestPatch{})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, updated.RequesterID, model.NotifyStarted, "Repair started",
		"Work on \""+updated.Title+"\" has started.", updated.ID)
	return updated, nil
}

// Complete records completion evidence and runs verification. Calling it again
// on a completed request resubmits evidence without another status change.
func (s *requestService) Complete(ctx context.Context, actor Actor, id string, in CompletionInput) (_ *CompletionResult, err error) {
	ctx, span := s.startSpan(ctx, "request.complete", id)
	defer func() { finishSpan(span, err) }()

	if strings.TrimSpace(in.ImageURL) == "" {
		return nil, invalid("imageUrl", "completion photo is required")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case req.RepairerID == actor.UID && actor.UID != "":
	case req.RepairerID == "":
		if err := s.requireRepairer(ctx, actor.UID); err != nil {
			return nil, err
		}
		if req.RequesterID == actor.UID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}

	if req.Status != model.StatusCompleted {
		req, err = s.transition(ctx, req, model.StatusCompleted, repository.RequestPatch{RepairerID: actor.UID})
		if err != nil {
			return nil, err
		}
		s.notify.Notify(ctx, req.RequesterID, model.NotifyCompleted, "Repair completed",
			"The repairer marked \""+req.Title+"\" as done. We are checking the photo.", req.ID)
	}

	result, err := s.verifier.Verify(ctx, req.ID, in.ImageURL, in.Note)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, writeErr(repository.ErrNotFound)
		}
		return nil, err
	}
	if result.Verified {
		req, err = s.transition(ctx, req, model.StatusVerified, repository.RequestPatch{})
		if err != nil {
			return nil, err
		}
		s.notify.Notify(ctx, req.RequesterID, model.NotifyVerified, "Repair verified", result.Message, req.ID)
	}
	return &CompletionResult{Request: req, Verification: result}, nil
}

func (s *requestService) SetPrice(ctx context.Context, actor Actor, id string, price float64) (_ *model.RepairRequest, err error) {
	ctx, span := s.startSpan(ctx, "request.set_price", id)
	defer func() { finishSpan(span, err) }()

	if price <= 0 {
		return nil, invalid("price", "must be greater than zero")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RepairerID == "" || req.RepairerID != actor.UID {
		return nil, ErrForbidden
	}
	if req.Status != model.StatusVerified {
		return nil, transitionError(req.Status, model.StatusAwaitingPayment)
	}
	updated, err := s.transition(ctx, req, model.StatusAwaitingPayment, repository.RequestPatch{Price: &price})
	if err != nil {
		return nil, err
	}
	p := &model.Payment{
		RepairRequestID: updated.ID,
		UserID:          updated.RequesterID,
		RepairerID:      updated.RepairerID,
		Amount:          price,
		Currency:        s.currency,
		Status:          model.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		// checkout creates the record if this one is missing
		log.Printf("[request] rid=%s req=%s stage=payment_record_fail err=%v", reqctx.RID(ctx), updated.ID, err)
	}
	s.notify.Notify(ctx, updated.RequesterID, model.NotifyPaymentRequired, "Payment requested",
		"Your repair is verified and ready for payment.", updated.ID)
	return updated, nil
}

func (s *requestService) Cancel(ctx context.Context, actor Actor, id string) (_ *model.RepairRequest, err error) {
	ctx, span := s.startSpan(ctx, "request.cancel", id)
	defer func() { finishSpan(span, err) }()

	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && req.RequesterID != actor.UID {
		return nil, ErrForbidden
	}
	updated, err := s.transition(ctx, req, model.StatusCancelled, repository.RequestPatch{})
	if err != nil {
		return nil, err
	}
	if updated.RepairerID != "" {
		s.notify.Notify(ctx, updated.RepairerID, model.NotifyCancelled, "Request cancelled",
			"\""+updated.Title+"\" was cancelled by the customer.", updated.ID)
	}
	return updated, nil
}
