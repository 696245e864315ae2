package service

import (
	"context"
	"log"
	"strings"

	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
)

const (
	verificationUnavailableMessage = "Verification service unavailable. Please try again later."
	verificationNotRecordedMessage = "Verification could not be recorded. Please submit the photo again."
)

// CompletionJudge compares completion evidence with the original request photos.
type CompletionJudge interface {
	CompareCompletion(ctx context.Context, in ai.VerificationInput) (*ai.VerificationVerdict, error)
}

type VerificationResult struct {
	Verified bool
	Message  string
	Entry    *model.Verification
}

type VerificationService interface {
	// Verify checks completion evidence for an existing request and records the
	// attempt. Judge failures come back as an unverified result, not an error.
	Verify(ctx context.Context, requestID, imageURL, note string) (*VerificationResult, error)
	ListByRequest(ctx context.Context, requestID string) ([]model.Verification, error)
}

type verificationService struct {
	judge    CompletionJudge
	requests repository.RequestRepository
	audit    repository.VerificationRepository
}

func NewVerificationService(judge CompletionJudge, requests repository.RequestRepository, audit repository.VerificationRepository) VerificationService {
	return &verificationService{judge: judge, requests: requests, audit: audit}
}

func (s *verificationService) Verify(ctx context.Context, requestID, imageURL, note string) (*VerificationResult, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, invalid("imageUrl", "completion photo is required")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, readErr(err)
	}
	ctx = reqctx.WithRequestID(ctx, req.ID)
	rid := reqctx.RID(ctx)

	entry := &model.Verification{
		RepairRequestID:    req.ID,
		CompletionImageURL: imageURL,
		BeforeImageURLs:    req.ImageURLs,
		CompletionNote:     note,
		ServiceAvailable:   true,
	}
	verdict, err := s.compare(ctx, ai.VerificationInput{BeforeImageURLs: req.ImageURLs, AfterImageURL: imageURL, Note: note})
	if err != nil {
		log.Printf("[verify] rid=%s req=%s stage=judge_fail err=%v", rid, req.ID, err)
		entry.ServiceAvailable = false
		entry.Message = verificationUnavailableMessage
	} else {
		entry.Verified = verdict.Verified
		entry.Message = verdict.Message
	}

	if err := s.audit.Create(ctx, entry); err != nil {
		log.Printf("[verify] rid=%s req=%s stage=audit_fail verified=%v err=%v", rid, req.ID, entry.Verified, err)
		return &VerificationResult{Verified: false, Message: verificationNotRecordedMessage}, nil
	}
	log.Printf("[verify] rid=%s req=%s stage=done verified=%v available=%v", rid, req.ID, entry.Verified, entry.ServiceAvailable)
	return &VerificationResult{Verified: entry.Verified, Message: entry.Message, Entry: entry}, nil
}

func (s *verificationService) compare(ctx context.Context, in ai.VerificationInput) (*ai.VerificationVerdict, error) {
	if s.judge == nil {
		return nil, ErrExternalService
	}
	return s.judge.CompareCompletion(ctx, in)
}

func (s *verificationService) ListByRequest(ctx context.Context, requestID string) ([]model.Verification, error) {
	return s.audit.ListByRequest(ctx, requestID)
}
