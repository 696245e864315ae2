package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shinyyama/quickfix-backend/internal/ai"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/repository"
	"github.com/shinyyama/quickfix-backend/internal/reqctx"
)

// DiagnosisGenerator turns a prompt into free-text diagnosis.
type DiagnosisGenerator interface {
	GenerateDiagnosis(ctx context.Context, prompt string) (string, error)
}

type DiagnosticService interface {
	// GetOrGenerate returns the report linked to req, generating and linking a
	// new one when there is none or when regenerate is set. req is updated in
	// place with the stored record.
	GetOrGenerate(ctx context.Context, req *model.RepairRequest, regenerate bool) (*model.DiagnosticReport, error)
	Get(ctx context.Context, reportID string) (*model.DiagnosticReport, error)
}

type diagnosticService struct {
	gen      DiagnosisGenerator
	reports  repository.ReportRepository
	requests repository.RequestRepository
}

func NewDiagnosticService(gen DiagnosisGenerator, reports repository.ReportRepository, requests repository.RequestRepository) DiagnosticService {
	return &diagnosticService{gen: gen, reports: reports, requests: requests}
}

func (s *diagnosticService) Get(ctx context.Context, reportID string) (*model.DiagnosticReport, error) {
	if reportID == "" {
		return nil, ErrNotFound
	}
	rep, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, readErr(err)
	}
	return rep, nil
}

func (s *diagnosticService) GetOrGenerate(ctx context.Context, req *model.RepairRequest, regenerate bool) (*model.DiagnosticReport, error) {
	ctx = reqctx.WithRequestID(ctx, req.ID)
	rid := reqctx.RID(ctx)
	if !regenerate && req.DiagnosticReportID != "" {
		rep, err := s.reports.FindByID(ctx, req.DiagnosticReportID)
		if err == nil {
			return rep, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		log.Printf("[diag] rid=%s req=%s stage=dangling_report report=%s", rid, req.ID, req.DiagnosticReportID)
	}
	if s.gen == nil {
		return nil, fmt.Errorf("%w: generator not configured", ErrDiagnosticGeneration)
	}

	start := time.Now()
	prompt := ai.BuildDiagnosticPrompt(req.Title, req.Description, req.Category, len(req.ImageURLs) > 0)
	text, err := s.gen.GenerateDiagnosis(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDiagnosticGeneration, err)
	}
	est := ai.ParseDiagnostic(text)
	rep := &model.DiagnosticReport{
		RepairRequestID:     req.ID,
		Analysis:            est.Analysis,
		FormattedAnalysis:   est.FormattedAnalysis,
		EstimatedComplexity: est.Complexity,
		EstimatedCost:       est.Cost,
		EstimatedTime:       est.Time,
		SuggestedParts:      est.SuggestedParts,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, err
	}

	updated, err := s.link(ctx, req, rep.ID)
	if err != nil {
		log.Printf("[diag] rid=%s req=%s stage=link_fail report=%s err=%v", rid, req.ID, rep.ID, err)
		return nil, err
	}
	*req = *updated
	log.Printf("[diag] rid=%s req=%s stage=done report=%s complexity=%s totalMs=%d", rid, req.ID, rep.ID, rep.EstimatedComplexity, time.Since(start).Milliseconds())
	return rep, nil
}

// link points the request at the report and moves it to diagnosed when that
// is a legal step from its current status. One retry covers a status change
// that landed between our read and write. Terminal requests are never linked.
func (s *diagnosticService) link(ctx context.Context, req *model.RepairRequest, reportID string) (*model.RepairRequest, error) {
	cur := req
	for attempt := 0; attempt < 2; attempt++ {
		if cur.Status.Terminal() {
			return nil, fmt.Errorf("%w: request is %s", ErrStaleRequest, cur.Status)
		}
		patch := repository.RequestPatch{DiagnosticReportID: reportID}
		if model.CanTransition(cur.Status, model.StatusDiagnosed) {
			patch.Status = model.StatusDiagnosed
		}
		updated, err := s.requests.Update(ctx, cur.ID, cur.Status, patch)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, writeErr(err)
		}
		cur, err = s.requests.FindByID(ctx, req.ID)
		if err != nil {
			return nil, writeErr(err)
		}
	}
	return nil, writeErr(repository.ErrConflict)
}
