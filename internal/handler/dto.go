package handler

import (
	"time"

	"github.com/shinyyama/quickfix-backend/internal/model"
	"github.com/shinyyama/quickfix-backend/internal/service"
)

type RepairRequestResponse struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"userId"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Category           string         `json:"category"`
	ImageURLs          []string       `json:"imageUrls"`
	Location           model.GeoPoint `json:"location"`
	Status             string         `json:"status"`
	RepairerID         *string        `json:"repairerId"`
	DiagnosticReportID *string        `json:"diagnosticReportId"`
	Price              *float64       `json:"price"`
	CreatedAt          string         `json:"createdAt"`
	UpdatedAt          string         `json:"updatedAt"`
}

func toRequestResponse(r *model.RepairRequest) RepairRequestResponse {
	images := r.ImageURLs
	if images == nil {
		images = []string{}
	}
	return RepairRequestResponse{
		ID:                 r.ID,
		UserID:             r.RequesterID,
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category,
		ImageURLs:          images,
		Location:           r.Location,
		Status:             string(r.Status),
		RepairerID:         strPtrOrNil(r.RepairerID),
		DiagnosticReportID: strPtrOrNil(r.DiagnosticReportID),
		Price:              r.Price,
		CreatedAt:          formatTime(r.CreatedAt),
		UpdatedAt:          formatTime(r.UpdatedAt),
	}
}

func toRequestList(list []model.RepairRequest) []RepairRequestResponse {
	out := make([]RepairRequestResponse, 0, len(list))
	for i := range list {
		out = append(out, toRequestResponse(&list[i]))
	}
	return out
}

type DiagnosticReportResponse struct {
	ID                  string             `json:"id"`
	RepairRequestID     string             `json:"repairRequestId"`
	Analysis            string             `json:"analysis"`
	FormattedAnalysis   string             `json:"formattedAnalysis"`
	EstimatedComplexity string             `json:"estimatedComplexity"`
	EstimatedCost       model.CostEstimate `json:"estimatedCost"`
	EstimatedTime       model.TimeEstimate `json:"estimatedTime"`
	SuggestedParts      []string           `json:"suggestedParts"`
	CreatedAt           string             `json:"createdAt"`
}

func toReportResponse(r *model.DiagnosticReport) DiagnosticReportResponse {
	parts := r.SuggestedParts
	if parts == nil {
		parts = []string{}
	}
	return DiagnosticReportResponse{
		ID:                  r.ID,
		RepairRequestID:     r.RepairRequestID,
		Analysis:            r.Analysis,
		FormattedAnalysis:   r.FormattedAnalysis,
		EstimatedComplexity: string(r.EstimatedComplexity),
		EstimatedCost:       r.EstimatedCost,
		EstimatedTime:       r.EstimatedTime,
		SuggestedParts:      parts,
		CreatedAt:           formatTime(r.CreatedAt),
	}
}

type RepairerResponse struct {
	ID               string          `json:"id"`
	DisplayName      string          `json:"displayName"`
	Bio              string          `json:"bio,omitempty"`
	PhoneNumber      string          `json:"phoneNumber,omitempty"`
	Skills           []string        `json:"skills"`
	Categories       []string        `json:"categories"`
	ServiceArea      float64         `json:"serviceArea"`
	Location         *model.GeoPoint `json:"location"`
	Rating           float64         `json:"rating"`
	ReviewCount      int             `json:"reviewCount"`
	CompletedRepairs int             `json:"completedRepairs"`
	DistanceKm       *float64        `json:"distanceKm,omitempty"`
}

func toRepairerResponse(p *model.RepairerProfile) RepairerResponse {
	return RepairerResponse{
		ID:               p.ID,
		DisplayName:      p.DisplayName,
		Bio:              p.Bio,
		PhoneNumber:      p.PhoneNumber,
		Skills:           nonNil(p.Skills),
		Categories:       nonNil(p.Categories),
		ServiceArea:      p.ServiceAreaKm(),
		Location:         p.Location,
		Rating:           p.Rating,
		ReviewCount:      p.ReviewCount,
		CompletedRepairs: p.CompletedRepairs,
	}
}

type NearbyRequestResponse struct {
	RepairRequestResponse
	DistanceKm float64 `json:"distanceKm"`
}

type VerificationResponse struct {
	ID                 string   `json:"id"`
	RepairRequestID    string   `json:"repairRequestId"`
	CompletionImageURL string   `json:"completionImageUrl"`
	BeforeImageURLs    []string `json:"beforeImageUrls"`
	CompletionNote     string   `json:"completionNote"`
	Verified           bool     `json:"verified"`
	Message            string   `json:"message"`
	ServiceAvailable   bool     `json:"serviceAvailable"`
	Timestamp          string   `json:"timestamp"`
}

func toVerificationResponse(v *model.Verification) VerificationResponse {
	return VerificationResponse{
		ID:                 v.ID,
		RepairRequestID:    v.RepairRequestID,
		CompletionImageURL: v.CompletionImageURL,
		BeforeImageURLs:    nonNil(v.BeforeImageURLs),
		CompletionNote:     v.CompletionNote,
		Verified:           v.Verified,
		Message:            v.Message,
		ServiceAvailable:   v.ServiceAvailable,
		Timestamp:          formatTime(v.CreatedAt),
	}
}

type CompletionResponse struct {
	Request      RepairRequestResponse `json:"request"`
	Verified     bool                  `json:"verified"`
	Message      string                `json:"message"`
	Verification *VerificationResponse `json:"verification,omitempty"`
}

func toCompletionResponse(res *service.CompletionResult) CompletionResponse {
	out := CompletionResponse{
		Request:  toRequestResponse(res.Request),
		Verified: res.Verification.Verified,
		Message:  res.Verification.Message,
	}
	if res.Verification.Entry != nil {
		v := toVerificationResponse(res.Verification.Entry)
		out.Verification = &v
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
