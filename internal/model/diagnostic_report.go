package model

import "time"

const CollectionDiagnosticReports = "diagnosticReports"

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

type CostEstimate struct {
	Min    float64 `json:"min" firestore:"min"`
	Max    float64 `json:"max" firestore:"max"`
	MinInr float64 `json:"minInr" firestore:"minInr"`
	MaxInr float64 `json:"maxInr" firestore:"maxInr"`
}

// TimeEstimate is in hours.
type TimeEstimate struct {
	Min float64 `json:"min" firestore:"min"`
	Max float64 `json:"max" firestore:"max"`
}

// DiagnosticReport is immutable once written.
type DiagnosticReport struct {
	ID                  string       `gorm:"primaryKey;size:64" firestore:"id"`
	RepairRequestID     string       `gorm:"column:repair_request_id;size:64;index" firestore:"repairRequestId"`
	Analysis            string       `gorm:"column:analysis;type:text" firestore:"analysis"`
	FormattedAnalysis   string       `gorm:"column:formatted_analysis;type:text" firestore:"formattedAnalysis"`
	EstimatedComplexity Complexity   `gorm:"column:estimated_complexity;size:16" firestore:"estimatedComplexity"`
	EstimatedCost       CostEstimate `gorm:"column:estimated_cost;serializer:json;type:text" firestore:"estimatedCost"`
	EstimatedTime       TimeEstimate `gorm:"column:estimated_time;serializer:json;type:text" firestore:"estimatedTime"`
	SuggestedParts      []string     `gorm:"column:suggested_parts;serializer:json;type:text" firestore:"suggestedParts"`
	CreatedAt           time.Time    `gorm:"autoCreateTime" firestore:"createdAt,serverTimestamp"`
}

func (DiagnosticReport) TableName() string {
	return CollectionDiagnosticReports
}
