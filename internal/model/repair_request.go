package model

import "time"

// Collection names. Older clients wrote requests to the hyphenated collection;
// both are read, only the canonical one is written to on create.
const (
	CollectionRepairRequests       = "repairRequests"
	CollectionLegacyRepairRequests = "repair-requests"
)

// RequestCollections lists request collections in lookup order.
var RequestCollections = []string{CollectionRepairRequests, CollectionLegacyRepairRequests}

type RepairRequest struct {
	ID                 string       `gorm:"primaryKey;size:64" firestore:"id"`
	RequesterID        string       `gorm:"column:user_id;size:128;not null" firestore:"userId"`
	Title              string       `gorm:"column:title;size:255;not null" firestore:"title"`
	Description        string       `gorm:"column:description;type:text" firestore:"description"`
	Category           string       `gorm:"column:category;size:32" firestore:"category"`
	ImageURLs          []string     `gorm:"column:image_urls;serializer:json;type:text" firestore:"imageUrls"`
	Location           GeoPoint     `gorm:"column:location;serializer:json;type:text" firestore:"location"`
	Status             RepairStatus `gorm:"column:status;size:32;not null" firestore:"status"`
	RepairerID         string       `gorm:"column:repairer_id;size:128" firestore:"repairerId,omitempty"`
	DiagnosticReportID string       `gorm:"column:diagnostic_report_id;size:64" firestore:"diagnosticReportId,omitempty"`
	Price              *float64     `gorm:"column:price" firestore:"price,omitempty"`
	CreatedAt          time.Time    `gorm:"autoCreateTime" firestore:"createdAt,serverTimestamp"`
	UpdatedAt          time.Time    `gorm:"autoUpdateTime" firestore:"updatedAt,serverTimestamp"`
}

func (RepairRequest) TableName() string {
	return CollectionRepairRequests
}

// HasParticipant reports whether uid is the requester or the assigned repairer.
func (r *RepairRequest) HasParticipant(uid string) bool {
	return uid != "" && (uid == r.RequesterID || uid == r.RepairerID)
}
