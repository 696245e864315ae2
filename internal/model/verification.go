package model

import "time"

const CollectionVerifications = "repairVerifications"

// Verification is one completion-evidence check. Entries are append-only.
type Verification struct {
	ID                 string    `gorm:"primaryKey;size:64" firestore:"id"`
	RepairRequestID    string    `gorm:"column:repair_request_id;size:64;index" firestore:"repairRequestId"`
	CompletionImageURL string    `gorm:"column:completion_image_url;type:text" firestore:"completionImageUrl"`
	BeforeImageURLs    []string  `gorm:"column:before_image_urls;serializer:json;type:text" firestore:"beforeImageUrls"`
	CompletionNote     string    `gorm:"column:completion_note;type:text" firestore:"completionNote"`
	Verified           bool      `gorm:"column:verified" firestore:"verified"`
	Message            string    `gorm:"column:message;type:text" firestore:"message"`
	ServiceAvailable   bool      `gorm:"column:service_available" firestore:"serviceAvailable"`
	CreatedAt          time.Time `gorm:"autoCreateTime" firestore:"timestamp,serverTimestamp"`
}

func (Verification) TableName() string {
	return CollectionVerifications
}
