package model

import "time"

const CollectionNotifications = "notifications"

type NotificationType string

const (
	NotifyDiagnosed       NotificationType = "request_diagnosed"
	NotifyAccepted        NotificationType = "request_accepted"
	NotifyStarted         NotificationType = "repair_started"
	NotifyCompleted       NotificationType = "repair_completed"
	NotifyVerified        NotificationType = "repair_verified"
	NotifyPaymentRequired NotificationType = "payment_requested"
	NotifyPaid            NotificationType = "payment_received"
	NotifyCancelled       NotificationType = "request_cancelled"
	NotifyRefundDue       NotificationType = "refund_due"
)

type Notification struct {
	ID              string           `gorm:"primaryKey;size:64" firestore:"id"`
	UserID          string           `gorm:"column:user_id;size:128;index;not null" firestore:"userId"`
	Type            NotificationType `gorm:"column:type;size:64;not null" firestore:"type"`
	Title           string           `gorm:"column:title;size:255" firestore:"title"`
	Body            string           `gorm:"column:body;type:text" firestore:"body"`
	RepairRequestID string           `gorm:"column:repair_request_id;size:64" firestore:"repairRequestId,omitempty"`
	ReadAt          *time.Time       `gorm:"column:read_at" firestore:"readAt,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" firestore:"createdAt,serverTimestamp"`
}

func (Notification) TableName() string {
	return CollectionNotifications
}
