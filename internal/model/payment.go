package model

import "time"

const CollectionPayments = "payments"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefundDue PaymentStatus = "refund_due"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID              string        `gorm:"primaryKey;size:64" firestore:"id"`
	RepairRequestID string        `gorm:"column:repair_request_id;size:64;index" firestore:"repairRequestId"`
	UserID          string        `gorm:"column:user_id;size:128" firestore:"userId"`
	RepairerID      string        `gorm:"column:repairer_id;size:128" firestore:"repairerId"`
	Amount          float64       `gorm:"column:amount" firestore:"amount"`
	Currency        string        `gorm:"column:currency;size:8" firestore:"currency,omitempty"`
	Status          PaymentStatus `gorm:"column:status;size:16;not null" firestore:"status"`
	StripeSessionID string        `gorm:"column:stripe_session_id;size:255" firestore:"stripeSessionId,omitempty"`
	CreatedAt       time.Time     `gorm:"autoCreateTime" firestore:"createdAt,serverTimestamp"`
	UpdatedAt       time.Time     `gorm:"autoUpdateTime" firestore:"updatedAt,serverTimestamp"`
}

func (Payment) TableName() string {
	return CollectionPayments
}
