package repository

import (
	"cloud.google.com/go/firestore"
	"github.com/shinyyama/quickfix-backend/internal/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Repositories groups one implementation of every store so callers can switch
// between Firestore and SQL with a single constructor.
type Repositories struct {
	Requests      RequestRepository
	Repairers     RepairerRepository
	Reports       ReportRepository
	Payments      PaymentRepository
	Verifications VerificationRepository
	Notifications NotificationRepository
}

func NewGormRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Requests:      NewRequestRepository(db),
		Repairers:     NewRepairerRepository(db),
		Reports:       NewReportRepository(db),
		Payments:      NewPaymentRepository(db),
		Verifications: NewVerificationRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}

func NewFirestoreRepositories(client *firestore.Client) *Repositories {
	return &Repositories{
		Requests:      NewFirestoreRequestRepository(client),
		Repairers:     NewFirestoreRepairerRepository(client),
		Reports:       NewFirestoreReportRepository(client),
		Payments:      NewFirestorePaymentRepository(client),
		Verifications: NewFirestoreVerificationRepository(client),
		Notifications: NewFirestoreNotificationRepository(client),
	}
}

// AutoMigrate creates every SQL table, including the legacy request table.
func AutoMigrate(db *gorm.DB) error {
	for _, table := range model.RequestCollections {
		if err := db.Table(table).AutoMigrate(&model.RepairRequest{}); err != nil {
			return err
		}
	}
	return db.AutoMigrate(
		&model.RepairerProfile{},
		&model.DiagnosticReport{},
		&model.Payment{},
		&model.Verification{},
		&model.Notification{},
	)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
