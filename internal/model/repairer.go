package model

import "time"

const (
	CollectionRepairers = "repairers"

	// DefaultServiceAreaKm applies to profiles saved before service areas existed.
	DefaultServiceAreaKm = 10.0
)

type RepairerProfile struct {
	ID               string    `gorm:"primaryKey;size:128" firestore:"id"`
	DisplayName      string    `gorm:"column:display_name;size:255" firestore:"displayName"`
	Bio              string    `gorm:"column:bio;type:text" firestore:"bio,omitempty"`
	PhoneNumber      string    `gorm:"column:phone_number;size:64" firestore:"phoneNumber,omitempty"`
	Skills           []string  `gorm:"column:skills;serializer:json;type:text" firestore:"skills"`
	Categories       []string  `gorm:"column:categories;serializer:json;type:text" firestore:"categories"`
	ServiceArea      float64   `gorm:"column:service_area" firestore:"serviceArea"`
	Location         *GeoPoint `gorm:"column:location;serializer:json;type:text" firestore:"location,omitempty"`
	Rating           float64   `gorm:"column:rating" firestore:"rating"`
	ReviewCount      int       `gorm:"column:review_count" firestore:"reviewCount"`
	CompletedRepairs int       `gorm:"column:completed_repairs" firestore:"completedRepairs"`
	CreatedAt        time.Time `gorm:"autoCreateTime" firestore:"createdAt,serverTimestamp"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" firestore:"updatedAt,serverTimestamp"`
}

func (RepairerProfile) TableName() string {
	return CollectionRepairers
}

// ServiceAreaKm returns the service radius, falling back to the default for
// legacy profiles that never set one.
func (p *RepairerProfile) ServiceAreaKm() float64 {
	if p.ServiceArea <= 0 {
		return DefaultServiceAreaKm
	}
	return p.ServiceArea
}

func (p *RepairerProfile) Handles(category string) bool {
	for _, c := range p.Categories {
		if c == category {
			return true
		}
	}
	return false
}
