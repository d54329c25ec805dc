package entity

import "github.com/questx-lab/gemdrops/pkg/enum"

type PurchaseStatus string

var (
	PurchaseStatusPending   = enum.New(PurchaseStatus("pending"))
	PurchaseStatusCompleted = enum.New(PurchaseStatus("completed"))
	PurchaseStatusFailed    = enum.New(PurchaseStatus("failed"))
)

type Purchase struct {
	Base

	UserID         string `gorm:"uniqueIndex:idx_purchases_user_key"`
	IdempotencyKey string `gorm:"uniqueIndex:idx_purchases_user_key"`

	OfferingID    string `gorm:"index"`
	Quantity      int
	TotalPrice    int64
	ReservationID int64
	Status        PurchaseStatus
}

// DrawRecord is the audit trail of a single draw.
type DrawRecord struct {
	Base

	Reference  string `gorm:"index"`
	OfferingID string `gorm:"index"`
	UserID     string

	// Roll is the uniform value in [0, TotalWeight) that selected the entry.
	// Guaranteed grants have no roll.
	Roll        float64
	TotalWeight float64
	Guaranteed  bool

	CardTemplateID string
	CardID         string
}
