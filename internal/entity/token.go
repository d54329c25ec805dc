package entity

import (
	"time"

	"github.com/questx-lab/gemdrops/pkg/enum"
)

type LedgerReason string

var (
	// LedgerReasonPending marks a reservation which is neither committed nor
	// released yet.
	LedgerReasonPending     = enum.New(LedgerReason("pending"))
	LedgerReasonPurchase    = enum.New(LedgerReason("purchase"))
	LedgerReasonCancelled   = enum.New(LedgerReason("cancelled"))
	LedgerReasonRelease     = enum.New(LedgerReason("release"))
	LedgerReasonRefund      = enum.New(LedgerReason("refund"))
	LedgerReasonConsolation = enum.New(LedgerReason("consolation"))
	LedgerReasonPrize       = enum.New(LedgerReason("prize"))
	LedgerReasonTopUp       = enum.New(LedgerReason("topup"))
)

type TokenAccount struct {
	UserID    string `gorm:"primaryKey"`
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry is append-only except for the reason of a pending reservation,
// which moves to purchase on commit or to cancelled on release.
type LedgerEntry struct {
	SnowFlakeBase

	UserID    string `gorm:"index"`
	Delta     int64
	Reason    LedgerReason `gorm:"index"`
	Reference string       `gorm:"index"`
}
