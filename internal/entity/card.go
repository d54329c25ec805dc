package entity

import "github.com/questx-lab/gemdrops/pkg/enum"

type CardState string

var (
	CardStateOwned           = enum.New(CardState("owned"))
	CardStateRefundRequested = enum.New(CardState("refund_requested"))
	CardStateShipRequested   = enum.New(CardState("ship_requested"))
	CardStateRemoved         = enum.New(CardState("removed"))
)

type CardSource string

var (
	CardSourceDraw   = enum.New(CardSource("draw"))
	CardSourceRaffle = enum.New(CardSource("raffle"))
)

type Card struct {
	Base

	OwnerID    string `gorm:"index"`
	TemplateID string
	Name       string
	Category   string
	Tier       Tier
	TierRank   int
	TokenValue int64
	State      CardState `gorm:"index"`

	Source CardSource
	// Reference is the purchase id for drawn cards and the raffle id for
	// raffle prizes.
	Reference string `gorm:"index"`
}
