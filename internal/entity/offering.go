package entity

import "github.com/questx-lab/gemdrops/pkg/enum"

type OfferingKind string

var (
	OfferingKindGemDrop    = enum.New(OfferingKind("gem_drop"))
	OfferingKindMysteryBox = enum.New(OfferingKind("mystery_box"))
)

type Offering struct {
	Base

	Name           string
	Kind           OfferingKind
	Price          int64
	TotalUnits     int
	RemainingUnits int
	Active         bool
}

type PrizePoolEntry struct {
	Base

	OfferingID     string `gorm:"index"`
	Position       int
	CardTemplateID string
	Tier           Tier
	Weight         float64
	Guaranteed     bool
}

type CardTemplate struct {
	Base

	Name       string
	Category   string `gorm:"index"`
	Tier       Tier
	TokenValue int64
}
