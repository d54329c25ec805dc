package entity

import (
	"database/sql"

	"github.com/questx-lab/gemdrops/pkg/enum"
)

type RaffleStatus string

var (
	RaffleStatusOpen    = enum.New(RaffleStatus("open"))
	RaffleStatusDrawing = enum.New(RaffleStatus("drawing"))
	RaffleStatusClosed  = enum.New(RaffleStatus("closed"))
)

type ConsolationPolicy string

var (
	// ConsolationPerSlot credits every non-winning slot.
	ConsolationPerSlot = enum.New(ConsolationPolicy("per_slot"))
	// ConsolationPerUser credits once each participant without a winning
	// slot.
	ConsolationPerUser = enum.New(ConsolationPolicy("per_user"))
)

type RaffleEvent struct {
	Base

	Name              string
	TokensPerSlot     int64
	TotalSlots        int
	FilledSlots       int
	ConsolationTokens int64
	AllowMultipleWins bool
	ConsolationPolicy ConsolationPolicy
	Status            RaffleStatus `gorm:"index"`
	ClosedAt          sql.NullTime
}

type RafflePrize struct {
	Base

	RaffleID       string `gorm:"uniqueIndex:idx_raffle_prizes_rank"`
	Rank           int    `gorm:"uniqueIndex:idx_raffle_prizes_rank"`
	CardTemplateID string
}

type RaffleSlot struct {
	Base

	RaffleID  string `gorm:"uniqueIndex:idx_raffle_slots_index"`
	SlotIndex int    `gorm:"uniqueIndex:idx_raffle_slots_index"`
	UserID    string `gorm:"index"`
}

type RaffleWinner struct {
	Base

	RaffleID  string `gorm:"uniqueIndex:idx_raffle_winners_rank"`
	Rank      int    `gorm:"uniqueIndex:idx_raffle_winners_rank"`
	SlotIndex int
	UserID    string
	CardID    string
}

type RaffleConsolation struct {
	Base

	RaffleID  string `gorm:"index"`
	UserID    string
	SlotIndex int
	Tokens    int64
}
