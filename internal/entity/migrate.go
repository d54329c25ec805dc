package entity

import (
	"context"

	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

func MigrateTable(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&TokenAccount{},
		&LedgerEntry{},
		&CardTemplate{},
		&Offering{},
		&PrizePoolEntry{},
		&Card{},
		&Purchase{},
		&DrawRecord{},
		&RaffleEvent{},
		&RafflePrize{},
		&RaffleSlot{},
		&RaffleWinner{},
		&RaffleConsolation{},
	)
}
