package inventory

import (
	"context"
	"errors"

	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

// Catalog guards the remaining stock of offerings. Remaining units never go
// below zero nor above the total units.
type Catalog struct {
	offeringRepo repository.OfferingRepository
}

func NewCatalog(offeringRepo repository.OfferingRepository) *Catalog {
	return &Catalog{offeringRepo: offeringRepo}
}

// ReserveUnits takes n units of an offering, or none of them.
func (c *Catalog) ReserveUnits(ctx context.Context, offeringID string, n int) error {
	if n <= 0 {
		return errorx.New(errorx.BadRequest, "Number of units must be positive")
	}

	err := c.offeringRepo.CheckAndReserveUnits(ctx, offeringID, n)
	if err == nil {
		return nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		xcontext.Logger(ctx).Errorf("Cannot reserve units: %v", err)
		return errorx.Unknown
	}

	offering, err := c.offeringRepo.GetByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found offering")
		}

		xcontext.Logger(ctx).Errorf("Cannot get offering: %v", err)
		return errorx.Unknown
	}

	if !offering.Active {
		return errorx.New(errorx.OfferingInactive, "Offering is not active")
	}

	return errorx.New(errorx.SoldOut, "Only %d units left", offering.RemainingUnits)
}

// ReleaseUnits gives n previously reserved units back.
func (c *Catalog) ReleaseUnits(ctx context.Context, offeringID string, n int) error {
	if n <= 0 {
		return nil
	}

	if err := c.offeringRepo.ReleaseUnits(ctx, offeringID, n); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Release of %d units would exceed total of offering %s", n, offeringID)
			return errorx.New(errorx.InvalidState, "Cannot release more units than reserved")
		}

		xcontext.Logger(ctx).Errorf("Cannot release units: %v", err)
		return errorx.Unknown
	}

	return nil
}
