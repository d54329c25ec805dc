package inventory

import (
	"sync"
	"testing"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func Test_Catalog_ReserveUnits(t *testing.T) {
	ctx := testutil.MockContext()
	offeringRepo := repository.NewOfferingRepository()
	catalog := NewCatalog(offeringRepo)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 100)
	offering := testutil.InsertOffering(ctx, 10, 3, []entity.PrizePoolEntry{
		{CardTemplateID: template.ID, Weight: 1},
	})

	require.NoError(t, catalog.ReserveUnits(ctx, offering.ID, 2))

	err := catalog.ReserveUnits(ctx, offering.ID, 2)
	require.ErrorIs(t, err, errorx.New(errorx.SoldOut, ""))

	require.NoError(t, catalog.ReserveUnits(ctx, offering.ID, 1))

	err = catalog.ReserveUnits(ctx, offering.ID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.SoldOut, ""))

	stored, err := offeringRepo.GetByID(ctx, offering.ID)
	require.NoError(t, err)
	require.Zero(t, stored.RemainingUnits)

	err = catalog.ReserveUnits(ctx, offering.ID, 0)
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	err = catalog.ReserveUnits(ctx, "unknown", 1)
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_Catalog_ReserveUnits_Inactive(t *testing.T) {
	ctx := testutil.MockContext()
	offeringRepo := repository.NewOfferingRepository()
	catalog := NewCatalog(offeringRepo)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 100)
	offering := testutil.InsertOffering(ctx, 10, 3, []entity.PrizePoolEntry{
		{CardTemplateID: template.ID, Weight: 1},
	})
	require.NoError(t, offeringRepo.UpdateActive(ctx, offering.ID, false))

	err := catalog.ReserveUnits(ctx, offering.ID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.OfferingInactive, ""))
}

func Test_Catalog_ReleaseUnits(t *testing.T) {
	ctx := testutil.MockContext()
	offeringRepo := repository.NewOfferingRepository()
	catalog := NewCatalog(offeringRepo)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 100)
	offering := testutil.InsertOffering(ctx, 10, 3, []entity.PrizePoolEntry{
		{CardTemplateID: template.ID, Weight: 1},
	})

	require.NoError(t, catalog.ReserveUnits(ctx, offering.ID, 2))
	require.NoError(t, catalog.ReleaseUnits(ctx, offering.ID, 2))
	require.NoError(t, catalog.ReleaseUnits(ctx, offering.ID, 0))

	// Remaining units never exceed the total.
	err := catalog.ReleaseUnits(ctx, offering.ID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	stored, err := offeringRepo.GetByID(ctx, offering.ID)
	require.NoError(t, err)
	require.Equal(t, 3, stored.RemainingUnits)
}

func Test_Catalog_ReserveUnits_Concurrent(t *testing.T) {
	ctx := testutil.MockContext()
	offeringRepo := repository.NewOfferingRepository()
	catalog := NewCatalog(offeringRepo)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 100)
	offering := testutil.InsertOffering(ctx, 10, 5, []entity.PrizePoolEntry{
		{CardTemplateID: template.ID, Weight: 1},
	})

	var mutex sync.Mutex
	succeeded := 0
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := catalog.ReserveUnits(ctx, offering.ID, 1); err == nil {
				mutex.Lock()
				succeeded++
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 5, succeeded)

	stored, err := offeringRepo.GetByID(ctx, offering.ID)
	require.NoError(t, err)
	require.Zero(t, stored.RemainingUnits)
}
