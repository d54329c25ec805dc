package draw

import (
	"math"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/crypto"
	"github.com/questx-lab/gemdrops/pkg/errorx"
)

// ValidatePool rejects pools which cannot be drawn from. A pool is either
// fully guaranteed, or fully weighted with at least one positive weight.
func ValidatePool(pool []entity.PrizePoolEntry) error {
	if len(pool) == 0 {
		return errorx.New(errorx.BadRequest, "Prize pool must not be empty")
	}

	guaranteed := 0
	totalWeight := 0.0
	for i, e := range pool {
		if e.CardTemplateID == "" {
			return errorx.New(errorx.BadRequest, "Entry %d has no card template", i+1)
		}

		if e.Guaranteed {
			guaranteed++
			continue
		}

		if math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) || e.Weight < 0 {
			return errorx.New(errorx.BadRequest, "Weight of entry %d must be a non-negative number", i+1)
		}

		totalWeight += e.Weight
	}

	if guaranteed == len(pool) {
		return nil
	}

	if guaranteed > 0 {
		return errorx.New(errorx.BadRequest, "Cannot mix guaranteed and weighted entries")
	}

	if totalWeight <= 0 {
		return errorx.New(errorx.BadRequest, "At least one entry must have a positive weight")
	}

	return nil
}

func isGuaranteed(pool []entity.PrizePoolEntry) bool {
	for _, e := range pool {
		if !e.Guaranteed {
			return false
		}
	}

	return len(pool) > 0
}

func totalWeight(pool []entity.PrizePoolEntry) float64 {
	total := 0.0
	for _, e := range pool {
		if e.Weight > 0 {
			total += e.Weight
		}
	}

	return total
}

// selectWeighted returns the index of the entry whose cumulative weight
// range contains roll. Entries without weight are never selected.
func selectWeighted(pool []entity.PrizePoolEntry, roll float64) int {
	last := -1
	cumulative := 0.0
	for i, e := range pool {
		if e.Weight <= 0 {
			continue
		}

		last = i
		cumulative += e.Weight
		if roll < cumulative {
			return i
		}
	}

	// Rounding may leave roll right at the total.
	return last
}

// outcome is a single selection from a pool.
type outcome struct {
	entry       entity.PrizePoolEntry
	roll        float64
	totalWeight float64
	guaranteed  bool
}

// roll draws one unit from pool. A guaranteed pool yields every entry once.
func roll(pool []entity.PrizePoolEntry) []outcome {
	if isGuaranteed(pool) {
		result := make([]outcome, 0, len(pool))
		for _, e := range pool {
			result = append(result, outcome{entry: e, guaranteed: true})
		}

		return result
	}

	total := totalWeight(pool)
	value := crypto.RandFloat64() * total
	return []outcome{{
		entry:       pool[selectWeighted(pool, value)],
		roll:        value,
		totalWeight: total,
	}}
}
