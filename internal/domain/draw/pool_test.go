package draw

import (
	"math"
	"testing"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/stretchr/testify/require"
)

func weightedPool(weights ...float64) []entity.PrizePoolEntry {
	pool := []entity.PrizePoolEntry{}
	for i, w := range weights {
		pool = append(pool, entity.PrizePoolEntry{
			CardTemplateID: string(rune('a' + i)),
			Weight:         w,
		})
	}

	return pool
}

func TestValidatePool(t *testing.T) {
	tests := []struct {
		name    string
		pool    []entity.PrizePoolEntry
		wantErr bool
	}{
		{
			name: "weighted",
			pool: weightedPool(50, 30, 20),
		},
		{
			name: "zero weight entries are allowed",
			pool: weightedPool(0, 1),
		},
		{
			name: "guaranteed",
			pool: []entity.PrizePoolEntry{
				{CardTemplateID: "a", Guaranteed: true},
				{CardTemplateID: "b", Guaranteed: true},
			},
		},
		{
			name:    "empty",
			pool:    nil,
			wantErr: true,
		},
		{
			name:    "all weights are zero",
			pool:    weightedPool(0, 0),
			wantErr: true,
		},
		{
			name:    "negative weight",
			pool:    weightedPool(10, -1),
			wantErr: true,
		},
		{
			name:    "nan weight",
			pool:    weightedPool(math.NaN()),
			wantErr: true,
		},
		{
			name:    "infinite weight",
			pool:    weightedPool(math.Inf(1), 1),
			wantErr: true,
		},
		{
			name: "mixed",
			pool: []entity.PrizePoolEntry{
				{CardTemplateID: "a", Guaranteed: true},
				{CardTemplateID: "b", Weight: 10},
			},
			wantErr: true,
		},
		{
			name:    "missing template",
			pool:    []entity.PrizePoolEntry{{Weight: 1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePool(tt.pool)
			if tt.wantErr {
				require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_selectWeighted(t *testing.T) {
	pool := weightedPool(50, 0, 30, 20)

	require.Equal(t, 0, selectWeighted(pool, 0))
	require.Equal(t, 0, selectWeighted(pool, 49.999))
	require.Equal(t, 2, selectWeighted(pool, 50))
	require.Equal(t, 2, selectWeighted(pool, 79.999))
	require.Equal(t, 3, selectWeighted(pool, 80))
	require.Equal(t, 3, selectWeighted(pool, 99.999))
	require.Equal(t, 3, selectWeighted(pool, 100))
}

func Test_roll_Distribution(t *testing.T) {
	const n = 100000
	pool := weightedPool(50, 30, 20)

	counts := map[string]int{}
	for i := 0; i < n; i++ {
		outcomes := roll(pool)
		require.Len(t, outcomes, 1)
		require.False(t, outcomes[0].guaranteed)
		require.Equal(t, 100.0, outcomes[0].totalWeight)
		require.GreaterOrEqual(t, outcomes[0].roll, 0.0)
		require.Less(t, outcomes[0].roll, 100.0)

		counts[outcomes[0].entry.CardTemplateID]++
	}

	require.InDelta(t, 0.5, float64(counts["a"])/n, 0.01)
	require.InDelta(t, 0.3, float64(counts["b"])/n, 0.01)
	require.InDelta(t, 0.2, float64(counts["c"])/n, 0.01)
}

func Test_roll_ZeroWeightNeverSelected(t *testing.T) {
	pool := weightedPool(0, 1, 0)
	for i := 0; i < 1000; i++ {
		require.Equal(t, "b", roll(pool)[0].entry.CardTemplateID)
	}
}

func Test_roll_Guaranteed(t *testing.T) {
	pool := []entity.PrizePoolEntry{
		{CardTemplateID: "a", Guaranteed: true},
		{CardTemplateID: "b", Guaranteed: true},
		{CardTemplateID: "c", Guaranteed: true},
	}

	outcomes := roll(pool)
	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		require.True(t, o.guaranteed)
		require.Equal(t, pool[i].CardTemplateID, o.entry.CardTemplateID)
	}
}
