package entity

import "github.com/questx-lab/gemdrops/pkg/enum"

type Tier string

var (
	TierSSS = enum.New(Tier("SSS"))
	TierSS  = enum.New(Tier("SS"))
	TierS   = enum.New(Tier("S"))
	TierA   = enum.New(Tier("A"))
	TierB   = enum.New(Tier("B"))
	TierC   = enum.New(Tier("C"))
	TierD   = enum.New(Tier("D"))
)

var tierRanks = map[Tier]int{
	TierSSS: 7,
	TierSS:  6,
	TierS:   5,
	TierA:   4,
	TierB:   3,
	TierC:   2,
	TierD:   1,
}

// Rank orders tiers, SSS being the highest. Unknown tiers rank 0.
func (t Tier) Rank() int {
	return tierRanks[t]
}
