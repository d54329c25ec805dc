package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

type seedFile struct {
	CardTemplates []seedCardTemplate `toml:"card_templates"`
	Offerings     []seedOffering     `toml:"offerings"`
	Raffles       []seedRaffle       `toml:"raffles"`
}

type seedCardTemplate struct {
	Name       string `toml:"name"`
	Category   string `toml:"category"`
	Tier       string `toml:"tier"`
	TokenValue int64  `toml:"token_value"`
}

type seedOffering struct {
	Name       string          `toml:"name"`
	Kind       string          `toml:"kind"`
	Price      int64           `toml:"price"`
	TotalUnits int             `toml:"total_units"`
	Pool       []seedPoolEntry `toml:"pool"`
}

type seedPoolEntry struct {
	Card       string  `toml:"card"`
	Weight     float64 `toml:"weight"`
	Guaranteed bool    `toml:"guaranteed"`
}

type seedRaffle struct {
	Name              string   `toml:"name"`
	TokensPerSlot     int64    `toml:"tokens_per_slot"`
	TotalSlots        int      `toml:"total_slots"`
	ConsolationTokens int64    `toml:"consolation_tokens"`
	Prizes            []string `toml:"prizes"`
	AllowMultipleWins *bool    `toml:"allow_multiple_wins"`
	ConsolationPolicy string   `toml:"consolation_policy"`
}

// startSeed creates everything declared in the seed file in one transaction,
// a failure leaves the database untouched.
func (s *srv) startSeed(cctx *cli.Context) error {
	if cctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one seed file")
	}

	var seed seedFile
	if _, err := toml.DecodeFile(cctx.Args().First(), &seed); err != nil {
		return err
	}

	s.loadContext()
	s.loadDatabase()
	s.loadPublisher()
	s.loadRepos()
	s.loadDomains()

	ctx := xcontext.WithDBTransaction(s.ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	templateIDs := map[string]string{}
	for _, t := range seed.CardTemplates {
		resp, err := s.offeringDomain.CreateCardTemplate(ctx, &model.CreateCardTemplateRequest{
			Name:       t.Name,
			Category:   t.Category,
			Tier:       t.Tier,
			TokenValue: t.TokenValue,
		})
		if err != nil {
			return fmt.Errorf("card template %s: %w", t.Name, err)
		}

		templateIDs[t.Name] = resp.ID
	}

	lookup := func(name string) (string, error) {
		id, ok := templateIDs[name]
		if !ok {
			return "", fmt.Errorf("unknown card template %s", name)
		}
		return id, nil
	}

	for _, o := range seed.Offerings {
		req := &model.CreateOfferingRequest{
			Name:       o.Name,
			Kind:       o.Kind,
			Price:      o.Price,
			TotalUnits: o.TotalUnits,
		}

		for _, entry := range o.Pool {
			id, err := lookup(entry.Card)
			if err != nil {
				return fmt.Errorf("offering %s: %w", o.Name, err)
			}

			req.Pool = append(req.Pool, model.CreatePrizePoolEntry{
				CardTemplateID: id,
				Weight:         entry.Weight,
				Guaranteed:     entry.Guaranteed,
			})
		}

		if _, err := s.offeringDomain.Create(ctx, req); err != nil {
			return fmt.Errorf("offering %s: %w", o.Name, err)
		}
	}

	for _, r := range seed.Raffles {
		req := &model.CreateRaffleRequest{
			Name:              r.Name,
			TokensPerSlot:     r.TokensPerSlot,
			TotalSlots:        r.TotalSlots,
			ConsolationTokens: r.ConsolationTokens,
			AllowMultipleWins: r.AllowMultipleWins,
			ConsolationPolicy: r.ConsolationPolicy,
		}

		for _, prize := range r.Prizes {
			id, err := lookup(prize)
			if err != nil {
				return fmt.Errorf("raffle %s: %w", r.Name, err)
			}

			req.Prizes = append(req.Prizes, id)
		}

		if _, err := s.raffleDomain.Create(ctx, req); err != nil {
			return fmt.Errorf("raffle %s: %w", r.Name, err)
		}
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Seeded %d card templates, %d offerings and %d raffles",
		len(seed.CardTemplates), len(seed.Offerings), len(seed.Raffles))
	return nil
}
