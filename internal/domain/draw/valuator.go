package draw

import (
	"context"
	"errors"

	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

// Valuator resolves the card template, and so the token value, of a prize.
type Valuator interface {
	Value(ctx context.Context, templateID string) (*entity.CardTemplate, error)
}

type cachedValuator struct {
	cardTemplateRepo repository.CardTemplateRepository

	// Card templates are never updated after creation.
	cache *xsync.MapOf[string, entity.CardTemplate]
}

func NewValuator(cardTemplateRepo repository.CardTemplateRepository) *cachedValuator {
	return &cachedValuator{
		cardTemplateRepo: cardTemplateRepo,
		cache:            xsync.NewMapOf[entity.CardTemplate](),
	}
}

func (v *cachedValuator) Value(ctx context.Context, templateID string) (*entity.CardTemplate, error) {
	if template, ok := v.cache.Load(templateID); ok {
		return &template, nil
	}

	template, err := v.cardTemplateRepo.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found card template %s", templateID)
		}

		xcontext.Logger(ctx).Errorf("Cannot get card template: %v", err)
		return nil, errorx.Unknown
	}

	v.cache.Store(templateID, *template)
	return template, nil
}
