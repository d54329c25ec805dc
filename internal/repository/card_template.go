package repository

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

type CardTemplateRepository interface {
	Create(ctx context.Context, template *entity.CardTemplate) error
	GetByID(ctx context.Context, templateID string) (*entity.CardTemplate, error)
	GetByIDs(ctx context.Context, templateIDs []string) ([]entity.CardTemplate, error)
}

type cardTemplateRepository struct{}

func NewCardTemplateRepository() *cardTemplateRepository {
	return &cardTemplateRepository{}
}

func (r *cardTemplateRepository) Create(ctx context.Context, template *entity.CardTemplate) error {
	return xcontext.DB(ctx).Create(template).Error
}

func (r *cardTemplateRepository) GetByID(ctx context.Context, templateID string) (*entity.CardTemplate, error) {
	var result entity.CardTemplate
	if err := xcontext.DB(ctx).Take(&result, "id=?", templateID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *cardTemplateRepository) GetByIDs(ctx context.Context, templateIDs []string) ([]entity.CardTemplate, error) {
	var result []entity.CardTemplate
	if err := xcontext.DB(ctx).Find(&result, "id IN (?)", templateIDs).Error; err != nil {
		return nil, err
	}

	return result, nil
}
