package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/establishment/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *domain.Establishment) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, e *domain.Establishment) error {
	return db.WithContext(ctx).Save(e).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, orgID snowflake.ID, code string) (*domain.Establishment, error) {
	var e domain.Establishment
	err := db.WithContext(ctx).
		Where("org_id = ? AND code = ?", orgID, code).
		Take(&e).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.Establishment, error) {
	var out []domain.Establishment
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("code").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
