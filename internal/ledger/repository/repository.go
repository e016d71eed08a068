package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/ledger/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, e *domain.Entry) error {
	return db.WithContext(ctx).Create(e).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, e *domain.Entry) error {
	return db.WithContext(ctx).Save(e).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Entry{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Entry, error) {
	var e domain.Entry
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&e).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) ListByCertificate(ctx context.Context, db *gorm.DB, orgID, certificateID snowflake.ID) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Where("org_id = ? AND certificate_id = ?", orgID, certificateID).
		Order("instrument_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListByEstablishment(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Where("org_id = ? AND establishment_code = ?", orgID, establishmentCode).
		Order("instrument_date, id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) FindDuplicate(ctx context.Context, db *gorm.DB, orgID snowflake.ID, referenceNo string, instrumentDate time.Time, excludeID snowflake.ID) (*domain.Entry, error) {
	day := instrumentDate.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	stmt := db.WithContext(ctx).
		Where("org_id = ? AND reference_no = ? AND instrument_date >= ? AND instrument_date < ?",
			orgID, referenceNo, day, next)
	if excludeID != 0 {
		stmt = stmt.Where("id <> ?", excludeID)
	}

	var e domain.Entry
	err := stmt.Take(&e).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}
