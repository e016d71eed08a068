package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/balance"
	"github.com/wagedesk/wagedesk/internal/certificate/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.Certificate) error {
	return db.WithContext(ctx).Create(c).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, c *domain.Certificate) error {
	return db.WithContext(ctx).Save(c).Error
}

func (r *repo) HardDelete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Certificate{}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Certificate, error) {
	var c domain.Certificate
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode, certificateNumber string, includeDeleted bool) (*domain.Certificate, error) {
	stmt := db.WithContext(ctx).
		Where("org_id = ? AND establishment_code = ? AND certificate_number = ?",
			orgID, establishmentCode, certificateNumber)
	if !includeDeleted {
		stmt = stmt.Where("deleted = ?", false)
	}
	var c domain.Certificate
	err := stmt.Take(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, deleted bool) ([]domain.Certificate, error) {
	var certs []domain.Certificate
	err := db.WithContext(ctx).
		Where("org_id = ? AND deleted = ?", orgID, deleted).
		Order("establishment_code, certificate_number").
		Find(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *repo) ListByEstablishment(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, includeDeleted bool) ([]domain.Certificate, error) {
	stmt := db.WithContext(ctx).
		Where("org_id = ? AND establishment_code = ?", orgID, establishmentCode)
	if !includeDeleted {
		stmt = stmt.Where("deleted = ?", false)
	}
	var certs []domain.Certificate
	err := stmt.Order("certificate_number").Find(&certs).Error
	if err != nil {
		return nil, err
	}
	return certs, nil
}

func (r *repo) ExistingRefs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, refs []domain.Ref) (map[domain.Ref]bool, error) {
	existing := make(map[domain.Ref]bool, len(refs))
	if len(refs) == 0 {
		return existing, nil
	}

	codes := make([]string, 0, len(refs))
	for _, ref := range refs {
		codes = append(codes, ref.EstablishmentCode)
	}

	var rows []domain.Ref
	err := db.WithContext(ctx).
		Model(&domain.Certificate{}).
		Select("establishment_code, certificate_number").
		Where("org_id = ? AND deleted = ? AND establishment_code IN ?", orgID, false, codes).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	found := make(map[domain.Ref]bool, len(rows))
	for _, row := range rows {
		found[row] = true
	}
	for _, ref := range refs {
		if found[ref] {
			existing[ref] = true
		}
	}
	return existing, nil
}

func (r *repo) UpdateShared(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Certificate{}).
		Where("org_id = ? AND establishment_code = ?", orgID, establishmentCode).
		Updates(fields).Error
}

func (r *repo) AddCostReceived(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, delta float64) error {
	// Standard SQL evaluates every SET expression against the old row, so the
	// derived columns use the post-increment value spelled out explicitly.
	return db.WithContext(ctx).Exec(
		`UPDATE certificates
		 SET cost_received = cost_received + ?,
		     cost_outstanding = cost_levied - (cost_received + ?),
		     total_with_cost = outstanding_total + cost_levied - (cost_received + ?),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE org_id = ? AND establishment_code = ?`,
		delta, delta, delta, orgID, establishmentCode,
	).Error
}

func (r *repo) SetCostReceived(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, total float64) error {
	return db.WithContext(ctx).Exec(
		`UPDATE certificates
		 SET cost_received = ?,
		     cost_outstanding = cost_levied - ?,
		     total_with_cost = outstanding_total + cost_levied - ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE org_id = ? AND establishment_code = ?`,
		total, total, total, orgID, establishmentCode,
	).Error
}

func (r *repo) UpdateGroupRollups(ctx context.Context, db *gorm.DB, orgID snowflake.ID, establishmentCode string, rollup balance.GroupRollup) error {
	return db.WithContext(ctx).
		Model(&domain.Certificate{}).
		Where("org_id = ? AND establishment_code = ?", orgID, establishmentCode).
		Updates(map[string]any{
			"group_demand_total":      rollup.Demand,
			"group_recovered_total":   rollup.Recovered,
			"group_outstanding_total": rollup.Outstanding,
			"group_with_cost_total":   rollup.WithCost,
		}).Error
}
