package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/establishment/domain"
	"github.com/wagedesk/wagedesk/internal/importer"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

// Params holds service dependencies.
type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	CertRepo certdomain.Repository
	Log      *zap.Logger
	Clock    clock.Clock
	Node     *snowflake.Node
}

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	certRepo certdomain.Repository
	log      *zap.Logger
	clock    clock.Clock
	node     *snowflake.Node
}

// New constructs the establishment service.
func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		repo:     p.Repo,
		certRepo: p.CertRepo,
		log:      p.Log.Named("establishment.service"),
		clock:    p.Clock,
		node:     p.Node,
	}
}

func (s *service) org(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, orgcontext.ErrMissingOrg
	}
	return orgID, nil
}

func (s *service) List(ctx context.Context) ([]domain.Establishment, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, orgID)
}

func (s *service) GetByCode(ctx context.Context, code string) (*domain.Establishment, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.repo.FindByCode(ctx, s.db, orgID, code)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

func (s *service) Upsert(ctx context.Context, in domain.Establishment) (*domain.Establishment, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return nil, domain.ErrInvalidCode
	}

	now := s.clock.Now()
	existing, err := s.repo.FindByCode(ctx, s.db, orgID, in.Code)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		in.ID = s.node.Generate()
		in.OrgID = orgID
		in.CreatedAt = now
		in.UpdatedAt = now
		if err := s.repo.Insert(ctx, s.db, &in); err != nil {
			return nil, err
		}
		existing = &in
	} else {
		existing.Name = in.Name
		existing.Address1 = in.Address1
		existing.Address2 = in.Address2
		existing.City = in.City
		existing.State = in.State
		existing.Pincode = in.Pincode
		existing.Phone = in.Phone
		existing.Email = in.Email
		existing.UpdatedAt = now
		if err := s.repo.Save(ctx, s.db, existing); err != nil {
			return nil, err
		}
	}

	if err := s.SyncToCertificates(ctx, existing.Code); err != nil {
		s.log.Warn("certificate sync failed after upsert",
			zap.String("code", existing.Code),
			zap.Error(err),
		)
	}
	return existing, nil
}

// BulkUpsert loads establishment rows from an uploaded sheet. Row failures
// are collected, not fatal.
func (s *service) BulkUpsert(ctx context.Context, rows []importer.Row) (domain.ImportReport, error) {
	if len(rows) == 0 {
		return domain.ImportReport{}, domain.ErrEmptyImport
	}

	var report domain.ImportReport
	for _, row := range rows {
		in := domain.Establishment{
			Code:     row.Get("establishment_code"),
			Name:     row.Get("establishment_name"),
			Address1: row.Get("address1"),
			Address2: row.Get("address2"),
			City:     row.Get("city"),
			State:    row.Get("state"),
			Pincode:  row.Get("pincode"),
			Phone:    row.Get("phone"),
			Email:    row.Get("email"),
		}
		if _, err := s.Upsert(ctx, in); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{
				Row: row.Number, Message: err.Error(),
			})
			continue
		}
		report.Processed++
	}
	return report, nil
}

// SyncToCertificates is the one-way master-to-certificate push. Certificates
// never write back to the master.
func (s *service) SyncToCertificates(ctx context.Context, code string) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	master, err := s.repo.FindByCode(ctx, s.db, orgID, code)
	if err != nil {
		return err
	}
	if master == nil {
		return domain.ErrNotFound
	}

	fields := map[string]any{
		"address1": master.Address1,
		"address2": master.Address2,
		"city":     master.City,
		"state":    master.State,
		"pincode":  master.Pincode,
		"phone":    master.Phone,
		"email":    master.Email,
	}
	if master.Name != "" {
		fields["establishment_name"] = master.Name
	}
	return s.certRepo.UpdateShared(ctx, s.db, orgID, code, fields)
}
