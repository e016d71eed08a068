package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/allocation"
	"github.com/wagedesk/wagedesk/internal/balance"
	"github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/observability/metrics"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

// Params holds service dependencies.
type Params struct {
	fx.In

	DB      *gorm.DB
	Repo    domain.Repository
	Log     *zap.Logger
	Clock   clock.Clock
	Node    *snowflake.Node
	Holder  *config.RecoveryConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	repo    domain.Repository
	log     *zap.Logger
	clock   clock.Clock
	node    *snowflake.Node
	holder  *config.RecoveryConfigHolder
	metrics *metrics.Metrics
}

// New constructs the certificate service.
func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		repo:    p.Repo,
		log:     p.Log.Named("certificate.service"),
		clock:   p.Clock,
		node:    p.Node,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

func (s *service) org(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, orgcontext.ErrMissingOrg
	}
	return orgID, nil
}

func (s *service) List(ctx context.Context) ([]domain.Certificate, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, orgID, false)
}

func (s *service) ListTrash(ctx context.Context) ([]domain.Certificate, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, s.db, orgID, true)
}

func (s *service) GetByNumber(ctx context.Context, establishmentCode, certificateNumber string) (*domain.Certificate, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	cert, err := s.repo.FindByNumber(ctx, s.db, orgID, establishmentCode, certificateNumber, false)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrNotFound
	}
	return cert, nil
}

func (s *service) UpdateShared(ctx context.Context, establishmentCode string, patch domain.SharedFieldsPatch) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(establishmentCode) == "" {
		return domain.ErrInvalidEstablishmentCode
	}

	members, err := s.repo.ListByEstablishment(ctx, s.db, orgID, establishmentCode, true)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return domain.ErrNotFound
	}

	fields := map[string]any{}
	if patch.Office != nil {
		fields["office"] = *patch.Office
	}
	if patch.EnforcementOfficer != nil {
		fields["enforcement_officer"] = *patch.EnforcementOfficer
	}
	if patch.Remarks != nil {
		fields["remarks"] = *patch.Remarks
	}
	if patch.CostLevied != nil {
		levied := *patch.CostLevied
		fields["cost_levied"] = levied
		fields["cost_outstanding"] = gorm.Expr("? - cost_received", levied)
		fields["total_with_cost"] = gorm.Expr("outstanding_total + (? - cost_received)", levied)
	}
	if err := s.repo.UpdateShared(ctx, s.db, orgID, establishmentCode, fields); err != nil {
		return err
	}

	if patch.CostLevied != nil {
		return s.RecomputeGroupRollups(ctx, establishmentCode)
	}
	return nil
}

func (s *service) AppendRemark(ctx context.Context, establishmentCode, remark, source string) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	remark = strings.TrimSpace(remark)
	if remark == "" {
		return nil
	}

	members, err := s.repo.ListByEstablishment(ctx, s.db, orgID, establishmentCode, true)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return domain.ErrNotFound
	}

	if s.holder.Get().StampRemarkAppends {
		stamp := s.clock.Now().Format("02-01-2006")
		if source != "" {
			remark = fmt.Sprintf("[%s %s] %s", stamp, source, remark)
		} else {
			remark = fmt.Sprintf("[%s] %s", stamp, remark)
		}
	}

	existing := strings.TrimSpace(members[0].Remarks)
	combined := remark
	if existing != "" {
		combined = existing + "; " + remark
	}
	return s.repo.UpdateShared(ctx, s.db, orgID, establishmentCode, map[string]any{
		"remarks": combined,
	})
}

func (s *service) SoftDelete(ctx context.Context, id snowflake.ID) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	cert, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if cert == nil || cert.Deleted {
		return domain.ErrNotFound
	}

	now := s.clock.Now()
	cert.Deleted = true
	cert.DeletedAt = &now
	cert.UpdatedAt = now
	if err := s.repo.Save(ctx, s.db, cert); err != nil {
		return err
	}

	s.log.Info("certificate trashed",
		zap.Int64("certificate_id", int64(cert.ID)),
		zap.String("certificate_number", cert.CertificateNumber),
	)
	return s.RecomputeGroupRollups(ctx, cert.EstablishmentCode)
}

func (s *service) Restore(ctx context.Context, id snowflake.ID) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	cert, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if cert == nil {
		return domain.ErrNotFound
	}
	if !cert.Deleted {
		return domain.ErrNotTrashed
	}

	cert.Deleted = false
	cert.DeletedAt = nil
	cert.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, cert); err != nil {
		return err
	}

	s.log.Info("certificate restored",
		zap.Int64("certificate_id", int64(cert.ID)),
		zap.String("certificate_number", cert.CertificateNumber),
	)
	return s.RecomputeGroupRollups(ctx, cert.EstablishmentCode)
}

func (s *service) Purge(ctx context.Context, id snowflake.ID) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	cert, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if cert == nil {
		return domain.ErrNotFound
	}
	if !cert.Deleted {
		return domain.ErrNotTrashed
	}
	return s.repo.HardDelete(ctx, s.db, orgID, id)
}

// SetRecovered stores the resummed recovered amounts and re-derives every
// recovered, outstanding and cost column of the certificate. Outstanding
// sub-accounts are unclamped differences; section totals come off the stored
// demand totals so certificates carrying only section-level demand figures
// stay consistent.
func (s *service) SetRecovered(ctx context.Context, id snowflake.ID, recovered allocation.Amounts) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	cert, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if cert == nil {
		return domain.ErrNotFound
	}

	cert.Recovered = domain.ColumnsFrom(recovered)
	cert.Recovered7A = recovered.S7A.Sum()
	cert.Recovered7Q = recovered.S7Q.Sum()
	cert.Recovered14B = recovered.S14B.Sum()
	cert.RecoveredTotal = recovered.Total()

	out := balance.Outstanding(cert.Demand.Amounts(), recovered)
	cert.Outstanding = domain.ColumnsFrom(out.Amounts)
	cert.Outstanding7A = cert.Demand7A - cert.Recovered7A
	cert.Outstanding7Q = cert.Demand7Q - cert.Recovered7Q
	cert.Outstanding14B = cert.Demand14B - cert.Recovered14B
	cert.OutstandingTotal = cert.DemandTotal - cert.RecoveredTotal

	cert.CostOutstanding, cert.TotalWithCost = balance.CostRecovery(
		cert.CostLevied, cert.CostReceived, cert.OutstandingTotal)

	cert.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, s.db, cert); err != nil {
		return err
	}
	s.metrics.RecordReconciliation(ctx)
	return nil
}

func (s *service) ApplyCostReceived(ctx context.Context, establishmentCode string, delta float64) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	if delta == 0 {
		return nil
	}
	if err := s.repo.AddCostReceived(ctx, s.db, orgID, establishmentCode, delta); err != nil {
		return err
	}
	return s.RecomputeGroupRollups(ctx, establishmentCode)
}

func (s *service) SetCostReceived(ctx context.Context, establishmentCode string, total float64) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.SetCostReceived(ctx, s.db, orgID, establishmentCode, total); err != nil {
		return err
	}
	return s.RecomputeGroupRollups(ctx, establishmentCode)
}

// RecomputeGroupRollups refreshes the establishment aggregates from the live
// members and writes them onto every certificate in the group. With all
// members trashed the rollup collapses to zero.
func (s *service) RecomputeGroupRollups(ctx context.Context, establishmentCode string) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	members, err := s.repo.ListByEstablishment(ctx, s.db, orgID, establishmentCode, false)
	if err != nil {
		return err
	}

	rows := make([]balance.GroupRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, balance.GroupRow{
			EstablishmentCode: m.EstablishmentCode,
			DemandTotal:       m.DemandTotal,
			RecoveredTotal:    m.RecoveredTotal,
			OutstandingTotal:  m.OutstandingTotal,
			CostOutstanding:   m.CostOutstanding,
		})
	}
	rollup := balance.GroupTotals(rows)[establishmentCode]
	return s.repo.UpdateGroupRollups(ctx, s.db, orgID, establishmentCode, rollup)
}
