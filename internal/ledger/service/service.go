package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wagedesk/wagedesk/internal/allocation"
	"github.com/wagedesk/wagedesk/internal/balance"
	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/clock"
	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/ledger/domain"
	"github.com/wagedesk/wagedesk/internal/observability/metrics"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

// Params holds service dependencies.
type Params struct {
	fx.In

	DB       *gorm.DB
	Repo     domain.Repository
	Certs    certdomain.Service
	CertRepo certdomain.Repository
	Log      *zap.Logger
	Clock    clock.Clock
	Node     *snowflake.Node
	Holder   *config.RecoveryConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	repo     domain.Repository
	certs    certdomain.Service
	certRepo certdomain.Repository
	log      *zap.Logger
	clock    clock.Clock
	node     *snowflake.Node
	holder   *config.RecoveryConfigHolder
	metrics  *metrics.Metrics
	locks    *keyedMutex
}

// New constructs the ledger service.
func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		repo:     p.Repo,
		certs:    p.Certs,
		certRepo: p.CertRepo,
		log:      p.Log.Named("ledger.service"),
		clock:    p.Clock,
		node:     p.Node,
		holder:   p.Holder,
		metrics:  p.Metrics,
		locks:    newKeyedMutex(),
	}
}

func (s *service) org(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, orgcontext.ErrMissingOrg
	}
	return orgID, nil
}

func lockKey(orgID snowflake.ID, establishmentCode string) string {
	return fmt.Sprintf("%d/%s", orgID, establishmentCode)
}

func validateInput(in domain.EntryInput) error {
	switch {
	case strings.TrimSpace(in.EstablishmentCode) == "":
		return domain.ErrCertificateNotFound
	case strings.TrimSpace(in.CertificateNumber) == "":
		return domain.ErrCertificateNotFound
	case strings.TrimSpace(in.ReferenceNo) == "":
		return domain.ErrInvalidReference
	case in.Amount <= 0:
		return domain.ErrInvalidAmount
	case in.CostAmount < 0, in.CostAmount > in.Amount:
		return domain.ErrInvalidAmount
	case !domain.ValidInstrumentType(in.InstrumentType):
		return domain.ErrInvalidInstrumentType
	case in.InstrumentDate.IsZero():
		return domain.ErrInvalidInstrumentDate
	}
	return nil
}

func (s *service) Create(ctx context.Context, in domain.EntryInput) (*domain.Entry, error) {
	entry, err := s.create(ctx, in, "")
	if err != nil {
		return nil, err
	}
	s.metrics.RecordRecoveryEntry(ctx, "create")
	return entry, nil
}

func (s *service) create(ctx context.Context, in domain.EntryInput, batchID string) (*domain.Entry, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(lockKey(orgID, in.EstablishmentCode))
	defer unlock()

	dup, err := s.repo.FindDuplicate(ctx, s.db, orgID, in.ReferenceNo, in.InstrumentDate, 0)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, domain.ErrDuplicateEntry
	}

	cert, err := s.loadCertificate(ctx, in.EstablishmentCode, in.CertificateNumber)
	if err != nil {
		return nil, err
	}

	breakdown, err := s.breakdown(in.Amount, in.CostAmount, in.Breakdown, cert.Outstanding.Amounts(), cert.Eligibility)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entry := &domain.Entry{
		ID:                s.node.Generate(),
		OrgID:             orgID,
		CertificateID:     cert.ID,
		EstablishmentCode: cert.EstablishmentCode,
		CertificateNumber: cert.CertificateNumber,
		ReferenceNo:       in.ReferenceNo,
		InstrumentType:    in.InstrumentType,
		InstrumentDate:    in.InstrumentDate,
		PaymentDate:       in.PaymentDate,
		Amount:            in.Amount,
		CostAmount:        in.CostAmount,
		BatchID:           batchID,
		Remark:            in.Remark,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	entry.SetBreakdown(in.Amount-in.CostAmount, breakdown)

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		return nil, err
	}

	// Remark propagation is best effort; a failed append never rolls back a
	// booked payment.
	if in.Remark != "" {
		if err := s.certs.AppendRemark(ctx, cert.EstablishmentCode, in.Remark, in.ReferenceNo); err != nil {
			s.log.Warn("remark append failed",
				zap.String("establishment_code", cert.EstablishmentCode),
				zap.Error(err),
			)
		}
	}

	if err := s.reconcile(ctx, orgID, cert.ID, cert.EstablishmentCode); err != nil {
		return nil, err
	}
	if in.CostAmount != 0 {
		if err := s.certs.ApplyCostReceived(ctx, cert.EstablishmentCode, in.CostAmount); err != nil {
			return nil, err
		}
	}
	return entry, nil
}

// Update rebases the entry against the remaining capacity of its certificate,
// computed from every other entry in the ledger. Unlike the create path the
// capacity is clamped at zero per sub-account.
func (s *service) Update(ctx context.Context, id snowflake.ID, in domain.EntryInput) (*domain.Entry, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrEntryNotFound
	}

	// Entries stay attached to their certificate.
	in.EstablishmentCode = entry.EstablishmentCode
	in.CertificateNumber = entry.CertificateNumber
	if err := validateInput(in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(lockKey(orgID, entry.EstablishmentCode))
	defer unlock()

	dup, err := s.repo.FindDuplicate(ctx, s.db, orgID, in.ReferenceNo, in.InstrumentDate, entry.ID)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, domain.ErrDuplicateEntry
	}

	cert, err := s.loadCertificate(ctx, entry.EstablishmentCode, entry.CertificateNumber)
	if err != nil {
		return nil, err
	}

	others, err := s.recoveredExcluding(ctx, orgID, cert.ID, entry.ID)
	if err != nil {
		return nil, err
	}
	capacity := balance.RemainingCapacity(cert.Demand.Amounts(), others)

	breakdown, err := s.breakdown(in.Amount, in.CostAmount, in.Breakdown, capacity, cert.Eligibility)
	if err != nil {
		return nil, err
	}

	entry.ReferenceNo = in.ReferenceNo
	entry.InstrumentType = in.InstrumentType
	entry.InstrumentDate = in.InstrumentDate
	entry.PaymentDate = in.PaymentDate
	entry.Amount = in.Amount
	entry.CostAmount = in.CostAmount
	entry.Remark = in.Remark
	entry.UpdatedAt = s.clock.Now()
	entry.SetBreakdown(in.Amount-in.CostAmount, breakdown)

	if err := s.repo.Save(ctx, s.db, entry); err != nil {
		return nil, err
	}
	if err := s.reconcile(ctx, orgID, cert.ID, cert.EstablishmentCode); err != nil {
		return nil, err
	}
	if err := s.resumCost(ctx, orgID, cert.EstablishmentCode); err != nil {
		return nil, err
	}
	s.metrics.RecordRecoveryEntry(ctx, "update")
	return entry, nil
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}
	entry, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if entry == nil {
		return domain.ErrEntryNotFound
	}

	unlock := s.locks.Lock(lockKey(orgID, entry.EstablishmentCode))
	defer unlock()

	if err := s.repo.Delete(ctx, s.db, orgID, id); err != nil {
		return err
	}
	if err := s.reconcile(ctx, orgID, entry.CertificateID, entry.EstablishmentCode); err != nil {
		return err
	}
	if err := s.resumCost(ctx, orgID, entry.EstablishmentCode); err != nil {
		return err
	}
	s.metrics.RecordRecoveryEntry(ctx, "delete")
	return nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Entry, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (s *service) ListByCertificate(ctx context.Context, establishmentCode, certificateNumber string) ([]domain.Entry, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return nil, err
	}
	cert, err := s.loadCertificate(ctx, establishmentCode, certificateNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCertificate(ctx, s.db, orgID, cert.ID)
}

func (s *service) Preview(ctx context.Context, establishmentCode, certificateNumber string, amount float64) (allocation.Breakdown, error) {
	if amount <= 0 {
		return allocation.Breakdown{}, domain.ErrInvalidAmount
	}
	cert, err := s.loadCertificate(ctx, establishmentCode, certificateNumber)
	if err != nil {
		return allocation.Breakdown{}, err
	}
	return allocation.Allocate(amount, cert.Outstanding.Amounts(), cert.Eligibility), nil
}

func (s *service) Resync(ctx context.Context, establishmentCode, certificateNumber string) error {
	orgID, err := s.org(ctx)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(lockKey(orgID, establishmentCode))
	defer unlock()

	cert, err := s.loadCertificate(ctx, establishmentCode, certificateNumber)
	if err != nil {
		return err
	}
	if err := s.reconcile(ctx, orgID, cert.ID, cert.EstablishmentCode); err != nil {
		return err
	}
	return s.resumCost(ctx, orgID, cert.EstablishmentCode)
}

func (s *service) loadCertificate(ctx context.Context, establishmentCode, certificateNumber string) (*certdomain.Certificate, error) {
	cert, err := s.certs.GetByNumber(ctx, establishmentCode, certificateNumber)
	if errors.Is(err, certdomain.ErrNotFound) {
		return nil, domain.ErrCertificateNotFound
	}
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// breakdown resolves the per-sub-account split of a payment. The cost share
// of the amount is never allocated to a fund: the engine runs against the
// net amount, and a manual split must satisfy total + cost == amount within
// the configured tolerance, with no negative buckets.
func (s *service) breakdown(amount, cost float64, manual *allocation.Amounts, position allocation.Amounts, eligibility string) (allocation.Breakdown, error) {
	if manual == nil {
		return allocation.Allocate(amount-cost, position, eligibility), nil
	}
	if manual.HasNegative() {
		return allocation.Breakdown{}, domain.ErrNegativeAllocation
	}
	if math.Abs(manual.Total()+cost-amount) > s.holder.Get().AllocationTolerance {
		return allocation.Breakdown{}, domain.ErrAllocationMismatch
	}
	return allocation.Breakdown{
		Amounts:  *manual,
		Total7A:  manual.S7A.Sum(),
		Total7Q:  manual.S7Q.Sum(),
		Total14B: manual.S14B.Sum(),
		Total:    manual.Total(),
	}, nil
}

// reconcile resums the certificate's recovered amounts from its full ledger
// and refreshes the establishment rollups. Resumming over every entry keeps
// the stored position self-healing: one pass corrects any drift left by a
// partially applied earlier write.
func (s *service) reconcile(ctx context.Context, orgID, certificateID snowflake.ID, establishmentCode string) error {
	entries, err := s.repo.ListByCertificate(ctx, s.db, orgID, certificateID)
	if err != nil {
		return err
	}
	var recovered allocation.Amounts
	for _, e := range entries {
		recovered = allocation.Add(recovered, e.Allocation.Amounts())
	}
	if err := s.certs.SetRecovered(ctx, certificateID, recovered); err != nil {
		return err
	}
	return s.certs.RecomputeGroupRollups(ctx, establishmentCode)
}

func (s *service) recoveredExcluding(ctx context.Context, orgID, certificateID, excludeID snowflake.ID) (allocation.Amounts, error) {
	entries, err := s.repo.ListByCertificate(ctx, s.db, orgID, certificateID)
	if err != nil {
		return allocation.Amounts{}, err
	}
	var recovered allocation.Amounts
	for _, e := range entries {
		if e.ID == excludeID {
			continue
		}
		recovered = allocation.Add(recovered, e.Allocation.Amounts())
	}
	return recovered, nil
}

func (s *service) resumCost(ctx context.Context, orgID snowflake.ID, establishmentCode string) error {
	entries, err := s.repo.ListByEstablishment(ctx, s.db, orgID, establishmentCode)
	if err != nil {
		return err
	}
	var total float64
	for _, e := range entries {
		total += e.CostAmount
	}
	return s.certs.SetCostReceived(ctx, establishmentCode, total)
}
