// Package scheduler runs the periodic reconciliation sweep: every certificate
// is resynced from its ledger so drift left by interrupted write sequences
// heals without operator action.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/config"
	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
	"github.com/wagedesk/wagedesk/internal/observability/metrics"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

// Params holds sweeper dependencies.
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	DB        *gorm.DB
	CertRepo  certdomain.Repository
	Ledger    ledgerdomain.Service
	Log       *zap.Logger
	Metrics   *metrics.Metrics `optional:"true"`
}

// Sweeper drives the periodic resync.
type Sweeper struct {
	cfg      config.Config
	db       *gorm.DB
	certRepo certdomain.Repository
	ledger   ledgerdomain.Service
	log      *zap.Logger
	metrics  *metrics.Metrics

	stop chan struct{}
	done chan struct{}
}

// New constructs the sweeper and hooks it into the application lifecycle.
func New(p Params) *Sweeper {
	s := &Sweeper{
		cfg:      p.Config,
		db:       p.DB,
		certRepo: p.CertRepo,
		ledger:   p.Ledger,
		log:      p.Log.Named("scheduler.sweep"),
		metrics:  p.Metrics,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if !s.cfg.SweepEnabled {
				s.log.Info("reconciliation sweep disabled")
				close(s.done)
				return nil
			}
			go s.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
	return s
}

func (s *Sweeper) run() {
	defer close(s.done)
	s.log.Info("reconciliation sweep started",
		zap.Duration("interval", s.cfg.SweepInterval),
	)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepOnce(context.Background())
		}
	}
}

// SweepOnce resyncs every live certificate across all tenants. Per-certificate
// failures are logged and skipped so one bad row never stalls the sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	orgs, err := s.orgIDs(ctx)
	if err != nil {
		s.log.Error("sweep aborted, tenant enumeration failed", zap.Error(err))
		return
	}

	var resynced, failed int
	for _, orgID := range orgs {
		orgCtx := orgcontext.WithOrgID(ctx, orgID)
		certs, err := s.certRepo.List(orgCtx, s.db, orgID, false)
		if err != nil {
			s.log.Error("sweep listing failed",
				zap.Int64("org_id", int64(orgID)),
				zap.Error(err),
			)
			continue
		}
		for _, cert := range certs {
			if err := s.ledger.Resync(orgCtx, cert.EstablishmentCode, cert.CertificateNumber); err != nil {
				failed++
				s.log.Warn("certificate resync failed",
					zap.String("certificate_number", cert.CertificateNumber),
					zap.Error(err),
				)
				continue
			}
			resynced++
		}
	}

	s.metrics.RecordSweepRun(ctx)
	s.log.Info("reconciliation sweep finished",
		zap.Int("resynced", resynced),
		zap.Int("failed", failed),
	)
}

func (s *Sweeper) orgIDs(ctx context.Context) ([]snowflake.ID, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&certdomain.Certificate{}).
		Distinct("org_id").
		Pluck("org_id", &ids).Error
	if err != nil {
		return nil, err
	}
	orgs := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		orgs = append(orgs, snowflake.ID(id))
	}
	return orgs, nil
}
