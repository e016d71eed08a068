package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wagedesk/wagedesk/internal/allocation"
	"github.com/wagedesk/wagedesk/internal/balance"
	"github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/importer"
	"github.com/wagedesk/wagedesk/pkg/db"
)

// BulkUpsert loads certificate rows from an uploaded sheet. Each row is
// keyed by (establishment code, certificate number); existing certificates
// are overwritten with the uploaded figures, unknown ones inserted. Row
// failures are collected, not fatal.
func (s *service) BulkUpsert(ctx context.Context, rows []importer.Row) (domain.ImportReport, error) {
	orgID, err := s.org(ctx)
	if err != nil {
		return domain.ImportReport{}, err
	}
	if len(rows) == 0 {
		return domain.ImportReport{}, domain.ErrEmptyImport
	}
	if max := s.holder.Get().ImportMaxRows; len(rows) > max {
		return domain.ImportReport{}, domain.ErrImportTooLarge
	}

	report := domain.ImportReport{BatchID: uuid.NewString()}
	touched := map[string]struct{}{}

	for _, row := range rows {
		code := row.Get("establishment_code")
		number := row.Get("certificate_number")
		switch {
		case code == "":
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{
				Row: row.Number, Message: domain.ErrInvalidEstablishmentCode.Error(),
			})
			continue
		case number == "":
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{
				Row: row.Number, Message: domain.ErrInvalidCertificateNumber.Error(),
			})
			continue
		}

		if err := s.upsertRow(ctx, orgID, code, number, row); err != nil {
			msg := err.Error()
			if db.IsDuplicateKeyErr(err) {
				msg = "duplicate_certificate_number"
			}
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{
				Row: row.Number, Message: msg,
			})
			continue
		}
		report.Processed++
		touched[code] = struct{}{}
	}

	for code := range touched {
		if err := s.RecomputeGroupRollups(ctx, code); err != nil {
			s.log.Warn("group rollup refresh failed after import",
				zap.String("establishment_code", code),
				zap.Error(err),
			)
		}
	}

	s.metrics.RecordImportRows(ctx, "ok", report.Processed)
	s.metrics.RecordImportRows(ctx, "failed", report.Failed)
	s.log.Info("certificate import finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *service) upsertRow(ctx context.Context, orgID snowflake.ID, code, number string, row importer.Row) error {
	demand := rowAmounts(row, "demand_")
	recovered := rowAmounts(row, "recovered_")

	dTotals := balance.DemandTotals(balance.Figures{
		Amounts:   demand,
		S7ATotal:  row.Float("demand_7a"),
		S7QTotal:  row.Float("demand_7q"),
		S14BTotal: row.Float("demand_14b"),
	})
	rTotals := balance.RecoveryTotals(balance.Figures{
		Amounts:   recovered,
		S7ATotal:  row.Float("recovered_7a"),
		S7QTotal:  row.Float("recovered_7q"),
		S14BTotal: row.Float("recovered_14b"),
	})
	out := balance.Outstanding(demand, recovered)

	cert, err := s.repo.FindByNumber(ctx, s.db, orgID, code, number, true)
	if err != nil {
		return err
	}
	fresh := cert == nil
	if fresh {
		cert = &domain.Certificate{
			ID:                s.node.Generate(),
			OrgID:             orgID,
			CertificateNumber: number,
			EstablishmentCode: code,
			CreatedAt:         s.clock.Now(),
		}
	}

	if v := row.Get("establishment_name"); v != "" {
		cert.EstablishmentName = v
	}
	if v := row.Get("office"); v != "" {
		cert.Office = v
	}
	if v := row.Get("enforcement_officer"); v != "" {
		cert.EnforcementOfficer = v
	}
	if v := row.Get("remarks"); v != "" {
		cert.Remarks = v
	}
	if v := row.Get("eligibility"); v != "" {
		cert.Eligibility = strings.ToUpper(v)
	}

	cert.Demand = domain.ColumnsFrom(demand)
	cert.Demand7A, cert.Demand7Q, cert.Demand14B = dTotals.S7A, dTotals.S7Q, dTotals.S14B
	cert.DemandTotal = dTotals.Grand

	cert.Recovered = domain.ColumnsFrom(recovered)
	cert.Recovered7A, cert.Recovered7Q, cert.Recovered14B = rTotals.S7A, rTotals.S7Q, rTotals.S14B
	cert.RecoveredTotal = rTotals.Grand

	cert.Outstanding = domain.ColumnsFrom(out.Amounts)
	cert.Outstanding7A = dTotals.S7A - rTotals.S7A
	cert.Outstanding7Q = dTotals.S7Q - rTotals.S7Q
	cert.Outstanding14B = dTotals.S14B - rTotals.S14B
	cert.OutstandingTotal = dTotals.Grand - rTotals.Grand

	if row.Has("cost_levied") {
		cert.CostLevied = row.Float("cost_levied")
	}
	if row.Has("cost_received") {
		cert.CostReceived = row.Float("cost_received")
	}
	cert.CostOutstanding, cert.TotalWithCost = balance.CostRecovery(
		cert.CostLevied, cert.CostReceived, cert.OutstandingTotal)

	cert.UpdatedAt = s.clock.Now()
	if fresh {
		return s.repo.Insert(ctx, s.db, cert)
	}
	return s.repo.Save(ctx, s.db, cert)
}

func rowAmounts(row importer.Row, prefix string) allocation.Amounts {
	return allocation.Amounts{
		S7A: allocation.Section7A{
			EE1:  row.Float(prefix + "7a_ee1"),
			ER1:  row.Float(prefix + "7a_er1"),
			Ac10: row.Float(prefix + "7a_ac10"),
			Ac21: row.Float(prefix + "7a_ac21"),
			Ac2:  row.Float(prefix + "7a_ac2"),
			Ac22: row.Float(prefix + "7a_ac22"),
		},
		S7Q: allocation.Section5{
			Ac1:  row.Float(prefix + "7q_ac1"),
			Ac10: row.Float(prefix + "7q_ac10"),
			Ac21: row.Float(prefix + "7q_ac21"),
			Ac2:  row.Float(prefix + "7q_ac2"),
			Ac22: row.Float(prefix + "7q_ac22"),
		},
		S14B: allocation.Section5{
			Ac1:  row.Float(prefix + "14b_ac1"),
			Ac10: row.Float(prefix + "14b_ac10"),
			Ac21: row.Float(prefix + "14b_ac21"),
			Ac2:  row.Float(prefix + "14b_ac2"),
			Ac22: row.Float(prefix + "14b_ac22"),
		},
	}
}
