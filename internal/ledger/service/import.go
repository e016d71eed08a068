package service

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wagedesk/wagedesk/internal/allocation"
	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	"github.com/wagedesk/wagedesk/internal/importer"
	"github.com/wagedesk/wagedesk/internal/ledger/domain"
)

// instrumentSynonyms maps field-office mode spellings onto the two accepted
// instrument kinds.
var instrumentSynonyms = map[string]string{
	"dd":         domain.InstrumentBankDraft,
	"draft":      domain.InstrumentBankDraft,
	"bank_draft": domain.InstrumentBankDraft,
	"cheque":     domain.InstrumentBankDraft,
	"neft":       domain.InstrumentTransfer,
	"rtgs":       domain.InstrumentTransfer,
	"online":     domain.InstrumentTransfer,
	"transfer":   domain.InstrumentTransfer,
}

func normalizeInstrumentType(v string) string {
	v = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "_")
	if v == "" {
		return domain.InstrumentBankDraft
	}
	if canonical, ok := instrumentSynonyms[v]; ok {
		return canonical
	}
	return v
}

type parsedRow struct {
	number int
	input  domain.EntryInput
}

// BulkImport books recovery rows from an uploaded sheet. Validation is
// all-or-nothing: every row must pass (fields present, amounts positive,
// certificate on file) before the first entry is written. Failures during the
// write phase, duplicates mostly, are collected per row.
func (s *service) BulkImport(ctx context.Context, rows []importer.Row) (domain.ImportReport, error) {
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

	parsed := make([]parsedRow, 0, len(rows))
	refs := make([]certdomain.Ref, 0, len(rows))
	var invalid []domain.RowError

	for _, row := range rows {
		in, err := s.parseEntryRow(row)
		if err != nil {
			invalid = append(invalid, domain.RowError{Row: row.Number, Message: err.Error()})
			continue
		}
		parsed = append(parsed, parsedRow{number: row.Number, input: in})
		refs = append(refs, certdomain.Ref{
			EstablishmentCode: in.EstablishmentCode,
			CertificateNumber: in.CertificateNumber,
		})
	}

	existing, err := s.certRepo.ExistingRefs(ctx, s.db, orgID, refs)
	if err != nil {
		return domain.ImportReport{}, err
	}
	for _, p := range parsed {
		ref := certdomain.Ref{
			EstablishmentCode: p.input.EstablishmentCode,
			CertificateNumber: p.input.CertificateNumber,
		}
		if !existing[ref] {
			invalid = append(invalid, domain.RowError{
				Row: p.number, Message: domain.ErrCertificateNotFound.Error(),
			})
		}
	}
	if len(invalid) > 0 {
		return domain.ImportReport{}, &domain.BatchValidationError{Rows: invalid}
	}

	report := domain.ImportReport{BatchID: uuid.NewString()}
	for _, p := range parsed {
		if _, err := s.create(ctx, p.input, report.BatchID); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, domain.RowError{
				Row: p.number, Message: err.Error(),
			})
			continue
		}
		report.Processed++
	}

	s.metrics.RecordImportRows(ctx, "ok", report.Processed)
	s.metrics.RecordImportRows(ctx, "failed", report.Failed)
	s.log.Info("recovery import finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("processed", report.Processed),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *service) parseEntryRow(row importer.Row) (domain.EntryInput, error) {
	in := domain.EntryInput{
		EstablishmentCode: row.Get("establishment_code"),
		CertificateNumber: row.Get("certificate_number"),
		ReferenceNo:       row.Get("reference_no"),
		InstrumentType:    normalizeInstrumentType(row.Get("instrument_type")),
		Amount:            row.Float("amount"),
		CostAmount:        row.Float("cost_amount"),
		Remark:            row.Get("remarks"),
	}

	switch {
	case in.EstablishmentCode == "" || in.CertificateNumber == "":
		return in, domain.ErrCertificateNotFound
	case in.ReferenceNo == "":
		return in, domain.ErrInvalidReference
	case in.Amount <= 0:
		return in, domain.ErrInvalidAmount
	case in.CostAmount < 0 || in.CostAmount > in.Amount:
		return in, domain.ErrInvalidAmount
	case !domain.ValidInstrumentType(in.InstrumentType):
		return in, domain.ErrInvalidInstrumentType
	}

	date, ok := importer.ParseDate(row.Get("instrument_date"))
	if !ok {
		return in, domain.ErrInvalidInstrumentDate
	}
	in.InstrumentDate = date

	if raw := row.Get("payment_date"); raw != "" {
		if paid, ok := importer.ParseDate(raw); ok {
			in.PaymentDate = &paid
		}
	}

	in.Breakdown = rowBreakdown(row)
	if in.Breakdown != nil {
		if in.Breakdown.HasNegative() {
			return in, domain.ErrNegativeAllocation
		}
		if math.Abs(in.Breakdown.Total()+in.CostAmount-in.Amount) > s.holder.Get().AllocationTolerance {
			return in, domain.ErrAllocationMismatch
		}
	}
	return in, nil
}

// Sub-account columns of a recovery sheet. Any one of them present makes the
// row a manually allocated entry; absent columns read as zero.
var breakdownColumns = []string{
	"7a_ee1", "7a_er1", "7a_ac10", "7a_ac21", "7a_ac2", "7a_ac22",
	"7q_ac1", "7q_ac10", "7q_ac21", "7q_ac2", "7q_ac22",
	"14b_ac1", "14b_ac10", "14b_ac21", "14b_ac2", "14b_ac22",
}

func rowBreakdown(row importer.Row) *allocation.Amounts {
	supplied := false
	for _, col := range breakdownColumns {
		if row.Has(col) {
			supplied = true
			break
		}
	}
	if !supplied {
		return nil
	}
	return &allocation.Amounts{
		S7A: allocation.Section7A{
			EE1:  row.Float("7a_ee1"),
			ER1:  row.Float("7a_er1"),
			Ac10: row.Float("7a_ac10"),
			Ac21: row.Float("7a_ac21"),
			Ac2:  row.Float("7a_ac2"),
			Ac22: row.Float("7a_ac22"),
		},
		S7Q: allocation.Section5{
			Ac1:  row.Float("7q_ac1"),
			Ac10: row.Float("7q_ac10"),
			Ac21: row.Float("7q_ac21"),
			Ac2:  row.Float("7q_ac2"),
			Ac22: row.Float("7q_ac22"),
		},
		S14B: allocation.Section5{
			Ac1:  row.Float("14b_ac1"),
			Ac10: row.Float("14b_ac10"),
			Ac21: row.Float("14b_ac21"),
			Ac2:  row.Float("14b_ac2"),
			Ac22: row.Float("14b_ac22"),
		},
	}
}
