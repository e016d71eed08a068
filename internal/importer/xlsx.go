// Package importer extracts flat key→value rows from uploaded workbooks.
// Column-name variants from the field offices are normalized here so the
// services downstream see one canonical header set.
package importer

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wagedesk/wagedesk/internal/numeric"
)

var (
	ErrEmptyWorkbook = errors.New("empty_workbook")
	ErrNoSheet       = errors.New("no_sheet")
)

// Row is one data row of the uploaded sheet, keyed by normalized header.
type Row struct {
	Number int // 1-based row number in the sheet, headers included
	Values map[string]string
}

// Get returns the trimmed cell under the canonical header.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r.Values[key])
}

// Float returns the cell coerced to a number; blank or garbage cells are 0.
func (r Row) Float(key string) float64 {
	return numeric.Float(r.Values[key])
}

// Has reports whether the row carries a non-blank cell under the header.
func (r Row) Has(key string) bool { return r.Get(key) != "" }

// headerSynonyms maps normalized field-office spellings to canonical keys.
var headerSynonyms = map[string]string{
	"trrn":               "reference_no",
	"trrn_no":            "reference_no",
	"draft_no":           "reference_no",
	"reference":          "reference_no",
	"rrc_no":             "certificate_number",
	"rrc_number":         "certificate_number",
	"certificate_no":     "certificate_number",
	"estt_code":          "establishment_code",
	"est_code":           "establishment_code",
	"establishment_id":   "establishment_code",
	"estt_name":          "establishment_name",
	"est_name":           "establishment_name",
	"mode":               "instrument_type",
	"payment_mode":       "instrument_type",
	"draft_date":         "instrument_date",
	"date_of_instrument": "instrument_date",
	"amount_recovered":   "amount",
	"recovery_amount":    "amount",
	"cost":               "cost_amount",
	"recovery_cost":      "cost_amount",
	"remark":             "remarks",
	"us":                 "eligibility",
	"u_s":                "eligibility",
	"eligible_sections":  "eligibility",
}

// NormalizeHeader lowercases, strips punctuation and collapses separators so
// "RRC No." and "rrc_no" land on the same canonical key.
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(".", "", "(", "", ")", "", "/", "_", "-", "_", " ", "_").Replace(h)
	for strings.Contains(h, "__") {
		h = strings.ReplaceAll(h, "__", "_")
	}
	h = strings.Trim(h, "_")
	if canonical, ok := headerSynonyms[h]; ok {
		return canonical
	}
	return h
}

// Workbook reads the first sheet of an xlsx stream into rows. The first
// non-empty row is the header row; rows with no non-blank cells are skipped.
func Workbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}

	raw, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}

	var headers []string
	headerAt := -1
	for i, cells := range raw {
		if rowEmpty(cells) {
			continue
		}
		headers = make([]string, len(cells))
		for j, c := range cells {
			headers[j] = NormalizeHeader(c)
		}
		headerAt = i
		break
	}
	if headerAt == -1 {
		return nil, ErrEmptyWorkbook
	}

	var rows []Row
	for i := headerAt + 1; i < len(raw); i++ {
		cells := raw[i]
		if rowEmpty(cells) {
			continue
		}
		values := make(map[string]string, len(headers))
		for j, h := range headers {
			if h == "" {
				continue
			}
			if j < len(cells) {
				values[h] = strings.TrimSpace(cells[j])
			}
		}
		rows = append(rows, Row{Number: i + 1, Values: values})
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}

func rowEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

var dateLayouts = []string{
	"02-01-2006",
	"02/01/2006",
	"2006-01-02",
	"02-Jan-2006",
	"2-Jan-06",
	"01-02-06", // excelize default serial rendering
}

// ParseDate accepts the date spellings the offices actually upload.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
