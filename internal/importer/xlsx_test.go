package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildSheet(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TRRN", "reference_no"},
		{"RRC No.", "certificate_number"},
		{"Estt Code", "establishment_code"},
		{"Payment Mode", "instrument_type"},
		{"Amount", "amount"},
		{"U/S", "eligibility"},
		{"  Draft Date ", "instrument_date"},
		{"Some Other Column", "some_other_column"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeHeader(tc.in))
		})
	}
}

func TestWorkbook(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"RRC No.", "Estt Code", "TRRN", "Amount"},
		{"RRC/101", "MH001", "T-99", 2500.50},
		{"", "", "", ""}, // blank rows are skipped
		{"RRC/102", "MH001", "T-100", "bad"},
	})

	rows, err := Workbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Number)
	assert.Equal(t, "RRC/101", first.Get("certificate_number"))
	assert.Equal(t, "MH001", first.Get("establishment_code"))
	assert.Equal(t, "T-99", first.Get("reference_no"))
	assert.InDelta(t, 2500.50, first.Float("amount"), 1e-9)

	// Garbage numbers coerce to zero, the row itself survives.
	assert.Equal(t, 0.0, rows[1].Float("amount"))
}

func TestWorkbookSkipsLeadingBlankRows(t *testing.T) {
	buf := buildSheet(t, [][]any{
		{"", ""},
		{"RRC No.", "Amount"},
		{"RRC/1", 100},
	})

	rows, err := Workbook(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "RRC/1", rows[0].Get("certificate_number"))
}

func TestWorkbookEmpty(t *testing.T) {
	buf := buildSheet(t, [][]any{{"RRC No.", "Amount"}})

	_, err := Workbook(buf)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"15-03-2024", "15/03/2024", "2024-03-15", "15-Mar-2024"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, 2024, got.Year())
		assert.Equal(t, 15, got.Day())
	}

	_, ok := ParseDate("not a date")
	assert.False(t, ok)
	_, ok = ParseDate("")
	assert.False(t, ok)
}
