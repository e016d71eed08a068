package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
	}{
		{"nil", nil, 0},
		{"blank string", "   ", 0},
		{"garbage string", "12abc", 0},
		{"numeric string", "1234.56", 1234.56},
		{"negative string", "-250", -250},
		{"float64", 99.5, 99.5},
		{"int", 42, 42},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"negative inf", math.Inf(-1), 0},
		{"bool true", true, 1},
		{"unsupported type", struct{}{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Float(tc.in))
		})
	}
}
