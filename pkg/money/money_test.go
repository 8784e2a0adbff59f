package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxRoundsHalfUp(t *testing.T) {
	rate := decimal.RequireFromString("0.16")

	tests := []struct {
		subtotal string
		want     string
	}{
		{"30.00", "4.80"},
		{"0.03", "0.00"},    // 0.0048
		{"0.05", "0.01"},    // 0.008
		{"10.03", "1.60"},   // 1.6048
		{"15.3125", "2.45"}, // 2.45 exactly
		{"0.0625", "0.01"},  // 0.01 exactly
		{"3.28125", "0.53"}, // 0.525 rounds up
	}
	for _, tt := range tests {
		got := Tax(decimal.RequireFromString(tt.subtotal), rate)
		assert.Equal(t, tt.want, Format(got), "subtotal %s", tt.subtotal)
	}
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "30.00", Format(LineTotal(MustParse("10.00"), 3)))
	assert.Equal(t, "7.47", Format(LineTotal(MustParse("2.49"), 3)))
}

func TestParse(t *testing.T) {
	d, err := Parse("12.345")
	require.NoError(t, err)
	assert.Equal(t, "12.35", Format(d))

	_, err = Parse("twelve")
	assert.Error(t, err)
}

func TestSum(t *testing.T) {
	assert.Equal(t, "34.80", Format(Sum(MustParse("30.00"), MustParse("4.80"))))
	assert.True(t, Sum().IsZero())
}
