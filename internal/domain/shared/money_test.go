package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	tests := map[string]string{
		"84500":     "$84,500.00",
		"0":         "$0.00",
		"1234567.5": "$1,234,567.50",
		"19.999":    "$20.00",
		"-42.1":     "-$42.10",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatUSD(decimal.RequireFromString(in)), in)
	}
}
