package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	tests := []struct {
		base string
		pct  string
		want string
	}{
		{"84500", "0", "84500"},
		{"84500", "10", "92950"},
		{"1999.99", "12.5", "2249.99"},
		{"100", "100", "200"},
		{"0.01", "33.333", "0.01"},
	}
	for _, tt := range tests {
		got := Apply(decimal.RequireFromString(tt.base), decimal.RequireFromString(tt.pct))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s @ %s%% = %s, want %s", tt.base, tt.pct, got, tt.want)
	}
}

func TestNewMarkupTier(t *testing.T) {
	userID := uuid.New()

	tier, err := NewMarkupTier(userID, decimal.NewFromInt(15), " Builder ", nil)
	require.NoError(t, err)
	assert.Equal(t, "Builder", tier.Label)

	require.NoError(t, tier.Change(decimal.NewFromInt(20), "VIP", nil))
	assert.True(t, tier.Percentage.Equal(decimal.NewFromInt(20)))

	_, err = NewMarkupTier(userID, decimal.NewFromInt(101), "", nil)
	assert.ErrorContains(t, err, "between 0 and 100")
	_, err = NewMarkupTier(userID, decimal.NewFromInt(-1), "", nil)
	assert.Error(t, err)
	_, err = NewMarkupTier(uuid.Nil, decimal.Zero, "", nil)
	assert.Error(t, err)
}
