package zone

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestZoneCovers(t *testing.T) {
	z := &Zone{
		ID:            "z1",
		Name:          "Centro",
		Neighborhoods: []string{"Centro", "Vila Nova", " Jardim América "},
		Fee:           decimal.NewFromFloat(8.50),
	}

	tests := []struct {
		name         string
		neighborhood string
		want         bool
	}{
		{"exact match", "Centro", true},
		{"case-insensitive match", "vila nova", true},
		{"upper-case match", "CENTRO", true},
		{"trims stored whitespace", "Jardim América", true},
		{"trims input whitespace", "  Centro  ", true},
		{"no fuzzy matching", "Centr", false},
		{"no substring matching", "Vila", false},
		{"unknown neighborhood", "Bela Vista", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, z.Covers(tt.neighborhood))
		})
	}
}

func TestZoneFeeFor(t *testing.T) {
	freeMin := decimal.NewFromInt(150)
	z := &Zone{
		Fee:             decimal.NewFromFloat(25.90),
		FreeDeliveryMin: &freeMin,
	}

	t.Run("subtotal above threshold is free", func(t *testing.T) {
		fee := z.FeeFor(decimal.NewFromInt(200))
		assert.True(t, fee.IsZero(), "expected zero fee, got %s", fee)
	})

	t.Run("subtotal exactly at threshold is free", func(t *testing.T) {
		fee := z.FeeFor(decimal.NewFromInt(150))
		assert.True(t, fee.IsZero(), "expected zero fee, got %s", fee)
	})

	t.Run("subtotal below threshold pays flat fee", func(t *testing.T) {
		fee := z.FeeFor(decimal.NewFromInt(100))
		assert.True(t, decimal.NewFromFloat(25.90).Equal(fee), "expected 25.90, got %s", fee)
	})

	t.Run("no threshold always pays flat fee", func(t *testing.T) {
		flat := &Zone{Fee: decimal.NewFromFloat(5)}
		fee := flat.FeeFor(decimal.NewFromInt(10000))
		assert.True(t, decimal.NewFromInt(5).Equal(fee))
	})
}
