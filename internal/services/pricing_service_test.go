package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/pkg/validator"
)

func TestPricingService_Resolve(t *testing.T) {
	pricing := NewPricingService(validator.New())
	table := testPricing()

	tests := []struct {
		pax      int
		perPax   float64
		altPerPx float64
		total    float64
	}{
		{1, 100, 110, 100},
		{2, 100, 110, 200},
		{3, 80, 88, 240},
		{6, 80, 88, 480},
		{7, 70, 77, 490},
		{12, 70, 77, 840},
	}
	for _, tt := range tests {
		quote, err := pricing.Resolve(table, tt.pax)
		require.NoError(t, err)
		assert.Equal(t, tt.perPax, quote.PricePerPerson, "pax %d", tt.pax)
		assert.Equal(t, tt.altPerPx, quote.AltPricePerPerson, "pax %d", tt.pax)
		assert.Equal(t, tt.total, quote.TotalPrice, "pax %d", tt.pax)
		assert.Equal(t, "EUR", quote.Currency)
		assert.Equal(t, "USD", quote.AltCurrency)
	}

	_, err := pricing.Resolve(table, 13)
	assertCode(t, err, models.KindInvalidData, models.CodePriceTierNotFound)

	_, err = pricing.Resolve(table, 0)
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)
}

func TestPricingService_ResolveRoundsTotal(t *testing.T) {
	pricing := NewPricingService(validator.New())
	table := models.PricingTable{
		Currency: "EUR",
		Tiers:    []models.PricingTier{{MinPax: 1, MaxPax: 4, PriceBase: 10.125}},
	}

	quote, err := pricing.Resolve(table, 3)
	require.NoError(t, err)
	assert.Equal(t, 30.38, quote.TotalPrice)
}

func TestPricingService_QuoteOverride(t *testing.T) {
	pricing := NewPricingService(validator.New())
	table := testPricing()

	quote, err := pricing.Quote(table, 3, floatPtr(45))
	require.NoError(t, err)
	assert.Equal(t, 45.0, quote.PricePerPerson)
	assert.Equal(t, 88.0, quote.AltPricePerPerson)
	assert.Equal(t, 135.0, quote.TotalPrice)

	// an override prices parties the table does not cover
	quote, err = pricing.Quote(table, 20, floatPtr(40))
	require.NoError(t, err)
	assert.Equal(t, 800.0, quote.TotalPrice)
	assert.Zero(t, quote.AltPricePerPerson)

	_, err = pricing.Quote(table, 2, floatPtr(-1))
	assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)

	quote, err = pricing.Quote(table, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 200.0, quote.TotalPrice)
}

func TestPricingService_ValidateTable(t *testing.T) {
	pricing := NewPricingService(validator.New())

	unsorted := models.PricingTable{
		Currency: "EUR",
		Tiers: []models.PricingTier{
			{MinPax: 3, MaxPax: 5, PriceBase: 80},
			{MinPax: 1, MaxPax: 2, PriceBase: 100},
		},
	}
	require.NoError(t, pricing.ValidateTable(&unsorted))
	assert.Equal(t, 1, unsorted.Tiers[0].MinPax)

	tests := []struct {
		name  string
		table models.PricingTable
	}{
		{"no tiers", models.PricingTable{Currency: "EUR"}},
		{"bad currency", models.PricingTable{Currency: "EURO", Tiers: []models.PricingTier{{MinPax: 1, MaxPax: 2}}}},
		{"gap", models.PricingTable{Currency: "EUR", Tiers: []models.PricingTier{{MinPax: 1, MaxPax: 2}, {MinPax: 4, MaxPax: 6}}}},
		{"overlap", models.PricingTable{Currency: "EUR", Tiers: []models.PricingTier{{MinPax: 1, MaxPax: 3}, {MinPax: 3, MaxPax: 6}}}},
		{"not from one", models.PricingTable{Currency: "EUR", Tiers: []models.PricingTier{{MinPax: 2, MaxPax: 3}}}},
		{"inverted", models.PricingTable{Currency: "EUR", Tiers: []models.PricingTier{{MinPax: 1, MaxPax: 0}}}},
		{"negative price", models.PricingTable{Currency: "EUR", Tiers: []models.PricingTier{{MinPax: 1, MaxPax: 2, PriceBase: -5}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pricing.ValidateTable(&tt.table)
			assertCode(t, err, models.KindInvalidData, models.CodeInvalidData)
		})
	}
}
