package services

import (
	"github.com/trekops/booking-backend/internal/models"
	"github.com/trekops/booking-backend/pkg/validator"
)

// PricingService resolves tiered prices from a departure's pricing snapshot
type PricingService struct {
	validator *validator.Validator
}

// NewPricingService creates a new pricing service
func NewPricingService(v *validator.Validator) *PricingService {
	return &PricingService{validator: v}
}

// Resolve picks the tier containing pax and computes the totals.
// There is no fallback price: a missing tier is an error.
func (s *PricingService) Resolve(table models.PricingTable, pax int) (models.PriceQuote, error) {
	if pax < 1 {
		return models.PriceQuote{}, models.NewInvalidData("pax must be at least 1")
	}

	tier, ok := table.FindTier(pax)
	if !ok {
		return models.PriceQuote{}, models.NewInvalidDataCode(models.CodePriceTierNotFound,
			"no price tier covers %d participants", pax)
	}

	return models.PriceQuote{
		PricePerPerson:    tier.PriceBase,
		AltPricePerPerson: tier.PriceAlt,
		Currency:          table.Currency,
		AltCurrency:       table.AltCurrency,
		TotalPrice:        models.RoundPrice(tier.PriceBase * float64(pax)),
	}, nil
}

// Quote resolves a price, honouring an explicit per-person override
func (s *PricingService) Quote(table models.PricingTable, pax int, override *float64) (models.PriceQuote, error) {
	if override == nil {
		return s.Resolve(table, pax)
	}
	if pax < 1 {
		return models.PriceQuote{}, models.NewInvalidData("pax must be at least 1")
	}
	if *override < 0 {
		return models.PriceQuote{}, models.NewInvalidData("price_per_person must not be negative")
	}

	quote := models.PriceQuote{
		PricePerPerson: *override,
		Currency:       table.Currency,
		AltCurrency:    table.AltCurrency,
		TotalPrice:     models.RoundPrice(*override * float64(pax)),
	}
	if tier, ok := table.FindTier(pax); ok {
		quote.AltPricePerPerson = tier.PriceAlt
	}
	return quote, nil
}

// ValidateTable normalizes tier order and rejects malformed tables
func (s *PricingService) ValidateTable(table *models.PricingTable) error {
	table.Normalize()
	if err := s.validator.Struct(table); err != nil {
		return models.NewInvalidData("invalid pricing: %v", err)
	}
	if err := table.CheckTiers(); err != nil {
		return models.NewInvalidData("invalid pricing: %v", err)
	}
	return nil
}
