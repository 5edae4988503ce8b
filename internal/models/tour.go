package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// PricingTier is one price band of a tour, inclusive on both ends
type PricingTier struct {
	MinPax    int     `json:"min_pax" validate:"gte=1"`
	MaxPax    int     `json:"max_pax" validate:"gtefield=MinPax"`
	PriceBase float64 `json:"price_base" validate:"gte=0"`
	PriceAlt  float64 `json:"price_alt" validate:"gte=0"`
}

// PricingTable is the tiered pricing of a tour, stored as JSONB
type PricingTable struct {
	Currency    string        `json:"currency" validate:"required,len=3"`
	AltCurrency string        `json:"alt_currency,omitempty" validate:"omitempty,len=3"`
	Tiers       []PricingTier `json:"tiers" validate:"required,min=1,dive"`
}

// Value implements driver.Valuer for JSONB storage
func (p PricingTable) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB retrieval
func (p *PricingTable) Scan(value interface{}) error {
	if value == nil {
		*p = PricingTable{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, isString := value.(string)
		if !isString {
			return errors.New("type assertion to []byte failed for PricingTable")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, p)
}

// Normalize sorts tiers by MinPax
func (p *PricingTable) Normalize() {
	sort.SliceStable(p.Tiers, func(i, j int) bool {
		return p.Tiers[i].MinPax < p.Tiers[j].MinPax
	})
}

// CheckTiers verifies the tiers are sorted, contiguous and start at one pax.
// Structural field validation is done by pkg/validator.
func (p PricingTable) CheckTiers() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("pricing table has no tiers")
	}
	expected := 1
	for i, tier := range p.Tiers {
		if tier.MinPax < 1 || tier.MaxPax < tier.MinPax {
			return fmt.Errorf("tier %d has invalid range %d-%d", i+1, tier.MinPax, tier.MaxPax)
		}
		if tier.MinPax != expected {
			return fmt.Errorf("tier %d must start at %d pax (starts at %d)", i+1, expected, tier.MinPax)
		}
		if tier.PriceBase < 0 || tier.PriceAlt < 0 {
			return fmt.Errorf("tier %d has a negative price", i+1)
		}
		expected = tier.MaxPax + 1
	}
	return nil
}

// FindTier returns the tier whose range contains pax
func (p PricingTable) FindTier(pax int) (PricingTier, bool) {
	for _, tier := range p.Tiers {
		if pax >= tier.MinPax && pax <= tier.MaxPax {
			return tier, true
		}
	}
	return PricingTier{}, false
}

// MaxPax returns the largest party size the table can price
func (p PricingTable) MaxPax() int {
	max := 0
	for _, tier := range p.Tiers {
		if tier.MaxPax > max {
			max = tier.MaxPax
		}
	}
	return max
}

// PriceQuote is the resolved price for a party size
type PriceQuote struct {
	PricePerPerson    float64 `json:"price_per_person"`
	AltPricePerPerson float64 `json:"alt_price_per_person"`
	Currency          string  `json:"currency"`
	AltCurrency       string  `json:"alt_currency,omitempty"`
	TotalPrice        float64 `json:"total_price"`
}

// RoundPrice rounds an amount to cents
func RoundPrice(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// Tour represents a bookable trekking product
type Tour struct {
	ID              string       `json:"id" db:"id"`
	Slug            string       `json:"slug" db:"slug"`
	Name            string       `json:"name" db:"name"`
	NameAlt         string       `json:"name_alt" db:"name_alt"`
	Description     string       `json:"description" db:"description"`
	DescriptionAlt  string       `json:"description_alt" db:"description_alt"`
	Highlights      StringArray  `json:"highlights" db:"highlights"`
	Pricing         PricingTable `json:"pricing" db:"pricing"`
	MaxParticipants *int         `json:"max_participants,omitempty" db:"max_participants"`
	IsActive        bool         `json:"is_active" db:"is_active"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// CreateTourRequest is the admin payload for a new tour
type CreateTourRequest struct {
	Name            string       `json:"name" binding:"required"`
	NameAlt         string       `json:"name_alt"`
	Description     string       `json:"description"`
	DescriptionAlt  string       `json:"description_alt"`
	Highlights      []string     `json:"highlights"`
	Pricing         PricingTable `json:"pricing" binding:"required"`
	MaxParticipants *int         `json:"max_participants,omitempty" binding:"omitempty,min=1"`
	IsActive        *bool        `json:"is_active,omitempty"`
}

// UpdateTourRequest is a partial admin update of a tour
type UpdateTourRequest struct {
	Name            *string       `json:"name,omitempty"`
	NameAlt         *string       `json:"name_alt,omitempty"`
	Description     *string       `json:"description,omitempty"`
	DescriptionAlt  *string       `json:"description_alt,omitempty"`
	Highlights      []string      `json:"highlights,omitempty"`
	Pricing         *PricingTable `json:"pricing,omitempty"`
	MaxParticipants *int          `json:"max_participants,omitempty" binding:"omitempty,min=1"`
	IsActive        *bool         `json:"is_active,omitempty"`
}
