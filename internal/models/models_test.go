package models

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2026-07-14 ")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-14", d.String())

	_, err = ParseDate("14/07/2026")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Date Date `json:"date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-03-01"}`), &payload))
	assert.Equal(t, "2026-03-01", payload.Date.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2026-03-01"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"tomorrow"}`), &payload))
}

func TestDate_Scan(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"time", time.Date(2026, 5, 2, 23, 30, 0, 0, madrid), "2026-05-02"},
		{"bytes", []byte("2026-05-03"), "2026-05-03"},
		{"string", "2026-05-04", "2026-05-04"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.value))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestMonthRange(t *testing.T) {
	d, err := ParseDate("2028-02-17")
	require.NoError(t, err)

	first, last := MonthRange(d)
	assert.Equal(t, "2028-02-01", first.String())
	assert.Equal(t, "2028-02-29", last.String())
}

func testPricing() PricingTable {
	return PricingTable{
		Currency: "EUR",
		Tiers: []PricingTier{
			{MinPax: 1, MaxPax: 2, PriceBase: 100, PriceAlt: 110},
			{MinPax: 3, MaxPax: 6, PriceBase: 80, PriceAlt: 88},
		},
	}
}

func TestPricingTable_CheckTiers(t *testing.T) {
	tests := []struct {
		name    string
		tiers   []PricingTier
		wantErr bool
	}{
		{"contiguous", testPricing().Tiers, false},
		{"empty", nil, true},
		{"starts above one", []PricingTier{{MinPax: 2, MaxPax: 4}}, true},
		{"gap", []PricingTier{{MinPax: 1, MaxPax: 2}, {MinPax: 4, MaxPax: 6}}, true},
		{"overlap", []PricingTier{{MinPax: 1, MaxPax: 3}, {MinPax: 3, MaxPax: 6}}, true},
		{"inverted", []PricingTier{{MinPax: 1, MaxPax: 0}}, true},
		{"negative price", []PricingTier{{MinPax: 1, MaxPax: 2, PriceBase: -1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PricingTable{Currency: "EUR", Tiers: tt.tiers}.CheckTiers()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPricingTable_FindTier(t *testing.T) {
	p := testPricing()

	tier, ok := p.FindTier(2)
	require.True(t, ok)
	assert.Equal(t, 100.0, tier.PriceBase)

	tier, ok = p.FindTier(3)
	require.True(t, ok)
	assert.Equal(t, 80.0, tier.PriceBase)

	_, ok = p.FindTier(7)
	assert.False(t, ok)
	assert.Equal(t, 6, p.MaxPax())
}

func TestPricingTable_NormalizeAndScan(t *testing.T) {
	p := testPricing()
	p.Tiers[0], p.Tiers[1] = p.Tiers[1], p.Tiers[0]
	p.Normalize()
	assert.Equal(t, 1, p.Tiers[0].MinPax)

	raw, err := p.Value()
	require.NoError(t, err)

	var scanned PricingTable
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, p, scanned)
	assert.Error(t, scanned.Scan(3.5))
}

func TestRoundPrice(t *testing.T) {
	assert.Equal(t, 33.33, RoundPrice(100.0/3))
	assert.Equal(t, 0.3, RoundPrice(0.1+0.2))
}

func TestCapacityStatus(t *testing.T) {
	assert.Equal(t, DepartureStatusFull, CapacityStatus(DepartureStatusActive, 8, 8))
	assert.Equal(t, DepartureStatusActive, CapacityStatus(DepartureStatusFull, 7, 8))
	assert.Equal(t, DepartureStatusCompleted, CapacityStatus(DepartureStatusCompleted, 0, 8))
	assert.Equal(t, DepartureStatusCancelled, CapacityStatus(DepartureStatusCancelled, 8, 8))
}

func TestBookingStatus(t *testing.T) {
	assert.True(t, BookingStatusCancelledByAdmin.IsCancelled())
	assert.False(t, BookingStatusPaid.IsCancelled())
	assert.True(t, BookingStatusPaid.Valid())
	assert.False(t, BookingStatus("refunded").Valid())
}

func TestGenerateBookingReference(t *testing.T) {
	ref := GenerateBookingReference(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	assert.Regexp(t, regexp.MustCompile(`^TRK-260314-[0-9A-F]{6}$`), ref)
}

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewInvalidData("bad"), http.StatusBadRequest},
		{NewInvalidDataCode(CodeTourMismatch, "bad"), http.StatusBadRequest},
		{NewUnauthorized("no"), http.StatusUnauthorized},
		{NewNotFound("booking", "b1"), http.StatusNotFound},
		{NewCapacityExceeded("full"), http.StatusUnprocessableEntity},
		{NewRateLimited("slow down", nil), http.StatusForbidden},
		{NewInternal("boom", errors.New("db")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAppError_Chain(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal("failed to load booking", cause)
	wrapped := errors.Join(errors.New("context"), err)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInternal, appErr.Code)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load booking: connection reset", err.Error())
	assert.Equal(t, "booking b1 not found", NewNotFound("booking", "b1").Error())

	assert.True(t, IsKind(wrapped, KindInternal))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, IsKind(cause, KindInternal))
}
