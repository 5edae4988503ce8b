package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the booking lifecycle state
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "pending"
	BookingStatusConfirmed        BookingStatus = "confirmed"
	BookingStatusPaid             BookingStatus = "paid"
	BookingStatusCancelled        BookingStatus = "cancelled"
	BookingStatusCancelledByAdmin BookingStatus = "cancelled_by_admin"
)

// IsCancelled reports whether the status is one of the cancellation variants
func (s BookingStatus) IsCancelled() bool {
	return s == BookingStatusCancelled || s == BookingStatusCancelledByAdmin
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusPaid,
		BookingStatusCancelled, BookingStatusCancelledByAdmin:
		return true
	}
	return false
}

// BookingSource records which surface created a booking
type BookingSource string

const (
	BookingSourcePublic BookingSource = "public"
	BookingSourceAdmin  BookingSource = "admin"
)

// CustomerInfo holds the booking contact details, stored as JSONB
type CustomerInfo struct {
	Name       string `json:"name" validate:"required,min=2,max=120"`
	DocumentID string `json:"document_id" validate:"required,min=4,max=40"`
	Phone      string `json:"phone" validate:"required,e164"`
	Email      string `json:"email" validate:"required,email"`
}

// Value implements driver.Valuer for JSONB storage
func (c CustomerInfo) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB retrieval
func (c *CustomerInfo) Scan(value interface{}) error {
	b, err := jsonBytes(value, "CustomerInfo")
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, c)
}

// TransferInfo links a booking to the one it was transferred from
type TransferInfo struct {
	FromBookingID   string    `json:"from_booking_id"`
	FromReference   string    `json:"from_reference"`
	FromTourID      string    `json:"from_tour_id"`
	FromDepartureID string    `json:"from_departure_id"`
	Reason          string    `json:"reason,omitempty"`
	TransferredAt   time.Time `json:"transferred_at"`
}

// Value implements driver.Valuer for nullable JSONB storage
func (t *TransferInfo) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for JSONB retrieval
func (t *TransferInfo) Scan(value interface{}) error {
	b, err := jsonBytes(value, "TransferInfo")
	if err != nil || b == nil {
		return err
	}
	return json.Unmarshal(b, t)
}

func jsonBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return nil, errors.New("type assertion to []byte failed for " + typeName)
}

// StatusHistoryEntry is one append-only record of a booking state change
type StatusHistoryEntry struct {
	ID        int64         `json:"-" db:"id"`
	BookingID string        `json:"-" db:"booking_id"`
	Status    BookingStatus `json:"status" db:"status"`
	Note      string        `json:"note,omitempty" db:"note"`
	Actor     string        `json:"actor" db:"actor"`
	CreatedAt time.Time     `json:"timestamp" db:"created_at"`
}

// Booking is a customer reservation of pax on a departure
type Booking struct {
	ID                string               `json:"id" db:"id"`
	Reference         string               `json:"reference" db:"reference"`
	DepartureID       string               `json:"departure_id" db:"departure_id"`
	TourID            string               `json:"tour_id" db:"tour_id"`
	TourName          string               `json:"tour_name" db:"tour_name"`
	DepartureDate     Date                 `json:"departure_date" db:"departure_date"`
	Customer          CustomerInfo         `json:"customer" db:"customer"`
	Pax               int                  `json:"pax" db:"pax"`
	PricePerPerson    float64              `json:"price_per_person" db:"price_per_person"`
	AltPricePerPerson float64              `json:"alt_price_per_person" db:"alt_price_per_person"`
	Currency          string               `json:"currency" db:"currency"`
	AltCurrency       string               `json:"alt_currency" db:"alt_currency"`
	TotalPrice        float64              `json:"total_price" db:"total_price"`
	Status            BookingStatus        `json:"status" db:"status"`
	IsOriginator      bool                 `json:"is_originator" db:"is_originator"`
	ClientAddress     string               `json:"client_address,omitempty" db:"client_address"`
	Source            BookingSource        `json:"source" db:"source"`
	TransferInfo      *TransferInfo        `json:"transfer_info,omitempty" db:"transfer_info"`
	Notes             string               `json:"notes,omitempty" db:"notes"`
	StatusHistory     []StatusHistoryEntry `json:"status_history,omitempty" db:"-"`
	CreatedAt         time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at" db:"updated_at"`
}

// ApplyQuote copies a resolved price onto the booking
func (b *Booking) ApplyQuote(q PriceQuote) {
	b.PricePerPerson = q.PricePerPerson
	b.AltPricePerPerson = q.AltPricePerPerson
	b.Currency = q.Currency
	b.AltCurrency = q.AltCurrency
	b.TotalPrice = q.TotalPrice
}

// GenerateBookingReference generates a booking reference
// Format: TRK-250314-7F3A9C
func GenerateBookingReference(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TRK-%s-%s", at.Format("060102"), suffix)
}

// BookingFilter narrows admin booking listings
type BookingFilter struct {
	TourID      string
	DepartureID string
	Status      []BookingStatus
	From        *Date
	To          *Date
	Search      string // reference, customer name or email
	Limit       int
	Offset      int
}

// BookingListResponse is a paginated booking listing
type BookingListResponse struct {
	Bookings []Booking `json:"bookings"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// CreateBookingRequest is the public booking payload
type CreateBookingRequest struct {
	TourID     string              `json:"tour_id" binding:"required"`
	Date       string              `json:"date" binding:"required"`
	Pax        int                 `json:"pax" binding:"required,min=1"`
	Customer   CustomerInfo        `json:"customer" binding:"required"`
	Visibility DepartureVisibility `json:"visibility" binding:"omitempty,oneof=private public"`
	CreateNew  bool                `json:"create_new"`
}

// JoinDepartureRequest joins an existing public departure
type JoinDepartureRequest struct {
	DepartureID string       `json:"departure_id" binding:"required"`
	Pax         int          `json:"pax" binding:"required,min=1"`
	Customer    CustomerInfo `json:"customer" binding:"required"`
}

// AdminCreateBookingRequest is the admin booking payload
type AdminCreateBookingRequest struct {
	TourID         string              `json:"tour_id"`
	Date           string              `json:"date"`
	DepartureID    string              `json:"departure_id"`
	Pax            int                 `json:"pax" binding:"required,min=1"`
	Customer       CustomerInfo        `json:"customer" binding:"required"`
	Visibility     DepartureVisibility `json:"visibility" binding:"omitempty,oneof=private public"`
	CreateNew      bool                `json:"create_new"`
	Status         BookingStatus       `json:"status" binding:"omitempty,oneof=pending confirmed paid"`
	PricePerPerson *float64            `json:"price_per_person,omitempty" binding:"omitempty,min=0"`
	Notes          string              `json:"notes"`
}

// UpdateBookingStatusRequest changes a booking's status
type UpdateBookingStatusRequest struct {
	Status BookingStatus `json:"status" binding:"required,oneof=pending confirmed paid cancelled cancelled_by_admin"`
	Reason string        `json:"reason"`
}

// ReinstateBookingRequest brings a cancelled booking back
type ReinstateBookingRequest struct {
	Status BookingStatus `json:"status" binding:"omitempty,oneof=pending confirmed"`
	Reason string        `json:"reason"`
}

// UpdateBookingDetailsRequest is a partial booking edit
type UpdateBookingDetailsRequest struct {
	Customer       *CustomerInfo `json:"customer,omitempty"`
	Pax            *int          `json:"pax,omitempty" binding:"omitempty,min=1"`
	TourID         *string       `json:"tour_id,omitempty"`
	Date           *string       `json:"date,omitempty"`
	PricePerPerson *float64      `json:"price_per_person,omitempty" binding:"omitempty,min=0"`
	Notes          *string       `json:"notes,omitempty"`
	Reason         string        `json:"reason"`
}

// TransferBookingRequest moves a booking to another departure of the same tour
type TransferBookingRequest struct {
	DepartureID string `json:"departure_id"`
	Date        string `json:"date"`
	Reason      string `json:"reason"`
}

// TransferToTourRequest moves a booking to a different tour
type TransferToTourRequest struct {
	TourID     string              `json:"tour_id" binding:"required"`
	Date       string              `json:"date" binding:"required"`
	Visibility DepartureVisibility `json:"visibility" binding:"omitempty,oneof=private public"`
	Reason     string              `json:"reason"`
}

// TransferToTourResult holds both sides of a cross-tour transfer
type TransferToTourResult struct {
	Original *Booking `json:"original"`
	Created  *Booking `json:"created"`
}

// ConvertVisibilityRequest changes the visibility of a booking's departure
type ConvertVisibilityRequest struct {
	Visibility DepartureVisibility `json:"visibility" binding:"required,oneof=private public"`
	Reason     string              `json:"reason"`
}

// BookingCheckResponse is the public view of a booking
type BookingCheckResponse struct {
	Reference     string        `json:"reference"`
	TourName      string        `json:"tour_name"`
	DepartureDate Date          `json:"departure_date"`
	Pax           int           `json:"pax"`
	Status        BookingStatus `json:"status"`
	TotalPrice    float64       `json:"total_price"`
	Currency      string        `json:"currency"`
	CustomerName  string        `json:"customer_name"`
}
