package models

import "time"

// DepartureVisibility controls whether other customers may join a departure
type DepartureVisibility string

const (
	VisibilityPrivate DepartureVisibility = "private"
	VisibilityPublic  DepartureVisibility = "public"
)

// Valid reports whether v is a known visibility
func (v DepartureVisibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// DepartureStatus represents the departure lifecycle state
type DepartureStatus string

const (
	DepartureStatusActive    DepartureStatus = "active"
	DepartureStatusFull      DepartureStatus = "full"
	DepartureStatusCompleted DepartureStatus = "completed"
	DepartureStatusCancelled DepartureStatus = "cancelled"
)

// IsOpen reports whether the departure can accept new pax
func (s DepartureStatus) IsOpen() bool {
	return s == DepartureStatusActive || s == DepartureStatusFull
}

// Departure is a dated instance of a tour with finite capacity
type Departure struct {
	ID                string              `json:"id" db:"id"`
	TourID            string              `json:"tour_id" db:"tour_id"`
	TourName          string              `json:"tour_name" db:"tour_name"`
	Date              Date                `json:"date" db:"departure_date"`
	Visibility        DepartureVisibility `json:"visibility" db:"visibility"`
	Status            DepartureStatus     `json:"status" db:"status"`
	MaxCapacity       int                 `json:"max_capacity" db:"max_capacity"`
	ReservedSlots     int                 `json:"reserved_slots" db:"reserved_slots"`
	PricingSnapshot   PricingTable        `json:"pricing_snapshot" db:"pricing_snapshot"`
	TotalBookingCount int                 `json:"total_booking_count" db:"total_booking_count"`
	CreatedAt         time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" db:"updated_at"`
}

// AvailableSlots returns the remaining capacity
func (d *Departure) AvailableSlots() int {
	return d.MaxCapacity - d.ReservedSlots
}

// CapacityStatus returns active or full for an open departure given its counters
func CapacityStatus(current DepartureStatus, reserved, max int) DepartureStatus {
	if !current.IsOpen() {
		return current
	}
	if reserved >= max {
		return DepartureStatusFull
	}
	return DepartureStatusActive
}

// DepartureWithBookings is the admin detail view of a departure
type DepartureWithBookings struct {
	Departure
	Bookings []Booking `json:"bookings"`
}

// DepartureFilter narrows departure listings
type DepartureFilter struct {
	TourID     string
	From       *Date
	To         *Date
	Status     []DepartureStatus
	Visibility DepartureVisibility
	Limit      int
	Offset     int
}

// CreateDepartureRequest creates a departure explicitly
type CreateDepartureRequest struct {
	TourID      string              `json:"tour_id" binding:"required"`
	Date        string              `json:"date" binding:"required"`
	Visibility  DepartureVisibility `json:"visibility" binding:"required,oneof=private public"`
	MaxCapacity *int                `json:"max_capacity,omitempty" binding:"omitempty,min=1"`
}

// UpdateDepartureRequest updates non-ledger departure fields
type UpdateDepartureRequest struct {
	MaxCapacity *int                 `json:"max_capacity,omitempty" binding:"omitempty,min=1"`
	Status      *DepartureStatus     `json:"status,omitempty" binding:"omitempty,oneof=active full completed cancelled"`
	Visibility  *DepartureVisibility `json:"visibility,omitempty" binding:"omitempty,oneof=private public"`
	Note        string               `json:"note"`
}

// ChangeDepartureDateRequest moves a departure and all its bookings to another day
type ChangeDepartureDateRequest struct {
	Date string `json:"date" binding:"required"`
	Note string `json:"note"`
}

// ChangeDepartureTourRequest re-assigns a departure to another tour
type ChangeDepartureTourRequest struct {
	TourID string `json:"tour_id" binding:"required"`
	Note   string `json:"note"`
}

// SplitDepartureRequest moves a subset of bookings into a new departure
type SplitDepartureRequest struct {
	BookingIDs  []string             `json:"booking_ids" binding:"required,min=1,dive,required"`
	Visibility  *DepartureVisibility `json:"visibility,omitempty" binding:"omitempty,oneof=private public"`
	MaxCapacity *int                 `json:"max_capacity,omitempty" binding:"omitempty,min=1"`
	Note        string               `json:"note"`
}

// RepriceDepartureRequest refreshes a departure's pricing snapshot from its tour
type RepriceDepartureRequest struct {
	RepriceBookings bool   `json:"reprice_bookings"`
	Note            string `json:"note"`
}

// SplitResult reports the outcome of a split
type SplitResult struct {
	Source     *Departure `json:"source"`
	Created    *Departure `json:"created"`
	MovedPax   int        `json:"moved_pax"`
	MovedCount int        `json:"moved_count"`
	SourceGone bool       `json:"source_deleted"`
}
