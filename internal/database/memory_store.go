package database

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trekops/booking-backend/internal/models"
)

// MemoryStore is an in-process Store. Transactions are serialized by a
// mutex and commit by swapping in a modified copy of the state.
type MemoryStore struct {
	mu         sync.Mutex
	state      *memoryState
	maxRetries int
}

type memoryState struct {
	tours        map[string]models.Tour
	departures   map[string]models.Departure
	bookings     map[string]models.Booking
	auditLogs    []models.AuditLog
	seq          int64
	departureSeq map[string]int64
	bookingSeq   map[string]int64
	historyID    int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			tours:        map[string]models.Tour{},
			departures:   map[string]models.Departure{},
			bookings:     map[string]models.Booking{},
			departureSeq: map[string]int64{},
			bookingSeq:   map[string]int64{},
		},
		maxRetries: 5,
	}
}

// WithTx runs fn against a copy of the state and commits it when fn succeeds
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		s.mu.Lock()
		working := s.state.clone()
		err = fn(&memTx{st: working})
		if err == nil {
			s.state = working
		}
		s.mu.Unlock()

		if err == nil || !errors.Is(err, ErrDuplicateReference) {
			return err
		}
	}
	return errors.Join(ErrTxRetriesExhausted, err)
}

// View runs fn against a throwaway copy of the state
func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	working := s.state.clone()
	s.mu.Unlock()
	return fn(&memTx{st: working})
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}

// AuditLogs returns a copy of the recorded audit events
func (s *MemoryStore) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.state.auditLogs...)
}

func (st *memoryState) clone() *memoryState {
	c := &memoryState{
		tours:        make(map[string]models.Tour, len(st.tours)),
		departures:   make(map[string]models.Departure, len(st.departures)),
		bookings:     make(map[string]models.Booking, len(st.bookings)),
		auditLogs:    append([]models.AuditLog(nil), st.auditLogs...),
		seq:          st.seq,
		departureSeq: make(map[string]int64, len(st.departureSeq)),
		bookingSeq:   make(map[string]int64, len(st.bookingSeq)),
		historyID:    st.historyID,
	}
	for k, v := range st.tours {
		c.tours[k] = cloneTour(v)
	}
	for k, v := range st.departures {
		c.departures[k] = cloneDeparture(v)
	}
	for k, v := range st.bookings {
		c.bookings[k] = cloneBooking(v)
	}
	for k, v := range st.departureSeq {
		c.departureSeq[k] = v
	}
	for k, v := range st.bookingSeq {
		c.bookingSeq[k] = v
	}
	return c
}

func clonePricing(p models.PricingTable) models.PricingTable {
	p.Tiers = append([]models.PricingTier(nil), p.Tiers...)
	return p
}

func cloneTour(t models.Tour) models.Tour {
	t.Highlights = append(models.StringArray(nil), t.Highlights...)
	t.Pricing = clonePricing(t.Pricing)
	if t.MaxParticipants != nil {
		v := *t.MaxParticipants
		t.MaxParticipants = &v
	}
	return t
}

func cloneDeparture(d models.Departure) models.Departure {
	d.PricingSnapshot = clonePricing(d.PricingSnapshot)
	return d
}

func cloneBooking(b models.Booking) models.Booking {
	b.StatusHistory = append([]models.StatusHistoryEntry(nil), b.StatusHistory...)
	if b.TransferInfo != nil {
		info := *b.TransferInfo
		b.TransferInfo = &info
	}
	return b
}

// memTx implements Tx over a working copy of the state
type memTx struct {
	st *memoryState
}

func (t *memTx) nextSeq() int64 {
	t.st.seq++
	return t.st.seq
}

func (t *memTx) GetTour(ctx context.Context, id string) (*models.Tour, error) {
	tour, ok := t.st.tours[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneTour(tour)
	return &c, nil
}

func (t *memTx) ListTours(ctx context.Context, activeOnly bool) ([]models.Tour, error) {
	tours := []models.Tour{}
	for _, tour := range t.st.tours {
		if activeOnly && !tour.IsActive {
			continue
		}
		tours = append(tours, cloneTour(tour))
	}
	sort.Slice(tours, func(i, j int) bool { return tours[i].Name < tours[j].Name })
	return tours, nil
}

func (t *memTx) CreateTour(ctx context.Context, tour *models.Tour) error {
	for _, existing := range t.st.tours {
		if existing.Slug == tour.Slug {
			return ErrDuplicate
		}
	}
	now := time.Now()
	tour.CreatedAt, tour.UpdatedAt = now, now
	t.st.tours[tour.ID] = cloneTour(*tour)
	return nil
}

func (t *memTx) UpdateTour(ctx context.Context, tour *models.Tour) error {
	if _, ok := t.st.tours[tour.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range t.st.tours {
		if id != tour.ID && existing.Slug == tour.Slug {
			return ErrDuplicate
		}
	}
	tour.UpdatedAt = time.Now()
	t.st.tours[tour.ID] = cloneTour(*tour)
	return nil
}

func (t *memTx) GetDeparture(ctx context.Context, id string, forUpdate bool) (*models.Departure, error) {
	departure, ok := t.st.departures[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneDeparture(departure)
	return &c, nil
}

func (t *memTx) FindJoinableDeparture(ctx context.Context, tourID string, date models.Date, pax int) (*models.Departure, error) {
	var (
		found   *models.Departure
		bestSeq int64
	)
	for id, d := range t.st.departures {
		if d.TourID != tourID || !d.Date.Equal(date) || d.Visibility != models.VisibilityPublic ||
			d.Status != models.DepartureStatusActive || d.AvailableSlots() < pax {
			continue
		}
		seq := t.st.departureSeq[id]
		if found == nil || seq < bestSeq {
			c := cloneDeparture(d)
			found, bestSeq = &c, seq
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (t *memTx) ListDepartures(ctx context.Context, filter models.DepartureFilter) ([]models.Departure, error) {
	departures := []models.Departure{}
	for _, d := range t.st.departures {
		if filter.TourID != "" && d.TourID != filter.TourID {
			continue
		}
		if filter.From != nil && d.Date.Before(filter.From.Time) {
			continue
		}
		if filter.To != nil && d.Date.After(filter.To.Time) {
			continue
		}
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, d.Status) {
			continue
		}
		if filter.Visibility != "" && d.Visibility != filter.Visibility {
			continue
		}
		departures = append(departures, cloneDeparture(d))
	}
	sort.Slice(departures, func(i, j int) bool {
		if !departures[i].Date.Equal(departures[j].Date) {
			return departures[i].Date.Before(departures[j].Date.Time)
		}
		return t.st.departureSeq[departures[i].ID] < t.st.departureSeq[departures[j].ID]
	})
	return paginate(departures, filter.Limit, filter.Offset), nil
}

func (t *memTx) CreateDeparture(ctx context.Context, departure *models.Departure) error {
	now := time.Now()
	departure.CreatedAt, departure.UpdatedAt = now, now
	t.st.departures[departure.ID] = cloneDeparture(*departure)
	t.st.departureSeq[departure.ID] = t.nextSeq()
	return nil
}

func (t *memTx) UpdateDeparture(ctx context.Context, departure *models.Departure) error {
	current, ok := t.st.departures[departure.ID]
	if !ok || current.ReservedSlots > departure.MaxCapacity {
		return ErrConditionFailed
	}
	updated := cloneDeparture(*departure)
	// ledger counters are only written through the Adjust methods
	updated.ReservedSlots = current.ReservedSlots
	updated.TotalBookingCount = current.TotalBookingCount
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = time.Now()
	departure.UpdatedAt = updated.UpdatedAt
	t.st.departures[departure.ID] = updated
	return nil
}

func (t *memTx) AdjustReservedSlots(ctx context.Context, id string, delta int) (*models.Departure, error) {
	d, ok := t.st.departures[id]
	if !ok {
		return nil, ErrConditionFailed
	}
	next := d.ReservedSlots + delta
	if next < 0 || next > d.MaxCapacity || (delta > 0 && !d.Status.IsOpen()) {
		return nil, ErrConditionFailed
	}
	d.ReservedSlots = next
	d.Status = models.CapacityStatus(d.Status, next, d.MaxCapacity)
	d.UpdatedAt = time.Now()
	t.st.departures[id] = d
	c := cloneDeparture(d)
	return &c, nil
}

func (t *memTx) AdjustBookingCount(ctx context.Context, id string, delta int) error {
	d, ok := t.st.departures[id]
	if !ok || d.TotalBookingCount+delta < 0 {
		return ErrConditionFailed
	}
	d.TotalBookingCount += delta
	d.UpdatedAt = time.Now()
	t.st.departures[id] = d
	return nil
}

func (t *memTx) DeleteDeparture(ctx context.Context, id string) error {
	d, ok := t.st.departures[id]
	if !ok || d.ReservedSlots != 0 {
		return ErrConditionFailed
	}
	delete(t.st.departures, id)
	delete(t.st.departureSeq, id)
	return nil
}

func (t *memTx) CompleteDeparturesBefore(ctx context.Context, day models.Date) (int64, error) {
	var count int64
	for id, d := range t.st.departures {
		if d.Date.Before(day.Time) && d.Status.IsOpen() {
			d.Status = models.DepartureStatusCompleted
			d.UpdatedAt = time.Now()
			t.st.departures[id] = d
			count++
		}
	}
	return count, nil
}

func (t *memTx) GetBooking(ctx context.Context, id string, forUpdate bool) (*models.Booking, error) {
	booking, ok := t.st.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneBooking(booking)
	return &c, nil
}

func (t *memTx) GetBookingByReference(ctx context.Context, reference string) (*models.Booking, error) {
	for _, booking := range t.st.bookings {
		if booking.Reference == reference {
			c := cloneBooking(booking)
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	search := strings.ToLower(filter.Search)
	bookings := []models.Booking{}
	for _, b := range t.st.bookings {
		if filter.TourID != "" && b.TourID != filter.TourID {
			continue
		}
		if filter.DepartureID != "" && b.DepartureID != filter.DepartureID {
			continue
		}
		if len(filter.Status) > 0 && !slices.Contains(filter.Status, b.Status) {
			continue
		}
		if filter.From != nil && b.DepartureDate.Before(filter.From.Time) {
			continue
		}
		if filter.To != nil && b.DepartureDate.After(filter.To.Time) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Reference), search) &&
			!strings.Contains(strings.ToLower(b.Customer.Name), search) &&
			!strings.Contains(strings.ToLower(b.Customer.Email), search) {
			continue
		}
		b.StatusHistory = nil
		bookings = append(bookings, cloneBooking(b))
	}
	sort.Slice(bookings, func(i, j int) bool {
		return t.st.bookingSeq[bookings[i].ID] > t.st.bookingSeq[bookings[j].ID]
	})
	return paginate(bookings, filter.Limit, filter.Offset), len(bookings), nil
}

func (t *memTx) ListDepartureBookings(ctx context.Context, departureID string, forUpdate bool) ([]models.Booking, error) {
	bookings := []models.Booking{}
	for _, b := range t.st.bookings {
		if b.DepartureID == departureID {
			bookings = append(bookings, cloneBooking(b))
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return t.st.bookingSeq[bookings[i].ID] < t.st.bookingSeq[bookings[j].ID]
	})
	return bookings, nil
}

func (t *memTx) CreateBooking(ctx context.Context, booking *models.Booking) error {
	for _, existing := range t.st.bookings {
		if existing.Reference == booking.Reference {
			return ErrDuplicateReference
		}
	}
	now := time.Now()
	booking.CreatedAt, booking.UpdatedAt = now, now
	stored := cloneBooking(*booking)
	stored.StatusHistory = nil
	t.st.bookings[booking.ID] = stored
	t.st.bookingSeq[booking.ID] = t.nextSeq()
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, booking *models.Booking) error {
	current, ok := t.st.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	updated := cloneBooking(*booking)
	updated.Reference = current.Reference
	updated.CreatedAt = current.CreatedAt
	updated.StatusHistory = current.StatusHistory
	updated.UpdatedAt = time.Now()
	booking.UpdatedAt = updated.UpdatedAt
	t.st.bookings[booking.ID] = updated
	return nil
}

func (t *memTx) AppendStatusHistory(ctx context.Context, entry *models.StatusHistoryEntry) error {
	booking, ok := t.st.bookings[entry.BookingID]
	if !ok {
		return ErrNotFound
	}
	t.st.historyID++
	entry.ID = t.st.historyID
	entry.CreatedAt = time.Now()
	booking.StatusHistory = append(booking.StatusHistory, *entry)
	t.st.bookings[entry.BookingID] = booking
	return nil
}

func (t *memTx) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = int64(len(t.st.auditLogs) + 1)
	entry.CreatedAt = time.Now()
	t.st.auditLogs = append(t.st.auditLogs, *entry)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
