package scheduling

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bookflow/models"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// Seed is the initial catalog of a MemoryProvider.
type Seed struct {
	Locations  []models.Location
	Categories []models.ResourceCategory
	Resources  []models.Resource
	Slots      []models.Slot
	Contacts   []models.Contact
	Attentions []models.Attention
}

// MemoryProvider is an in-process Provider used for local development and tests.
type MemoryProvider struct {
	mu         sync.Mutex
	locations  []models.Location
	categories []models.ResourceCategory
	resources  []models.Resource
	slots      []models.Slot
	contacts   []models.Contact
	attentions []models.Attention
	bookings   []*models.Booking
	now        func() time.Time
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider(seed Seed) *MemoryProvider {
	return &MemoryProvider{
		locations:  append([]models.Location(nil), seed.Locations...),
		categories: append([]models.ResourceCategory(nil), seed.Categories...),
		resources:  append([]models.Resource(nil), seed.Resources...),
		slots:      append([]models.Slot(nil), seed.Slots...),
		contacts:   append([]models.Contact(nil), seed.Contacts...),
		attentions: append([]models.Attention(nil), seed.Attentions...),
		now:        time.Now,
	}
}

func (p *MemoryProvider) ListLocations(_ context.Context) ([]models.Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Location
	for _, l := range p.locations {
		if l.Enabled {
			out = append(out, l)
		}
	}
	return out, nil
}

func (p *MemoryProvider) ListCategories(_ context.Context) ([]models.ResourceCategory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ResourceCategory(nil), p.categories...), nil
}

func (p *MemoryProvider) ListResources(_ context.Context, f models.ResourceFilter) ([]models.Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Resource
	for _, r := range p.resources {
		if !r.Enabled {
			continue
		}
		if f.Category != "" && !strings.EqualFold(r.Category, f.Category) {
			continue
		}
		if f.SearchName != "" && !strings.Contains(strings.ToLower(r.DisplayName), strings.ToLower(f.SearchName)) {
			continue
		}
		if f.LocationID != "" && r.LocationID != "" && r.LocationID != f.LocationID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (p *MemoryProvider) GetResource(_ context.Context, resourceID string) (*models.Resource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.resources {
		if r.ID == resourceID {
			r := r
			return &r, nil
		}
	}
	return nil, NewNotFound("resource %s not found", resourceID)
}

func (p *MemoryProvider) ListSlots(_ context.Context, resourceID, locationID, startDate, endDate string) ([]models.Slot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Slot
	for _, s := range p.slots {
		if s.Booked || s.ResourceID != resourceID || s.LocationID != locationID {
			continue
		}
		if (startDate != "" && s.Date < startDate) || (endDate != "" && s.Date > endDate) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

// takeSlot marks a free slot as booked. Caller holds p.mu.
func (p *MemoryProvider) takeSlot(resourceID, locationID, chairID, date, hhmm string) (*models.Slot, bool) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.Booked || s.ResourceID != resourceID || s.LocationID != locationID || s.Date != date || s.Time != hhmm {
			continue
		}
		if chairID != "" && s.ChairID != "" && s.ChairID != chairID {
			continue
		}
		s.Booked = true
		return s, true
	}
	return nil, false
}

// releaseSlot frees the slot a booking held. Caller holds p.mu.
func (p *MemoryProvider) releaseSlot(b *models.Booking) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.Booked && s.ResourceID == b.ResourceID && s.LocationID == b.LocationID && s.Date == b.DateYmd && s.Time == b.TimeHhmm {
			s.Booked = false
			return
		}
	}
}

func (p *MemoryProvider) CreateBooking(_ context.Context, req models.BookingRequest) (*models.Booking, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	slot, ok := p.takeSlot(req.ResourceID, req.LocationID, req.ChairID, req.DateYmd, req.TimeHhmm)
	if !ok {
		return nil, NewConflict("no free slot for resource %s at %s %s", req.ResourceID, req.DateYmd, req.TimeHhmm)
	}
	now := p.now()
	b := &models.Booking{
		ID:               uuid.New().String(),
		ConfirmationCode: strings.ToUpper(shortuuid.New()[:8]),
		ResourceID:       req.ResourceID,
		LocationID:       req.LocationID,
		ChairID:          slot.ChairID,
		DateYmd:          req.DateYmd,
		TimeHhmm:         req.TimeHhmm,
		DurationMinutes:  req.DurationMinutes,
		Contact:          req.Contact,
		AttentionID:      req.AttentionID,
		Status:           models.BookingStatusConfirmed,
		Comment:          req.Comment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p.bookings = append(p.bookings, b)
	out := *b
	return &out, nil
}

func (p *MemoryProvider) findBooking(id string) *models.Booking {
	for _, b := range p.bookings {
		if b.ID == id || strings.EqualFold(b.ConfirmationCode, id) {
			return b
		}
	}
	return nil
}

func (p *MemoryProvider) UpdateBooking(_ context.Context, bookingID string, change models.BookingChange) (*models.Booking, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.findBooking(bookingID)
	if b == nil {
		return nil, NewNotFound("booking %s not found", bookingID)
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, NewConflict("booking %s is cancelled", bookingID)
	}
	resourceID := firstNonEmpty(change.ResourceID, b.ResourceID)
	locationID := firstNonEmpty(change.LocationID, b.LocationID)
	slot, ok := p.takeSlot(resourceID, locationID, change.ChairID, change.NewDateYmd, change.NewTime)
	if !ok {
		return nil, NewConflict("no free slot for resource %s at %s %s", resourceID, change.NewDateYmd, change.NewTime)
	}
	p.releaseSlot(b)

	b.ResourceID = resourceID
	b.LocationID = locationID
	b.ChairID = slot.ChairID
	b.DateYmd = change.NewDateYmd
	b.TimeHhmm = change.NewTime
	if change.Comment != "" {
		b.Comment = change.Comment
	}
	b.Status = models.BookingStatusRescheduled
	b.UpdatedAt = p.now()
	out := *b
	return &out, nil
}

func (p *MemoryProvider) CancelBooking(_ context.Context, bookingID, reason string) (*models.Booking, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.findBooking(bookingID)
	if b == nil {
		return nil, NewNotFound("booking %s not found", bookingID)
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, NewConflict("booking %s is already cancelled", bookingID)
	}
	p.releaseSlot(b)
	b.Status = models.BookingStatusCancelled
	b.CancelReason = reason
	b.UpdatedAt = p.now()
	out := *b
	return &out, nil
}

func (p *MemoryProvider) FindContact(_ context.Context, q models.ContactQuery) (*models.Contact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.contacts {
		if (q.NationalID != "" && c.NationalID == q.NationalID) ||
			(q.Email != "" && strings.EqualFold(c.Email, q.Email)) ||
			(q.Phone != "" && c.Phone == q.Phone) {
			c := c
			return &c, nil
		}
	}
	return nil, NewNotFound("contact not found")
}

func (p *MemoryProvider) ListContactBookings(_ context.Context, contactPhone, status string) ([]models.Booking, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Booking
	for _, b := range p.bookings {
		if b.Contact.Phone != contactPhone {
			continue
		}
		if status != "" && !strings.EqualFold(b.Status, status) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (p *MemoryProvider) FindOpenAttention(_ context.Context, contactPhone string) (*models.Attention, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, a := range p.attentions {
		if a.Open && a.ContactPhone == contactPhone {
			a := a
			return &a, nil
		}
	}
	return nil, NewNotFound("no open attention for %s", contactPhone)
}

// Bookings returns a copy of every booking, newest last.
func (p *MemoryProvider) Bookings() []models.Booking {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Booking, 0, len(p.bookings))
	for _, b := range p.bookings {
		out = append(out, *b)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
