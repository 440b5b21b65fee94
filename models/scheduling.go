package models

import "time"

// Booking statuses reported by the scheduling provider.
const (
	BookingStatusConfirmed   = "confirmed"
	BookingStatusRescheduled = "rescheduled"
	BookingStatusCancelled   = "cancelled"
)

// Location is a branch where appointments take place.
type Location struct {
	ID       string `bson:"id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
	Schedule string `bson:"schedule,omitempty" json:"schedule,omitempty"` // e.g. "Mon-Fri 09:00-18:00"
	Enabled  bool   `bson:"enabled" json:"enabled"`
}

// ResourceCategory groups resources (e.g. a medical specialty).
type ResourceCategory struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Resource is something that can be booked, typically a professional.
type Resource struct {
	ID              string `bson:"id" json:"id"`
	DisplayName     string `bson:"displayName" json:"displayName"`
	Category        string `bson:"category" json:"category"`
	LocationID      string `bson:"locationId,omitempty" json:"locationId,omitempty"`
	IntervalMinutes int    `bson:"intervalMinutes" json:"intervalMinutes"` // configured appointment length
	Enabled         bool   `bson:"enabled" json:"enabled"`
}

// ResourceFilter narrows list_resources.
type ResourceFilter struct {
	Category   string
	SearchName string
	LocationID string
}

// Slot is one bookable start time.
type Slot struct {
	ResourceID string `bson:"resourceId" json:"resourceId"`
	LocationID string `bson:"locationId" json:"locationId"`
	ChairID    string `bson:"chairId,omitempty" json:"chairId,omitempty"`
	Date       string `bson:"date" json:"date"` // YYYY-MM-DD
	Time       string `bson:"time" json:"time"` // HH:MM
	Booked     bool   `bson:"booked" json:"-"`
}

// Contact is the end user an appointment belongs to.
type Contact struct {
	ID         string `bson:"id" json:"id"`
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email,omitempty" json:"email,omitempty"`
	Phone      string `bson:"phone" json:"phone"`
	NationalID string `bson:"nationalId,omitempty" json:"nationalId,omitempty"`
}

// ContactQuery is the lookup for find_contact; at least one field is required.
type ContactQuery struct {
	NationalID string
	Email      string
	Phone      string
}

// Attention is the upstream "open attention" record some deployments link bookings to.
type Attention struct {
	ID           string `bson:"id" json:"id"`
	ContactPhone string `bson:"contactPhone" json:"contactPhone"`
	Open         bool   `bson:"open" json:"open"`
}

// BookingRequest is what create_booking sends upstream.
type BookingRequest struct {
	ResourceID      string
	LocationID      string
	ChairID         string
	DateYmd         string
	TimeHhmm        string
	DurationMinutes int
	Contact         Contact
	Comment         string
	AttentionID     string
}

// BookingChange is what reschedule_booking sends upstream.
type BookingChange struct {
	NewDateYmd string
	NewTime    string
	ResourceID string
	LocationID string
	ChairID    string
	Comment    string
}

// Booking is a scheduled appointment.
type Booking struct {
	ID               string    `bson:"id" json:"id"`
	ConfirmationCode string    `bson:"confirmationCode" json:"confirmationCode"`
	ResourceID       string    `bson:"resourceId" json:"resourceId"`
	LocationID       string    `bson:"locationId" json:"locationId"`
	ChairID          string    `bson:"chairId,omitempty" json:"chairId,omitempty"`
	DateYmd          string    `bson:"dateYmd" json:"dateYmd"`
	TimeHhmm         string    `bson:"timeHhmm" json:"timeHhmm"`
	DurationMinutes  int       `bson:"durationMinutes" json:"durationMinutes"`
	Contact          Contact   `bson:"contact" json:"contact"`
	AttentionID      string    `bson:"attentionId,omitempty" json:"attentionId,omitempty"`
	Status           string    `bson:"status" json:"status"`
	Comment          string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CancelReason     string    `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}
