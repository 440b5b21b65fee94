// Package scheduling defines the SchedulingProvider capability consumed by the tool layer.
package scheduling

import (
	"context"

	"bookflow/models"
)

// Provider is the black-box scheduling backend. Transport retries, rate limiting and
// pagination belong to implementations; errors are surfaced as *ProviderError.
type Provider interface {
	ListLocations(ctx context.Context) ([]models.Location, error)
	ListCategories(ctx context.Context) ([]models.ResourceCategory, error)
	ListResources(ctx context.Context, filter models.ResourceFilter) ([]models.Resource, error)
	GetResource(ctx context.Context, resourceID string) (*models.Resource, error)
	ListSlots(ctx context.Context, resourceID, locationID, startDate, endDate string) ([]models.Slot, error)

	CreateBooking(ctx context.Context, req models.BookingRequest) (*models.Booking, error)
	UpdateBooking(ctx context.Context, bookingID string, change models.BookingChange) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID, reason string) (*models.Booking, error)

	FindContact(ctx context.Context, q models.ContactQuery) (*models.Contact, error)
	ListContactBookings(ctx context.Context, contactPhone, status string) ([]models.Booking, error)
	FindOpenAttention(ctx context.Context, contactPhone string) (*models.Attention, error)
}
