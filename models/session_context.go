package models

import "encoding/json"

// ListedResource is one entry of the most recent resource listing shown to the agent.
type ListedResource struct {
	ID          string `json:"id" bson:"id"`
	DisplayName string `json:"displayName" bson:"displayName"`
	LocationID  string `json:"locationId,omitempty" bson:"locationId,omitempty"`
}

// ListedLocation is one entry of the most recent location listing shown to the agent.
type ListedLocation struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// SchedulingContext holds the recognized scheduling keys of a conversation.
type SchedulingContext struct {
	SelectedLocationID  string              `json:"selectedLocationId,omitempty"`
	SelectedResourceID  string              `json:"selectedResourceId,omitempty"`
	SelectedDateYmd     string              `json:"selectedDateYmd,omitempty"`
	SlotsByDate         map[string][]string `json:"slotsByDate,omitempty"`
	SlotsResourceID     string              `json:"slotsResourceId,omitempty"`
	SlotsLocationID     string              `json:"slotsLocationId,omitempty"`
	LastListedResources []ListedResource    `json:"lastListedResources,omitempty"`
	LastListedLocations []ListedLocation    `json:"lastListedLocations,omitempty"`
}

// SessionContext is the persisted, additive context of one conversation.
// Extra keeps forward-compatible keys this version does not interpret.
type SessionContext struct {
	Scheduling SchedulingContext          `json:"scheduling"`
	Extra      map[string]json.RawMessage `json:"extra,omitempty"`
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (c SessionContext) Clone() SessionContext {
	out := c
	s := c.Scheduling
	if s.SlotsByDate != nil {
		out.Scheduling.SlotsByDate = make(map[string][]string, len(s.SlotsByDate))
		for date, times := range s.SlotsByDate {
			out.Scheduling.SlotsByDate[date] = append([]string(nil), times...)
		}
	}
	if s.LastListedResources != nil {
		out.Scheduling.LastListedResources = append([]ListedResource(nil), s.LastListedResources...)
	}
	if s.LastListedLocations != nil {
		out.Scheduling.LastListedLocations = append([]ListedLocation(nil), s.LastListedLocations...)
	}
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// ListedResourceByID looks up an entry of the last resource listing.
func (s SchedulingContext) ListedResourceByID(id string) (ListedResource, bool) {
	for _, r := range s.LastListedResources {
		if r.ID == id {
			return r, true
		}
	}
	return ListedResource{}, false
}

// ContextPatch describes one traceable write to a SessionContext.
// Pointer fields are explicit reassignments; nil means "leave as is".
// Non-nil maps and slices replace the stored value wholesale.
type ContextPatch struct {
	SelectedLocationID  *string
	SelectedResourceID  *string
	SelectedDateYmd     *string
	SlotsByDate         map[string][]string
	SlotsResourceID     *string
	SlotsLocationID     *string
	LastListedResources []ListedResource
	LastListedLocations []ListedLocation
	Extra               map[string]json.RawMessage

	// ClearBooking drops the booking-specific subset after a successful write action.
	ClearBooking bool

	// Reason names the tool or step that produced the patch.
	Reason string
}

// IsEmpty reports whether applying the patch would change nothing.
func (p *ContextPatch) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.SelectedLocationID == nil && p.SelectedResourceID == nil && p.SelectedDateYmd == nil &&
		p.SlotsByDate == nil && p.SlotsResourceID == nil && p.SlotsLocationID == nil &&
		p.LastListedResources == nil && p.LastListedLocations == nil && len(p.Extra) == 0 &&
		!p.ClearBooking
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string {
	return &s
}
