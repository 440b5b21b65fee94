// Package guard encodes the compatibility rule between resource categories and locations.
//
// One category is confined to exactly one location, and every other category is
// confined to the complement of that location.
package guard

import (
	"fmt"
	"strings"
)

// Rules is the partition rule. The zero value allows every pairing.
type Rules struct {
	// ConfinedCategory may only be scheduled at ConfinedLocationID.
	ConfinedCategory   string
	ConfinedLocationID string
	// DefaultLocationID is where every other category is sent when corrected.
	DefaultLocationID string
}

// Violation is a structured rejection carrying the location the caller should retry with.
type Violation struct {
	Category            string
	RequestedLocationID string
	CorrectedLocationID string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("category %q cannot be scheduled at location %q; use location %q",
		v.Category, v.RequestedLocationID, v.CorrectedLocationID)
}

// Message is the in-band instruction returned to the agent.
func (v *Violation) Message() string {
	return fmt.Sprintf("The selected professional does not attend at location %s. Retry using locationId %q.",
		v.RequestedLocationID, v.CorrectedLocationID)
}

// Enabled reports whether a partition is configured.
func (r Rules) Enabled() bool {
	return r.ConfinedCategory != "" && r.ConfinedLocationID != ""
}

func (r Rules) isConfined(category string) bool {
	return strings.EqualFold(strings.TrimSpace(category), r.ConfinedCategory)
}

// IsCompatible reports whether resources of category may be scheduled at locationID.
func (r Rules) IsCompatible(category, locationID string) bool {
	if !r.Enabled() {
		return true
	}
	return r.isConfined(category) == (locationID == r.ConfinedLocationID)
}

// LocationFor returns the location a category is auto-assigned to.
// current is kept when it is already compatible.
func (r Rules) LocationFor(category, current string) string {
	if !r.Enabled() {
		return current
	}
	if current != "" && r.IsCompatible(category, current) {
		return current
	}
	if r.isConfined(category) {
		return r.ConfinedLocationID
	}
	return r.DefaultLocationID
}

// Check returns a Violation when the pairing is not allowed.
func (r Rules) Check(category, locationID string) *Violation {
	if r.IsCompatible(category, locationID) {
		return nil
	}
	return &Violation{
		Category:            category,
		RequestedLocationID: locationID,
		CorrectedLocationID: r.LocationFor(category, ""),
	}
}
