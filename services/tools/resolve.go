package tools

import (
	"bookflow/services/resolver"
)

// resolveResource runs a resource id supplied by the agent through the resolver.
func (d *dispatcher) resolveResource(call *Call, candidate string) resolver.Resolution {
	sc := call.Context.Scheduling
	listed := make([]resolver.Candidate, 0, len(sc.LastListedResources))
	for _, r := range sc.LastListedResources {
		listed = append(listed, resolver.Candidate{ID: r.ID, DisplayName: r.DisplayName})
	}
	return d.Resolver.Resolve(resolver.Reference{
		Kind:      "resource",
		Candidate: candidate,
		Listed:    listed,
		Persisted: sc.SelectedResourceID,
		Utterance: call.Utterance,
	})
}

// resolveLocation validates a location id against the last location listing.
// Without a listing there is nothing to validate against and the id is kept.
func (d *dispatcher) resolveLocation(call *Call, candidate string) resolver.Resolution {
	sc := call.Context.Scheduling
	if len(sc.LastListedLocations) == 0 {
		return resolver.Resolution{FinalID: candidate, Outcome: resolver.OutcomeAcceptedUnverified}
	}
	listed := make([]resolver.Candidate, 0, len(sc.LastListedLocations))
	for _, l := range sc.LastListedLocations {
		listed = append(listed, resolver.Candidate{ID: l.ID, DisplayName: l.Name})
	}
	return d.Resolver.Resolve(resolver.Reference{
		Kind:      "location",
		Candidate: candidate,
		Listed:    listed,
		Persisted: sc.SelectedLocationID,
		Utterance: call.Utterance,
	})
}
