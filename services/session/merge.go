package session

import (
	"encoding/json"

	"bookflow/models"

	"go.uber.org/zap"
)

// Apply returns base with patch applied. base is not modified.
// Empty-string reassignments are ignored so a key is never silently cleared;
// only ClearBooking drops values.
func Apply(base models.SessionContext, patch *models.ContextPatch, logger *zap.Logger) models.SessionContext {
	out := base.Clone()
	if patch.IsEmpty() {
		return out
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &out.Scheduling

	if patch.ClearBooking {
		logger.Debug("session: clearing booking selection",
			zap.String("reason", patch.Reason),
			zap.String("selectedResourceId", s.SelectedResourceID),
			zap.String("selectedLocationId", s.SelectedLocationID),
			zap.String("selectedDateYmd", s.SelectedDateYmd))
		s.SelectedResourceID = ""
		s.SelectedLocationID = ""
		s.SelectedDateYmd = ""
		s.SlotsByDate = nil
	}

	assign(logger, patch.Reason, "selectedLocationId", &s.SelectedLocationID, patch.SelectedLocationID)
	assign(logger, patch.Reason, "selectedResourceId", &s.SelectedResourceID, patch.SelectedResourceID)
	assign(logger, patch.Reason, "selectedDateYmd", &s.SelectedDateYmd, patch.SelectedDateYmd)
	assign(logger, patch.Reason, "slotsResourceId", &s.SlotsResourceID, patch.SlotsResourceID)
	assign(logger, patch.Reason, "slotsLocationId", &s.SlotsLocationID, patch.SlotsLocationID)

	if patch.SlotsByDate != nil {
		s.SlotsByDate = make(map[string][]string, len(patch.SlotsByDate))
		for date, times := range patch.SlotsByDate {
			s.SlotsByDate[date] = append([]string(nil), times...)
		}
		logger.Debug("session: slotsByDate replaced", zap.String("reason", patch.Reason), zap.Int("dates", len(s.SlotsByDate)))
	}
	if patch.LastListedResources != nil {
		s.LastListedResources = append([]models.ListedResource(nil), patch.LastListedResources...)
		logger.Debug("session: lastListedResources replaced", zap.String("reason", patch.Reason), zap.Int("count", len(s.LastListedResources)))
	}
	if patch.LastListedLocations != nil {
		s.LastListedLocations = append([]models.ListedLocation(nil), patch.LastListedLocations...)
	}
	if len(patch.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage, len(patch.Extra))
		}
		for k, v := range patch.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

func assign(logger *zap.Logger, reason, key string, dst *string, v *string) {
	if v == nil || *v == "" || *v == *dst {
		return
	}
	logger.Debug("session: key reassigned",
		zap.String("key", key),
		zap.String("old", *dst),
		zap.String("new", *v),
		zap.String("reason", reason))
	*dst = *v
}
