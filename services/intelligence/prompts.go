package ai

import (
	"fmt"
	"sort"
	"strings"

	"bookflow/models"
)

const defaultBasePrompt = `You are the booking assistant of a medical center, chatting with a patient.
Be brief and friendly and answer in the patient's language.
Only use identifiers returned by the tools; never invent ids, dates or times.
When you list options, number them starting at 1.`

// systemPrompt renders the base prompt, the stage instructions and what the
// conversation has already established.
func (o *Orchestrator) systemPrompt(stage models.StageDefinition, sc models.SessionContext) string {
	var b strings.Builder
	base := o.cfg.BasePrompt
	if base == "" {
		base = defaultBasePrompt
	}
	b.WriteString(base)

	now := o.Now()
	if o.cfg.Location != nil {
		now = now.In(o.cfg.Location)
	}
	fmt.Fprintf(&b, "\n\nToday is %s (%s).", now.Format("2006-01-02"), now.Weekday())

	if stage.Prompt != "" {
		b.WriteString("\n\n")
		b.WriteString(stage.Prompt)
	}

	if facts := describeContext(sc.Scheduling); facts != "" {
		b.WriteString("\n\nKnown so far:\n")
		b.WriteString(facts)
	}
	return b.String()
}

func describeContext(s models.SchedulingContext) string {
	var lines []string
	if s.SelectedLocationID != "" {
		lines = append(lines, "- selected locationId: "+s.SelectedLocationID)
	}
	if s.SelectedResourceID != "" {
		line := "- selected resourceId: " + s.SelectedResourceID
		if r, ok := s.ListedResourceByID(s.SelectedResourceID); ok {
			line += " (" + r.DisplayName + ")"
		}
		lines = append(lines, line)
	}
	if s.SelectedDateYmd != "" {
		lines = append(lines, "- selected date: "+s.SelectedDateYmd)
	}
	if len(s.LastListedResources) > 0 {
		lines = append(lines, "- last listed professionals:")
		for i, r := range s.LastListedResources {
			lines = append(lines, fmt.Sprintf("  %d. %s (resourceId %s)", i+1, r.DisplayName, r.ID))
		}
	}
	if len(s.SlotsByDate) > 0 {
		dates := make([]string, 0, len(s.SlotsByDate))
		for d := range s.SlotsByDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		lines = append(lines, "- offered times:")
		for _, d := range dates {
			lines = append(lines, fmt.Sprintf("  %s: %s", d, strings.Join(s.SlotsByDate[d], ", ")))
		}
	}
	return strings.Join(lines, "\n")
}
