package funnel

import (
	"fmt"

	"bookflow/models"

	"github.com/google/cel-go/cel"
)

func newConditionEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("events", cel.ListType(cel.StringType)),
	)
}

func compileCondition(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program for condition %q: %w", expr, err)
	}
	return prg, nil
}

func evalCondition(prg cel.Program, f Facts) (bool, error) {
	events := make([]string, len(f.Events))
	copy(events, f.Events)

	out, _, err := prg.Eval(map[string]interface{}{
		"ctx":    activation(f.Context.Scheduling),
		"events": events,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out.Value())
	}
	return b, nil
}

// activation exposes every recognized key, missing ones as zero values,
// so expressions never fail on absent keys.
func activation(s models.SchedulingContext) map[string]interface{} {
	slots := make(map[string]interface{}, len(s.SlotsByDate))
	for date, times := range s.SlotsByDate {
		list := make([]interface{}, len(times))
		for i, t := range times {
			list[i] = t
		}
		slots[date] = list
	}
	listed := make([]interface{}, len(s.LastListedResources))
	for i, r := range s.LastListedResources {
		listed[i] = map[string]interface{}{
			"id":          r.ID,
			"displayName": r.DisplayName,
			"locationId":  r.LocationID,
		}
	}
	locations := make([]interface{}, len(s.LastListedLocations))
	for i, l := range s.LastListedLocations {
		locations[i] = map[string]interface{}{"id": l.ID, "name": l.Name}
	}
	return map[string]interface{}{
		"selectedLocationId":  s.SelectedLocationID,
		"selectedResourceId":  s.SelectedResourceID,
		"selectedDateYmd":     s.SelectedDateYmd,
		"slotsByDate":         slots,
		"slotsResourceId":     s.SlotsResourceID,
		"slotsLocationId":     s.SlotsLocationID,
		"lastListedResources": listed,
		"lastListedLocations": locations,
	}
}
