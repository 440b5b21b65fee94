package tools

import (
	"strings"

	"github.com/spf13/cast"
)

// aliases maps every historical parameter name to its canonical key.
var aliases = map[string]string{
	"professionalId":  "resourceId",
	"doctorId":        "resourceId",
	"resource_id":     "resourceId",
	"professional_id": "resourceId",
	"branchId":        "locationId",
	"sucursalId":      "locationId",
	"location_id":     "locationId",
	"branch_id":       "locationId",
	"date":            "dateYmd",
	"fecha":           "dateYmd",
	"date_ymd":        "dateYmd",
	"time":            "timeHhmm",
	"hora":            "timeHhmm",
	"startTime":       "timeHhmm",
	"time_hhmm":       "timeHhmm",
	"phone":           "contactPhone",
	"telefono":        "contactPhone",
	"contact_phone":   "contactPhone",
	"contact":         "contactData",
	"patient":         "contactData",
	"paciente":        "contactData",
	"appointmentId":   "bookingId",
	"booking_id":      "bookingId",
	"appointment_id":  "bookingId",
	"newDate":         "newDateYmd",
	"new_date":        "newDateYmd",
	"newTimeHhmm":     "newTime",
	"new_time":        "newTime",
	"name":            "searchName",
	"search":          "searchName",
	"chair_id":        "chairId",
	"boxId":           "chairId",
}

// toolAliasExempt lists tools whose own parameters collide with an alias.
var toolAliasExempt = map[string]map[string]bool{
	FindContact: {"phone": true},
}

// Args is a tool's argument bag after alias normalization.
type Args map[string]interface{}

// normalize folds aliases into canonical keys. A canonical key present in raw wins.
func normalize(tool string, raw map[string]interface{}) Args {
	out := make(Args, len(raw))
	for k, v := range raw {
		if _, isAlias := aliases[k]; !isAlias || toolAliasExempt[tool][k] {
			out[k] = v
		}
	}
	for k, v := range raw {
		canonical, isAlias := aliases[k]
		if !isAlias || toolAliasExempt[tool][k] {
			continue
		}
		if _, taken := out[canonical]; !taken {
			out[canonical] = v
		}
	}
	return out
}

// String returns the argument as a trimmed string. Numbers are formatted without exponent.
func (a Args) String(key string) string {
	v, err := cast.ToStringE(a[key])
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// Int returns a numeric argument, accepting numeric strings.
func (a Args) Int(key string) (int, bool) {
	v, present := a[key]
	if !present || v == nil {
		return 0, false
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
	}
	n, err := cast.ToIntE(v)
	return n, err == nil
}

// Object returns a nested object argument as Args.
func (a Args) Object(key string) Args {
	m, err := cast.ToStringMapE(a[key])
	if err != nil || a[key] == nil {
		return nil
	}
	return Args(m)
}
