package httpx

import (
	"net/url"
	"strings"
	"time"

	"github.com/mayondo/mwf/internal/shared"
)

// DateLayout is the calendar date format accepted in queries and bodies.
const DateLayout = "2006-01-02"

// ParseDateRange reads the optional from/to query parameters in loc. Missing
// bounds stay zero.
func ParseDateRange(q url.Values, loc *time.Location) (from, to time.Time, err error) {
	var errs shared.ValidationErrors
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		if from, err = time.ParseInLocation(DateLayout, raw, loc); err != nil {
			errs.Add("from", "must be a date like 2024-01-31")
		}
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		if to, err = time.ParseInLocation(DateLayout, raw, loc); err != nil {
			errs.Add("to", "must be a date like 2024-01-31")
		}
	}
	if len(errs) == 0 && !from.IsZero() && !to.IsZero() && to.Before(from) {
		errs.Add("to", "must not be before from")
	}
	if err := errs.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// ParseDate parses a calendar date from a request body.
func ParseDate(field, raw string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, shared.ValidationError{Field: field, Message: "must be a date like 2024-01-31"}
	}
	return t, nil
}
