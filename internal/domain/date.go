package domain

import (
	"encoding/json"
	"time"
)

// DateLayout calendar date format used by every date field.
const DateLayout = "2006-01-02"

// Date calendar day in DateLayout. The backend sometimes answers with full
// RFC3339 timestamps; they are cut down to the day on decode.
type Date string

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		s = t.UTC().Format(DateLayout)
	}
	*d = Date(s)
	return nil
}

// String returns the string representation.
func (d Date) String() string {
	return string(d)
}

// Time parses the date, returning the zero time for empty or malformed values.
func (d Date) Time() time.Time {
	t, err := time.Parse(DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Today returns the current day.
func Today() Date {
	return Date(time.Now().Format(DateLayout))
}
