package dto

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/baechuer/real-time-ressys/services/ewm-service/internal/transport/http/validate"
)

// DateTime is a UTC timestamp serialized as "2006-01-02 15:04:05".
type DateTime struct{ time.Time }

func NewDateTime(t time.Time) DateTime { return DateTime{t.UTC()} }

func NewDateTimePtr(t *time.Time) *DateTime {
	if t == nil {
		return nil
	}
	d := NewDateTime(*t)
	return &d
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(validate.DateTimeLayout))
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.ParseInLocation(validate.DateTimeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("datetime %q: want %s", s, validate.DateTimeLayout)
	}
	d.Time = t
	return nil
}
