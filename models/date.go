package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// DateOnly is a calendar date: a MySQL DATE column in the database and a
// "YYYY-MM-DD" string in JSON payloads. The backing time.Time is always
// UTC midnight so date equality is plain == on the wrapped value.
type DateOnly time.Time

func NewDateOnly(t time.Time) DateOnly {
	return DateOnly(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC))
}

func ParseDateOnly(s string) (DateOnly, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOnly(t), nil
}

func (d DateOnly) Time() time.Time {
	return time.Time(d)
}

func (d DateOnly) String() string {
	return time.Time(d).Format(DateLayout)
}

func (d DateOnly) IsZero() bool {
	return time.Time(d).IsZero()
}

// AddDays returns the date n calendar days later (negative n goes back).
func (d DateOnly) AddDays(n int) DateOnly {
	return NewDateOnly(time.Time(d).AddDate(0, 0, n))
}

func (d DateOnly) Before(other DateOnly) bool {
	return time.Time(d).Before(time.Time(other))
}

func (d DateOnly) After(other DateOnly) bool {
	return time.Time(d).After(time.Time(other))
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if time.Time(d).IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.String())), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*d = DateOnly{}
		return nil
	}
	parsed, err := ParseDateOnly(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements the driver.Valuer interface
func (d DateOnly) Value() (driver.Value, error) {
	return time.Time(d), nil
}

// Scan implements the sql.Scanner interface
func (d *DateOnly) Scan(value interface{}) error {
	if value == nil {
		*d = DateOnly(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*d = NewDateOnly(v)
	case []byte:
		parsed, err := ParseDateOnly(string(v))
		if err != nil {
			return err
		}
		*d = parsed
	case string:
		parsed, err := ParseDateOnly(v)
		if err != nil {
			return err
		}
		*d = parsed
	default:
		return fmt.Errorf("cannot convert %T to DateOnly", value)
	}
	return nil
}

func DateOnlyPtr(d DateOnly) *DateOnly {
	return &d
}
