package paper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PubDate represents a publication date with optional month and day.
// A zero PubDate means the date is unknown.
type PubDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"` // 1-12, 0 if unknown
	Day   int `json:"day,omitempty"`   // 1-31, 0 if unknown
}

// IsZero reports whether the date is unset.
func (d PubDate) IsZero() bool {
	return d.Year == 0
}

// String renders the date at its given precision: "2025-03-08", "2025-03",
// or "2025". An unset date renders as "".
func (d PubDate) String() string {
	switch {
	case d.Year == 0:
		return ""
	case d.Month == 0:
		return strconv.Itoa(d.Year)
	case d.Day == 0:
		return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
	}
}

// Before reports whether d is strictly before other. Missing month/day
// components compare as the earliest possible value.
func (d PubDate) Before(other PubDate) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// DateOf builds a full-precision PubDate from a time.Time.
func DateOf(t time.Time) PubDate {
	return PubDate{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// ParseDate parses "YYYY", "YYYY-MM", or "YYYY-MM-DD" into a PubDate.
// Out-of-range month/day components are dropped rather than rejected.
func ParseDate(s string) PubDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return PubDate{}
	}

	parts := strings.SplitN(s, "-", 3)
	var d PubDate
	if y, err := strconv.Atoi(parts[0]); err == nil {
		d.Year = y
	} else {
		return PubDate{}
	}
	if len(parts) >= 2 {
		if m, err := strconv.Atoi(parts[1]); err == nil && m >= 1 && m <= 12 {
			d.Month = m
		}
	}
	if len(parts) >= 3 && d.Month != 0 {
		if day, err := strconv.Atoi(parts[2]); err == nil && day >= 1 && day <= 31 {
			d.Day = day
		}
	}
	return d
}
