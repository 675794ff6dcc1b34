package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical record key layout (DD/MM/YYYY).
const DateLayout = "02/01/2006"

var strictDatePattern = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// Now is the clock used by Today. Tests may replace it.
var Now = time.Now

// FormatDate renders t as DD/MM/YYYY with zero padded day and month.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%02d/%02d/%04d", t.Day(), int(t.Month()), t.Year())
}

// ParseDate splits s on "/" into day, month and year. It fails when s does not
// have exactly three unsigned numeric parts. Out of range values are
// normalised the way time.Date does (31/02 becomes 3 March), use IsValidDate
// to reject them.
func ParseDate(s string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		if !isDigits(p) {
			return time.Time{}, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	return time.Date(nums[2], time.Month(nums[1]), nums[0], 0, 0, 0, 0, time.UTC), true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseCalendarDate is ParseDate without normalisation: the parts must name
// an existing day. Zero padding is not required.
func parseCalendarDate(s string) (time.Time, bool) {
	t, ok := ParseDate(s)
	if !ok {
		return time.Time{}, false
	}
	parts := strings.Split(strings.TrimSpace(s), "/")
	day, _ := strconv.Atoi(parts[0])
	month, _ := strconv.Atoi(parts[1])
	year, _ := strconv.Atoi(parts[2])
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// IsValidDate reports whether s is a real calendar date in DD/MM/YYYY form.
func IsValidDate(s string) bool {
	if !strictDatePattern.MatchString(s) {
		return false
	}
	_, ok := parseCalendarDate(s)
	return ok
}

// Today returns the current date formatted with FormatDate.
func Today() string {
	return FormatDate(Now())
}

// MonthKey identifies a calendar month as "YYYY-MM".
type MonthKey struct {
	Year  int
	Month time.Month
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return MonthKey{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

// MonthKeyOf returns the month containing t.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// Contains reports whether t falls within the month.
func (k MonthKey) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}
