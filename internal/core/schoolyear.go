package core

import "time"

// BucketCount is the number of school-year months, September through June.
const BucketCount = 10

// BucketLabels are the short month names in school-year order.
var BucketLabels = [BucketCount]string{"Sept", "Oct", "Nov", "Déc", "Jan", "Fév", "Mar", "Avr", "Mai", "Juin"}

// BucketIndex maps a zero-based calendar month (0 = January) to its
// school-year slot. July and August have no slot.
func BucketIndex(month int) (int, bool) {
	var idx int
	if month >= 8 {
		idx = month - 8
	} else {
		idx = month + 4
	}
	if month < 0 || month > 11 || idx < 0 || idx >= BucketCount {
		return -1, false
	}
	return idx, true
}

// BucketIndexOf returns the slot of the month containing t.
func BucketIndexOf(t time.Time) (int, bool) {
	return BucketIndex(int(t.Month()) - 1)
}

// BucketLabel returns the label of slot i, or "" when out of range.
func BucketLabel(i int) string {
	if i < 0 || i >= BucketCount {
		return ""
	}
	return BucketLabels[i]
}

// SchoolYearOf returns the calendar year the school year containing t started
// in. September to December start a new school year; July and August belong
// to none.
func SchoolYearOf(t time.Time) (int, bool) {
	if _, ok := BucketIndexOf(t); !ok {
		return 0, false
	}
	if t.Month() >= time.September {
		return t.Year(), true
	}
	return t.Year() - 1, true
}
