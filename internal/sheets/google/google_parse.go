package google

import (
	"fmt"
	"strings"

	"cantine/internal/core"
	"cantine/internal/csvio"
)

type rowErrors []csvio.RowError

func (e rowErrors) Error() string {
	return fmt.Sprintf("%d unreadable rows, first: %v", len(e), e[0])
}

// parseRecords converts a values matrix (as returned by the Sheets API) into
// records. Good rows are always returned; bad ones are reported as rowErrors.
func parseRecords(values [][]interface{}) ([]core.DailyRecord, error) {
	if len(values) == 0 {
		return []core.DailyRecord{}, nil
	}
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = toStrings(v)
	}
	res, err := csvio.ParseRows(rows)
	if err != nil {
		return nil, fmt.Errorf("unexpected sheet header: %w; got headers=%v", err, rows[0])
	}

	seen := make(map[string]bool, len(res.Records))
	out := make([]core.DailyRecord, 0, len(res.Records))
	for _, r := range res.Records {
		if seen[r.Date] {
			continue
		}
		seen[r.Date] = true
		r.Derive()
		out = append(out, r)
	}
	if len(res.Errors) > 0 {
		return out, rowErrors(res.Errors)
	}
	return out, nil
}

// findRow returns the 1-based sheet row whose first cell is date, 0 if none.
// The header row is never matched.
func findRow(values [][]interface{}, date string) int {
	for i := 1; i < len(values); i++ {
		if len(values[i]) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(values[i][0])) == date {
			return i + 1
		}
	}
	return 0
}

func headerValues() []interface{} {
	h := core.Headers()
	out := make([]interface{}, len(h))
	for i, v := range h {
		out[i] = v
	}
	return out
}

// recordValues renders rec in header order. Missing values are empty cells so
// a rewrite clears stale numbers.
func recordValues(rec *core.DailyRecord) []interface{} {
	out := make([]interface{}, 0, len(core.Fields)+1)
	out = append(out, rec.Date)
	for _, f := range core.Fields {
		if v := f.Get(rec); v != nil {
			out = append(out, *v)
		} else {
			out = append(out, "")
		}
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// columnName turns a 1-based column number into its A1 letters.
func columnName(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
