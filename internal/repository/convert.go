package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"bizdash/internal/core"

	"github.com/shopspring/decimal"
)

// Rows come back from every backend as nil, string, bool, int64, float64 or
// time.Time. The helpers below turn them into domain values and fail soft:
// a malformed column yields the zero value rather than an error.

func str(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	return fmt.Sprint(v)
}

func strPtr(v any) *string {
	s := str(v)
	if s == "" {
		return nil
	}
	return &s
}

func dec(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err == nil {
			return d
		}
	case int64:
		return decimal.NewFromInt(x)
	case float64:
		return decimal.NewFromFloat(x)
	case decimal.Decimal:
		return x
	}
	return decimal.Zero
}

func date(v any) core.Date {
	switch x := v.(type) {
	case string:
		if d, err := core.ParseDate(x); err == nil {
			return d
		}
	case time.Time:
		return core.DateOf(x.UTC())
	}
	return core.Date{}
}

func datePtr(v any) *core.Date {
	d := date(v)
	if d.IsZero() {
		return nil
	}
	return &d
}

func timestamp(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func boolean(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	}
	return false
}

// Tags are stored as a comma separated list.
func tags(v any) []string {
	s := str(v)
	if s == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func joinTags(t []string) any {
	if len(t) == 0 {
		return nil
	}
	return strings.Join(t, ",")
}

func optString(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

func optDate(d *core.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return *d
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
