package storage

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"time"
)

// Normalize reduces a Go value to one of the store's canonical kinds:
// nil, string, bool, int64, float64 or time.Time. Values implementing
// driver.Valuer (decimals, calendar dates) are stored as their driver value.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64:
		return x
	case time.Time:
		return x.UTC()
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	}
	if valuer, ok := v.(driver.Valuer); ok {
		val, err := valuer.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return Normalize(val)
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String()
	}
	return v
}
