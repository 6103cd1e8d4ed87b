// This file implements parsing of request bodies and query strings.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"bizdash/internal/core"
	"bizdash/internal/report"
)

var errEmptyBody = errors.New("request body is empty")

// DecodeJSON reads a single JSON value from the body into dst.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: unexpected data after JSON value")
	}
	return nil
}

// ParseReportQuery reads period, start and end from the query string.
func ParseReportQuery(q url.Values) (report.Request, error) {
	return report.ParseRequest(q.Get("period"), q.Get("start"), q.Get("end"))
}

// QueryBool reads a boolean parameter; anything unparsable is def.
func QueryBool(q url.Values, key string, def bool) bool {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// QueryInt reads a non-negative integer parameter; anything else is def.
func QueryInt(q url.Values, key string, def int) int {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// QueryString reads and sanitizes a text parameter.
func QueryString(q url.Values, key string) string {
	return sanitizeInput(q.Get(key))
}

// QueryRange reads optional start and end dates. Both missing is nil.
func QueryRange(q url.Values) (*core.Range, error) {
	start, end := strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end"))
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, errors.New("start and end must be given together")
	}
	s, err := core.ParseDate(start)
	if err != nil {
		return nil, fmt.Errorf("invalid start %q", start)
	}
	e, err := core.ParseDate(end)
	if err != nil {
		return nil, fmt.Errorf("invalid end %q", end)
	}
	if e.Before(s.Time) {
		return nil, core.ErrInvalidDateRange
	}
	return &core.Range{Start: s, End: e}, nil
}

// parseAmountJSON reads an amount given as a JSON number or as a string
// with a dot or comma decimal separator.
func parseAmountJSON(raw json.RawMessage) (decimal.Decimal, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return decimal.Zero, core.ErrInvalidAmount
	}
	if strings.HasPrefix(text, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, core.ErrInvalidAmount
		}
		text = str
	}
	return core.ParseAmount(text)
}
