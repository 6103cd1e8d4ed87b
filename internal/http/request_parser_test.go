package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bizdash/internal/core"
	"bizdash/internal/report"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		fail    bool
	}{
		{name: "object", body: `{"name":"Ana"}`},
		{name: "empty body", body: ``, wantErr: errEmptyBody, fail: true},
		{name: "malformed", body: `{"name":`, fail: true},
		{name: "trailing value", body: `{"name":"Ana"} {}`, fail: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst struct {
				Name string `json:"name"`
			}
			err := DecodeJSON(req, &dst)
			if (err != nil) != tt.fail {
				t.Fatalf("err = %v, fail %v", err, tt.fail)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !tt.fail && dst.Name != "Ana" {
				t.Fatalf("name = %q", dst.Name)
			}
		})
	}
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{
		"active": {"true"},
		"broken": {"yes please"},
		"limit":  {"25"},
		"neg":    {"-3"},
		"search": {"  caf\x00é \t"},
	}
	if !QueryBool(q, "active", false) || !QueryBool(q, "broken", true) || QueryBool(q, "missing", false) {
		t.Error("QueryBool")
	}
	if QueryInt(q, "limit", 0) != 25 || QueryInt(q, "neg", 10) != 10 || QueryInt(q, "missing", 7) != 7 {
		t.Error("QueryInt")
	}
	if got := QueryString(q, "search"); got != "café" {
		t.Errorf("QueryString = %q", got)
	}
}

func TestQueryRange(t *testing.T) {
	tests := []struct {
		name    string
		q       url.Values
		wantNil bool
		wantErr bool
	}{
		{name: "absent", q: url.Values{}, wantNil: true},
		{name: "both", q: url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}}},
		{name: "only start", q: url.Values{"start": {"2024-01-01"}}, wantErr: true},
		{name: "bad end", q: url.Values{"start": {"2024-01-01"}, "end": {"31/01/2024"}}, wantErr: true},
		{name: "reversed", q: url.Values{"start": {"2024-02-01"}, "end": {"2024-01-01"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := QueryRange(tt.q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if (rng == nil) != tt.wantNil {
				t.Fatalf("range = %v, wantNil %v", rng, tt.wantNil)
			}
			if rng != nil && rng.End.String() != "2024-01-31" {
				t.Fatalf("end = %s", rng.End)
			}
		})
	}
	_, err := QueryRange(url.Values{"start": {"2024-02-01"}, "end": {"2024-01-01"}})
	if !errors.Is(err, core.ErrInvalidDateRange) {
		t.Fatalf("reversed err = %v", err)
	}
}

func TestParseReportQuery(t *testing.T) {
	req, err := ParseReportQuery(url.Values{"period": {"last_month"}})
	if err != nil || req.Period != report.LastMonth {
		t.Fatalf("req = %+v err = %v", req, err)
	}
	if _, err := ParseReportQuery(url.Values{"period": {"someday"}}); err == nil {
		t.Fatal("expected error for unknown period")
	}
}

func TestParseAmountJSON(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `12.5`, want: "12.5"},
		{raw: `"12,50"`, want: "12.5"},
		{raw: `"0"`, want: "0"},
		{raw: `"-3"`, wantErr: true},
		{raw: `"abc"`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAmountJSON(json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, core.ErrInvalidAmount) {
				t.Errorf("%s: err = %v, want ErrInvalidAmount", tt.raw, err)
			}
			continue
		}
		if got.String() != tt.want {
			t.Errorf("%s: got %s, want %s", tt.raw, got, tt.want)
		}
	}
}
