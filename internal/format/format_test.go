package format

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCurrencyDefaultsToBrazilianReal(t *testing.T) {
	got := Currency(decimal.RequireFromString("1234.56"), "")
	if !strings.HasPrefix(got, "R$") {
		t.Fatalf("expected R$ prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "1.234,56") {
		t.Fatalf("expected pt-BR grouping, got %q", got)
	}
}

func TestCurrencyRoundsAndSigns(t *testing.T) {
	got := Currency(decimal.RequireFromString("-10.005"), "BRL")
	if !strings.HasPrefix(got, "-R$") || !strings.HasSuffix(got, "10,01") {
		t.Fatalf("got %q", got)
	}
	if got := Currency(decimal.Zero, "BRL"); !strings.HasSuffix(got, "0,00") {
		t.Fatalf("zero should keep two decimals, got %q", got)
	}
}

func TestCurrencyKeepsLargeAmountsExact(t *testing.T) {
	// Beyond float64 precision.
	got := Currency(decimal.RequireFromString("12345678901234567890.12"), "BRL")
	if !strings.HasSuffix(got, " 12.345.678.901.234.567.890,12") {
		t.Fatalf("got %q", got)
	}
	got = New("en-US", "USD").Currency(decimal.RequireFromString("-90071992547409.93"), "")
	if !strings.HasPrefix(got, "-") || !strings.HasSuffix(got, " 90,071,992,547,409.93") {
		t.Fatalf("got %q", got)
	}
	if got := Currency(decimal.RequireFromString("999.999"), "BRL"); !strings.HasSuffix(got, " 1.000,00") {
		t.Fatalf("got %q", got)
	}
}

func TestCurrencyUnknownCode(t *testing.T) {
	got := Currency(decimal.NewFromInt(5), "xyz")
	if !strings.HasPrefix(got, "XYZ") {
		t.Fatalf("unknown code should be printed verbatim, got %q", got)
	}
}

func TestFormatterEnglish(t *testing.T) {
	f := New("en-US", "USD")
	got := f.Currency(decimal.RequireFromString("1234.5"), "")
	if !strings.HasSuffix(got, "1,234.50") {
		t.Fatalf("got %q", got)
	}
	if d := f.Date("2024-03-09"); d != "03/09/2024" {
		t.Fatalf("date = %q", d)
	}
}

func TestDate(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-03-09", "09/03/2024"},
		{"2024-12-31T23:59:59Z", "31/12/2024"},
		{"not a date", "not a date"},
		{"", ""},
		{"2024-13-01", "2024-13-01"},
	}
	for _, tc := range cases {
		if got := Date(tc.in); got != tc.want {
			t.Fatalf("Date(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewFallsBackOnBadLocale(t *testing.T) {
	f := New("!!", "")
	if f.currency != DefaultCurrency {
		t.Fatalf("currency = %s", f.currency)
	}
	if d := f.Date("2024-01-02"); d != "02/01/2024" {
		t.Fatalf("date = %q", d)
	}
}
