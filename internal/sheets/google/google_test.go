package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "s1"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "s1", CredentialsFile: "/non/existent/sa.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Reports", "2024 Reports"},
		{"  Reports ", "2024 Reports"},
		{"2023 Reports", "2023 Reports"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2024); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestAppendRows(t *testing.T) {
	var gotPath, gotInput string
	var gotValues [][]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInput = r.URL.Query().Get("valueInputOption")
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotValues = body.Values
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"s1","updates":{"updatedRange":"'2024 Reports'!A10:C11","updatedRows":2}}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "s1", SheetName: "Reports"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	ref, err := c.AppendRows(context.Background(), [][]any{{"Report", "last_month"}, {"Net income", "599.50"}})
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	if ref != "'2024 Reports'!A10:C11" {
		t.Errorf("ref = %q", ref)
	}
	if !strings.HasSuffix(gotPath, ":append") || !strings.Contains(gotPath, "/spreadsheets/s1/values/2024 Reports!A1") {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotInput != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q", gotInput)
	}
	if len(gotValues) != 2 || gotValues[1][1] != "599.50" {
		t.Errorf("values = %v", gotValues)
	}
}

func TestAppendRows_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"forbidden"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "s1"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AppendRows(context.Background(), [][]any{{"x"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAppendRows_AfterCreationContextEnds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spreadsheetId":"s1","updates":{"updatedRange":"'2024 Reports'!A1:A1","updatedRows":1}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c, err := New(ctx, Config{SpreadsheetID: "s1"}, nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	if _, err := c.AppendRows(context.Background(), [][]any{{"x"}}); err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
}

func TestAppendRows_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "s1", sheetBase: "Reports", now: time.Now}
	if _, err := c.AppendRows(context.Background(), [][]any{{"x"}}); err == nil {
		t.Fatal("expected error for uninitialized client")
	}
}
