package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"bizdash/internal/amqp"
	"bizdash/internal/log"
	"bizdash/internal/report"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls []report.Request
	total decimal.Decimal
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, req report.Request) (report.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return report.Report{}, f.err
	}
	return report.Report{TotalIncome: f.total, NetIncome: f.total}, nil
}

func (f *fakeFetcher) call(i int) report.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeFetcher) set(total string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.total = decimal.RequireFromString(total)
	f.err = err
}

func startHub(t *testing.T, fetcher ReportFetcher) (*Hub, *websocket.Conn) {
	t.Helper()
	logger := log.FromSlog(slog.New(slog.NewTextHandler(io.Discard, nil)), log.ComponentLive)
	hub := NewHub(fetcher, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		srv.Close()
	})

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return hub, conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestFilterSendsReport(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set("150", nil)
	_, conn := startHub(t, fetcher)

	if err := conn.WriteJSON(Filter{Period: "custom", Start: "2024-01-01", End: "2024-01-31"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != TypeReport || msg.Report == nil {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !msg.Report.TotalIncome.Equal(decimal.NewFromInt(150)) {
		t.Errorf("total income = %v", msg.Report.TotalIncome)
	}
	if msg.Generation != 1 {
		t.Errorf("generation = %d, want 1", msg.Generation)
	}
	if got := fetcher.call(0); got.Period != report.Custom || got.Start.String() != "2024-01-01" {
		t.Errorf("request = %+v", got)
	}
}

func TestInvalidFilterNotifies(t *testing.T) {
	fetcher := &fakeFetcher{}
	_, conn := startHub(t, fetcher)

	if err := conn.WriteJSON(Filter{Period: "fortnight"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != TypeError || msg.Notification == nil || msg.Notification.Type != "error" {
		t.Fatalf("unexpected message %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	if msg := read(t, conn); msg.Type != TypeError {
		t.Fatalf("unexpected message %+v", msg)
	}

	// The end defaults to this month's end, which is before the start.
	if err := conn.WriteJSON(Filter{Period: "custom", Start: "2999-01-01"}); err != nil {
		t.Fatal(err)
	}
	if msg := read(t, conn); msg.Type != TypeError || msg.Report != nil {
		t.Fatalf("unexpected message %+v", msg)
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.calls) != 0 {
		t.Fatalf("fetcher called for invalid filters: %+v", fetcher.calls)
	}
}

func TestRecordChangeBroadcastsAndRefreshes(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set("100", nil)
	hub, conn := startHub(t, fetcher)

	if err := conn.WriteJSON(Filter{Period: "this_month"}); err != nil {
		t.Fatal(err)
	}
	read(t, conn)

	fetcher.set("250", nil)
	change := amqp.NewRecordChangedMessage("transactions", "delete", "tx-1", "u1")
	if err := hub.PublishRecordChanged(context.Background(), change); err != nil {
		t.Fatal(err)
	}

	msg := read(t, conn)
	if msg.Type != TypeRecordChanged || msg.Change == nil || msg.Change.ID != "tx-1" {
		t.Fatalf("unexpected change message %+v", msg)
	}
	msg = read(t, conn)
	if msg.Type != TypeReport || !msg.Report.TotalIncome.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected refresh %+v", msg)
	}
}

func TestFetchFailureKeepsLastReport(t *testing.T) {
	fetcher := &fakeFetcher{}
	fetcher.set("80", nil)
	_, conn := startHub(t, fetcher)

	if err := conn.WriteJSON(Filter{Period: "this_month"}); err != nil {
		t.Fatal(err)
	}
	read(t, conn)

	fetcher.set("0", errors.New("remote down"))
	if err := conn.WriteJSON(Filter{Period: "last_month"}); err != nil {
		t.Fatal(err)
	}
	msg := read(t, conn)
	if msg.Type != TypeError || msg.Notification == nil {
		t.Fatalf("expected an error notification, got %+v", msg)
	}
	if msg.Report == nil || !msg.Report.TotalIncome.Equal(decimal.NewFromInt(80)) {
		t.Errorf("previous report should be kept, got %+v", msg.Report)
	}
}

func TestFilterRequest(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		want    report.Period
		wantErr bool
	}{
		{"default period", Filter{}, report.ThisMonth, false},
		{"known period", Filter{Period: "last_year"}, report.LastYear, false},
		{"unknown period", Filter{Period: "week"}, "", true},
		{"bad date", Filter{Period: "custom", Start: "01/02/2024"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := tt.filter.Request()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if req.Period != tt.want {
				t.Errorf("period = %v, want %v", req.Period, tt.want)
			}
		})
	}
}
