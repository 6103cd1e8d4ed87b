package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Routing keys. Export jobs are routed by the queue name instead.
const (
	RoutingRecordChanged = "record.changed"
)

// RecordChangedMessage announces a successful write to a bookkeeping table.
// Consumers refetch the row if they need it.
type RecordChangedMessage struct {
	Table     string    `json:"table"`
	Op        string    `json:"op"`
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChangedMessage(table, op, id, userID string) *RecordChangedMessage {
	return &RecordChangedMessage{
		Table:     table,
		Op:        op,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportExportMessage asks the report worker to compute a report and append
// it to the export spreadsheet. Start and End are only read for the custom
// period and use YYYY-MM-DD.
type ReportExportMessage struct {
	JobID       string    `json:"job_id"`
	Period      string    `json:"period"`
	Start       string    `json:"start,omitempty"`
	End         string    `json:"end,omitempty"`
	Locale      string    `json:"locale,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewReportExportMessage(period, start, end string) *ReportExportMessage {
	return &ReportExportMessage{
		JobID:       uuid.NewString(),
		Period:      period,
		Start:       start,
		End:         end,
		RequestedAt: time.Now(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Period == "" {
		return nil, fmt.Errorf("export message %q has no period", msg.JobID)
	}
	return &msg, nil
}
