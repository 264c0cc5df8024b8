package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventExpenseCreated = "expense:created"
	EventExpenseUpdated = "expense:updated"
	EventExpenseDeleted = "expense:deleted"
	EventIncomeCreated  = "income:created"
	EventIncomeDeleted  = "income:deleted"
)

// RecordEventMessage is a lightweight notification that a record changed.
// Consumers fetch the full row from the API if they need it.
type RecordEventMessage struct {
	Event     string    `json:"event"`
	ID        int64     `json:"id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEventMessage(event string, id int64, month, year int) *RecordEventMessage {
	return &RecordEventMessage{
		Event:     event,
		ID:        id,
		Month:     month,
		Year:      year,
		Timestamp: time.Now(),
	}
}

func (m *RecordEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordEventMessageFromJSON(data []byte) (*RecordEventMessage, error) {
	var msg RecordEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DuplicationEventMessage announces a completed installment rollover from
// one period into the next.
type DuplicationEventMessage struct {
	SourceMonth int       `json:"source_month"`
	SourceYear  int       `json:"source_year"`
	TargetMonth int       `json:"target_month"`
	TargetYear  int       `json:"target_year"`
	Count       int       `json:"count"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewDuplicationEventMessage(sourceMonth, sourceYear, targetMonth, targetYear, count int) *DuplicationEventMessage {
	return &DuplicationEventMessage{
		SourceMonth: sourceMonth,
		SourceYear:  sourceYear,
		TargetMonth: targetMonth,
		TargetYear:  targetYear,
		Count:       count,
		Timestamp:   time.Now(),
	}
}

func (m *DuplicationEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DuplicationEventMessageFromJSON(data []byte) (*DuplicationEventMessage, error) {
	var msg DuplicationEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
