package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// DatasetRefreshedMessage announces that the mirrored dataset was replaced.
// Receivers reload the dataset from their own source; the message carries
// counts only.
type DatasetRefreshedMessage struct {
	Source       string    `json:"source"`
	Customers    int       `json:"customers"`
	Transactions int       `json:"transactions"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewDatasetRefreshedMessage stamps a message with the current time.
func NewDatasetRefreshedMessage(source string, customers, transactions int) *DatasetRefreshedMessage {
	return &DatasetRefreshedMessage{
		Source:       source,
		Customers:    customers,
		Transactions: transactions,
		Timestamp:    time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetRefreshedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetRefreshedMessageFromJSON decodes and checks a message body.
func DatasetRefreshedMessageFromJSON(data []byte) (*DatasetRefreshedMessage, error) {
	var msg DatasetRefreshedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Source == "" {
		return nil, errors.New("missing source")
	}
	if msg.Customers < 0 || msg.Transactions < 0 {
		return nil, errors.New("negative record count")
	}
	return &msg, nil
}
