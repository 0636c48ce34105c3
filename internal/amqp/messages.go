package amqp

import (
	"encoding/json"
	"time"
)

// Actions carried by BillsChangedMessage.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionPDF    = "pdf"
	ActionConfig = "config"
)

// BillsChangedMessage tells the export worker that the bill set changed.
// It carries no bill data; the worker reads the current bills itself.
type BillsChangedMessage struct {
	Action    string    `json:"action"`
	SerialNo  int       `json:"serialNo,omitempty"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBillsChangedMessage stamps a message with the current time.
func NewBillsChangedMessage(action string, serialNo int, version int64) *BillsChangedMessage {
	return &BillsChangedMessage{
		Action:    action,
		SerialNo:  serialNo,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BillsChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BillsChangedMessageFromJSON decodes a message body.
func BillsChangedMessageFromJSON(data []byte) (*BillsChangedMessage, error) {
	var msg BillsChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
