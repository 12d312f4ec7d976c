package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentSyncMessage announces that a stored document reached a new version.
// The consumer reads the document itself; the message carries only its address.
type DocumentSyncMessage struct {
	MessageID  string    `json:"messageId"`
	UserID     string    `json:"userId"`
	Collection string    `json:"collection"`
	DocID      string    `json:"docId"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewDocumentSyncMessage(userID, collection, docID string, version int64) *DocumentSyncMessage {
	return &DocumentSyncMessage{
		MessageID:  uuid.NewString(),
		UserID:     userID,
		Collection: collection,
		DocID:      docID,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

func (m *DocumentSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DocumentSyncMessageFromJSON decodes a message and rejects ones without an address.
func DocumentSyncMessageFromJSON(data []byte) (*DocumentSyncMessage, error) {
	var msg DocumentSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Collection == "" || msg.DocID == "" {
		return nil, fmt.Errorf("document sync message %s: missing document address", msg.MessageID)
	}
	return &msg, nil
}
