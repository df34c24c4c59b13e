// Package wsrelay publishes stream progress to websocket clients.
package wsrelay

import (
	"github.com/nghyane/llm-wire/internal/json"
)

// Message represents the JSON payload exchanged with websocket clients.
type Message struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

const (
	// MessageTypeStreamStart marks the beginning of a replay.
	MessageTypeStreamStart = "stream_start"
	// MessageTypeEvent carries one parser event.
	MessageTypeEvent = "event"
	// MessageTypeSnapshot carries the message as assembled so far.
	MessageTypeSnapshot = "snapshot"
	// MessageTypeStreamEnd carries the final message.
	MessageTypeStreamEnd = "stream_end"
	// MessageTypeError carries an error response.
	MessageTypeError = "error"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// ErrorPayload is the payload of MessageTypeError.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Encode marshals m.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a client message. Unknown fields are ignored.
func Decode(data []byte) (Message, error) {
	var m Message
	err := json.Unmarshal(data, &m)
	return m, err
}
