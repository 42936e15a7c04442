package amqprpc

import (
	"encoding/json"
	"time"
)

// Request is the body of a command published to the command queue.
type Request struct {
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
	SentAt  time.Time       `json:"sent_at"`
}

// Reply is the body published to the caller's reply queue. Exactly one of
// Result or Error is meaningful.
type Reply struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// NewRequest marshals args into a request for command.
func NewRequest(command string, args any) (*Request, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return &Request{Command: command, Args: raw, SentAt: time.Now()}, nil
}

// ToJSON converts the message to JSON bytes
func (m *Request) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RequestFromJSON creates a request from JSON bytes
func RequestFromJSON(data []byte) (*Request, error) {
	var msg Request
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON converts the message to JSON bytes
func (m *Reply) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReplyFromJSON creates a reply from JSON bytes
func ReplyFromJSON(data []byte) (*Reply, error) {
	var msg Reply
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
