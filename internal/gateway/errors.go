package gateway

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")

// CommandError is a failure reported by the backend itself. Its message is
// the backend's error string and is shown to the user as is.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

// ParseErrorBody turns a failed command's payload into a CommandError. The
// backend either sends a bare string, a JSON string, or {"error": "..."}.
func ParseErrorBody(command string, body []byte) *CommandError {
	msg := strings.TrimSpace(string(body))
	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		msg = s
	} else {
		var obj struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &obj); err == nil {
			if obj.Error != "" {
				msg = obj.Error
			} else if obj.Message != "" {
				msg = obj.Message
			}
		}
	}
	if msg == "" {
		msg = command + " failed"
	}
	return &CommandError{Command: command, Message: msg}
}

// IsCommandError reports whether err came from the backend rather than the
// transport.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
