package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// Loopback is an Invoker that answers commands in process from a Gateway,
// going through the same JSON encoding a remote backend would.
type Loopback struct {
	Backend Gateway
}

func (l Loopback) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", command, err)
	}
	out, err := Dispatch(ctx, l.Backend, command, raw)
	if err != nil {
		return nil, &CommandError{Command: command, Message: err.Error()}
	}
	return out, nil
}
