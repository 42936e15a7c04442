// Package backend builds the Command Gateway selected by configuration.
package backend

import (
	"context"
	"time"

	"ledgerdesk/internal/gateway"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the gateway instance and optional cleanup function
type Result struct {
	Gateway gateway.Gateway
	Cleanup CleanupFunc
}

// Close runs Cleanup if present.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates gateways based on configuration
type Factory interface {
	CreateGateway(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for gateway creation
type Config struct {
	Type Type

	// Invoke bridge
	GatewayURL     string
	GatewayTimeout time.Duration

	// AMQP request/reply
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend
	DataDirectory string

	// Caching decorator; a zero TTL disables it
	CacheTTL  time.Duration
	CacheSize int
}

// Type represents the kind of transport behind the gateway
type Type string

const (
	MemoryBackend Type = "memory"
	InvokeBackend Type = "invoke"
	AMQPBackend   Type = "amqp"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, InvokeBackend, AMQPBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{MemoryBackend, InvokeBackend, AMQPBackend}
}

// TypeStrings returns all valid backend type strings
func TypeStrings() []string {
	types := Types()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
