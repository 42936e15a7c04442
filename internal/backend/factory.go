package backend

import (
	"context"
	"fmt"

	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/gateway/amqprpc"
	"ledgerdesk/internal/gateway/cached"
	"ledgerdesk/internal/gateway/invoke"
	"ledgerdesk/internal/gateway/memory"
	"ledgerdesk/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new gateway factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	return &DefaultFactory{
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBackend),
	}
}

// CreateGateway implements Factory.CreateGateway
func (f *DefaultFactory) CreateGateway(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case MemoryBackend:
		res = f.createMemoryGateway(config)
	case InvokeBackend:
		res, err = f.createInvokeGateway(config)
	case AMQPBackend:
		res, err = f.createAMQPGateway(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.CacheTTL > 0 {
		res.Gateway = cached.New(res.Gateway, config.CacheSize, config.CacheTTL, f.logger)
		f.logger.InfoContext(ctx, "Gateway caching enabled",
			"ttl", config.CacheTTL.String(),
			"size", config.CacheSize)
	}
	return res, nil
}

func (f *DefaultFactory) createMemoryGateway(config Config) *Result {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)
	return &Result{Gateway: store}
}

func (f *DefaultFactory) createInvokeGateway(config Config) (*Result, error) {
	client, err := invoke.NewClient(config.GatewayURL, config.GatewayTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize invoke client: %w", err)
	}

	f.logger.Info("Initialized invoke backend", "url", config.GatewayURL)
	return &Result{Gateway: gateway.New(client, f.logger)}, nil
}

func (f *DefaultFactory) createAMQPGateway(config Config) (*Result, error) {
	client, err := amqprpc.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.Info("Initialized AMQP backend",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return &Result{
		Gateway: gateway.New(client, f.logger),
		Cleanup: client.Close,
	}, nil
}
