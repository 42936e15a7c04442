// Package amqprpc carries gateway commands over RabbitMQ using the
// request/reply pattern: commands go to a durable queue behind a direct
// exchange and replies come back on a private, server-named queue matched
// by correlation id.
package amqprpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
)

const publishTimeout = 5 * time.Second

var ErrClosed = errors.New("amqp client closed")

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

type Client struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	queueName    string
	replyQueue   string
	logger       *log.Logger

	mu        sync.Mutex
	pending   map[string]chan *Reply
	closed    chan struct{}
	closeOnce sync.Once
}

var _ gateway.Invoker = (*Client)(nil)

// NewClient dials the broker, declares the command exchange and queue, and
// starts listening on a private reply queue.
func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchangeName, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	// Server-named, exclusive, auto-deleted: replies die with this process.
	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare reply queue: %w", err)
	}

	c := newClient(ch, exchangeName, queueName, replyQueue.Name, logger)
	c.conn = conn

	replies, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("consume reply queue: %w", err)
	}
	go c.readReplies(replies)

	c.logger.Info("AMQP gateway connected",
		"exchange", exchangeName,
		"queue", queueName,
		"reply_queue", replyQueue.Name)
	return c, nil
}

func newClient(ch channel, exchangeName, queueName, replyQueue string, logger *log.Logger) *Client {
	return &Client{
		channel:      ch,
		exchangeName: exchangeName,
		queueName:    queueName,
		replyQueue:   replyQueue,
		logger:       log.OrDiscard(logger).WithComponent(log.ComponentAMQP),
		pending:      make(map[string]chan *Reply),
		closed:       make(chan struct{}),
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		queueName,    // queue name
		queueName,    // routing key (same as queue name for direct exchange)
		exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Invoke publishes a command and waits for its reply or for ctx to end.
// A late reply for an abandoned request is dropped.
func (c *Client) Invoke(ctx context.Context, command string, args any) (json.RawMessage, error) {
	req, err := NewRequest(command, args)
	if err != nil {
		return nil, fmt.Errorf("encode %s arguments: %w", command, err)
	}
	body, err := req.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	correlationID := uuid.NewString()
	replyCh := make(chan *Reply, 1)
	c.mu.Lock()
	c.pending[correlationID] = replyCh
	c.mu.Unlock()
	defer c.forget(correlationID)

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = c.channel.PublishWithContext(
		pubCtx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			ReplyTo:       c.replyQueue,
			Type:          command,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("publish %s: %w", command, err)
	}

	select {
	case reply := <-replyCh:
		if reply.Error != "" {
			return nil, &gateway.CommandError{Command: command, Message: reply.Error}
		}
		if len(reply.Result) == 0 {
			return json.RawMessage("null"), nil
		}
		return reply.Result, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("await %s reply: %w", command, ctx.Err())
	case <-c.closed:
		return nil, ErrClosed
	}
}

func (c *Client) forget(correlationID string) {
	c.mu.Lock()
	delete(c.pending, correlationID)
	c.mu.Unlock()
}

func (c *Client) readReplies(deliveries <-chan amqp091.Delivery) {
	for d := range deliveries {
		c.deliver(d)
	}
	c.logger.Warn("Reply queue closed")
}

func (c *Client) deliver(d amqp091.Delivery) {
	c.mu.Lock()
	replyCh, ok := c.pending[d.CorrelationId]
	delete(c.pending, d.CorrelationId)
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("Dropping reply with no waiting request", log.FieldCorrelationID, d.CorrelationId)
		return
	}

	reply, err := ReplyFromJSON(d.Body)
	if err != nil {
		reply = &Reply{Error: fmt.Sprintf("malformed reply: %v", err)}
	}
	replyCh <- reply
}

// Pending returns the number of requests awaiting a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
