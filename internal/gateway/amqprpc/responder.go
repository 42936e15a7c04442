package amqprpc

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"ledgerdesk/internal/gateway"
	"ledgerdesk/internal/log"
)

// Serve consumes the command queue and answers every request from backend
// until ctx ends. It is the broker-side counterpart of Invoke.
func (c *Client) Serve(ctx context.Context, backend gateway.Gateway) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Serving gateway commands", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping command consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handle(ctx, backend, delivery)
		}
	}
}

func (c *Client) handle(ctx context.Context, backend gateway.Gateway, d amqp091.Delivery) {
	if d.ReplyTo == "" || d.CorrelationId == "" {
		c.logger.WarnContext(ctx, "Rejecting command without reply address", "type", d.Type)
		d.Nack(false, false)
		return
	}

	reply := c.answer(ctx, backend, d)
	body, err := reply.ToJSON()
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to marshal reply", log.FieldError, err)
		d.Nack(false, false)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = c.channel.PublishWithContext(pubCtx, "", d.ReplyTo, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		CorrelationId: d.CorrelationId,
		Timestamp:     time.Now(),
		Body:          body,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to publish reply",
			log.FieldError, err,
			log.FieldCorrelationID, d.CorrelationId)
		d.Nack(false, true) // reject and requeue
		return
	}
	d.Ack(false)
}

func (c *Client) answer(ctx context.Context, backend gateway.Gateway, d amqp091.Delivery) *Reply {
	req, err := RequestFromJSON(d.Body)
	if err != nil {
		return &Reply{Error: fmt.Sprintf("malformed request: %v", err)}
	}
	command := req.Command
	if command == "" {
		command = d.Type
	}

	start := time.Now()
	result, err := gateway.Dispatch(ctx, backend, command, req.Args)
	c.logger.DebugContext(ctx, "Answered command",
		log.FieldCommand, command,
		log.FieldCorrelationID, d.CorrelationId,
		log.FieldDuration, time.Since(start).Milliseconds(),
		log.FieldSuccess, err == nil)
	if err != nil {
		return &Reply{Error: err.Error()}
	}
	return &Reply{Result: result}
}
