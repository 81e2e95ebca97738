package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsClient wraps a NATS connection and, optionally, a JetStream context.
type NatsClient struct {
	Conn   *nats.Conn
	JS     nats.JetStreamContext
	logger *slog.Logger
}

// NewNatsClient connects to NATS. With useJetStream, publishes go through
// JetStream so the Nats-Msg-Id header deduplicates repeats.
// natsURL example: "nats://localhost:4222"
func NewNatsClient(natsURL string, appName string, logger *slog.Logger, useJetStream bool) (*NatsClient, error) {
	logger = logger.With("component", "nats_client")
	nc, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed", "error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &NatsClient{Conn: nc, logger: logger}
	if useJetStream {
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.JS = js
	}
	return client, nil
}

// Publish sends data on subject.
func (c *NatsClient) Publish(ctx context.Context, subject string, data []byte) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	return c.PublishMsg(ctx, msg)
}

// PublishMsg sends a message with headers. It respects ctx cancellation
// before handing the message to the connection.
func (c *NatsClient) PublishMsg(ctx context.Context, msg *nats.Msg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.JS != nil {
		if _, err := c.JS.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return fmt.Errorf("jetstream publish to %s: %w", msg.Subject, err)
		}
		return nil
	}
	if err := c.Conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *NatsClient) Close() {
	if c == nil || c.Conn == nil || c.Conn.IsClosed() {
		return
	}
	if err := c.Conn.Drain(); err != nil {
		c.logger.Warn("NATS drain failed", "error", err)
		c.Conn.Close()
	}
}

// SubscribeToSubjectWithQueue joins queueGroup on subject and blocks until
// ctx is done, then drains the subscription.
func (c *NatsClient) SubscribeToSubjectWithQueue(ctx context.Context, subject, queueGroup string, handler func(msg *nats.Msg)) error {
	sub, err := c.Conn.QueueSubscribe(subject, queueGroup, handler)
	if err != nil {
		return fmt.Errorf("subscribe to %s (queue %s): %w", subject, queueGroup, err)
	}
	c.logger.Info("Subscribed to NATS subject", "subject", subject, "queue_group", queueGroup)

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		c.logger.Warn("NATS subscription drain failed", "subject", subject, "error", err)
	}
	return nil
}
