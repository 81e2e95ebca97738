package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

const defaultOutcomeHandleTimeout = 10 * time.Second

// QueueSubscriber is the part of the NATS client the consumer needs.
type QueueSubscriber interface {
	SubscribeToSubjectWithQueue(ctx context.Context, subject, queueGroup string, handler func(msg *nats.Msg)) error
}

// OutcomeConsumer turns dispatch outcome reports into broadcast statuses.
type OutcomeConsumer struct {
	subscriber    QueueSubscriber
	store         domain.BroadcastStatusStore
	logger        *slog.Logger
	handleTimeout time.Duration
}

func NewOutcomeConsumer(subscriber QueueSubscriber, store domain.BroadcastStatusStore, logger *slog.Logger) *OutcomeConsumer {
	return &OutcomeConsumer{
		subscriber:    subscriber,
		store:         store,
		logger:        logger.With("component", "outcome_consumer"),
		handleTimeout: defaultOutcomeHandleTimeout,
	}
}

// StartConsuming blocks until ctx is cancelled. Messages still delivered
// while the subscription drains are handled with a detached, bounded context.
func (c *OutcomeConsumer) StartConsuming(ctx context.Context, subject, queueGroup string) error {
	c.logger.InfoContext(ctx, "Starting dispatch outcome subscription", "subject", subject, "queue_group", queueGroup)
	err := c.subscriber.SubscribeToSubjectWithQueue(ctx, subject, queueGroup, func(msg *nats.Msg) {
		handleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.handleTimeout)
		defer cancel()
		if _, err := c.HandleMessage(handleCtx, msg); err != nil {
			c.logger.ErrorContext(handleCtx, "Failed to handle dispatch outcome", "error", err, "subject", msg.Subject)
		}
	})
	if err != nil {
		return fmt.Errorf("consuming dispatch outcomes: %w", err)
	}
	c.logger.InfoContext(ctx, "Dispatch outcome subscription ended", "subject", subject)
	return nil
}

// HandleMessage decodes one outcome report, resolves the broadcast status
// and stores it with the failed recipients. Reports without a broadcast id
// are dropped.
func (c *OutcomeConsumer) HandleMessage(ctx context.Context, msg *nats.Msg) (domain.BroadcastStatus, error) {
	var outcome domain.DispatchOutcome
	if err := json.Unmarshal(msg.Data, &outcome); err != nil {
		outcomesCounter.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("decoding dispatch outcome: %w", err)
	}
	outcome.BroadcastID = strings.TrimSpace(outcome.BroadcastID)
	if outcome.BroadcastID == "" {
		outcomesCounter.WithLabelValues("invalid").Inc()
		return "", fmt.Errorf("dispatch outcome for job %q has no broadcast id", outcome.JobID)
	}
	outcome = normalizeOutcome(outcome)

	status := ResolveBroadcastStatus(outcome.Sent, outcome.Total)
	if err := c.store.UpdateStatus(ctx, outcome, status); err != nil {
		outcomesCounter.WithLabelValues("error").Inc()
		return status, fmt.Errorf("storing status of broadcast %s: %w", outcome.BroadcastID, err)
	}

	outcomesCounter.WithLabelValues(string(status)).Inc()
	c.logger.InfoContext(ctx, "Broadcast status updated",
		"broadcast_id", outcome.BroadcastID, "job_id", outcome.JobID,
		"status", status, "sent", outcome.Sent, "total", outcome.Total, "failed", len(outcome.Failed))
	return status, nil
}

// normalizeOutcome trims and dedupes the failed numbers. A report that
// carries no total counts its sent and failed recipients instead.
func normalizeOutcome(outcome domain.DispatchOutcome) domain.DispatchOutcome {
	failed := newOrderedSet()
	for _, n := range outcome.Failed {
		if n = strings.TrimSpace(n); n != "" {
			failed.add(n)
		}
	}
	outcome.Failed = failed.items
	if outcome.Total <= 0 {
		outcome.Total = outcome.Sent + len(outcome.Failed)
	}
	return outcome
}
