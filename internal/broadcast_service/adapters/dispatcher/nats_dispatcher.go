package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// DefaultSubject is where broadcast jobs are published unless configured otherwise.
const DefaultSubject = "sms.jobs.broadcast"

// MsgPublisher is satisfied by *messagebroker.NatsClient.
type MsgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg) error
}

// NatsDispatcher publishes dispatch jobs for the sending service to pick up.
type NatsDispatcher struct {
	publisher MsgPublisher
	subject   string
	logger    *slog.Logger
}

func NewNatsDispatcher(publisher MsgPublisher, subject string, logger *slog.Logger) *NatsDispatcher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NatsDispatcher{publisher: publisher, subject: subject, logger: logger.With("component", "nats_dispatcher")}
}

// Dispatch publishes job as JSON, keyed by its dedupe key.
func (d *NatsDispatcher) Dispatch(ctx context.Context, job *domain.DispatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal dispatch job: %w", err)
	}

	msg := nats.NewMsg(d.subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, job.DedupeKey)
	msg.Header.Set("Broadcast-Id", job.BroadcastID)

	if err := d.publisher.PublishMsg(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish dispatch job", "error", err, "job_id", job.JobID, "subject", d.subject)
		return err
	}
	d.logger.InfoContext(ctx, "Dispatch job published", "job_id", job.JobID, "subject", d.subject, "recipients", len(job.MSISDNs))
	return nil
}
