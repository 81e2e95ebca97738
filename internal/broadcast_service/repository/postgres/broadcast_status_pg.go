package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// StatusDB is the part of *pgxpool.Pool the status store needs.
type StatusDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgBroadcastStatusStore struct {
	db     StatusDB
	logger *slog.Logger
}

func NewPgBroadcastStatusStore(db StatusDB, logger *slog.Logger) domain.BroadcastStatusStore {
	return &PgBroadcastStatusStore{db: db, logger: logger.With("component", "broadcast_status_pg")}
}

// UpdateStatus records the resolved status, the delivery counts and the
// recipients that failed in the latest outcome.
func (r *PgBroadcastStatusStore) UpdateStatus(ctx context.Context, outcome domain.DispatchOutcome, status domain.BroadcastStatus) error {
	failed := outcome.Failed
	if failed == nil {
		failed = []string{}
	}
	query := `UPDATE broadcasts
		SET status = $1, sent_count = $2, total_count = $3, failed_count = $4, failed_recipients = $5, updated_at = NOW()
		WHERE id = $6`
	tag, err := r.db.Exec(ctx, query, string(status), outcome.Sent, outcome.Total, len(failed), failed, outcome.BroadcastID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating broadcast status", "error", err, "broadcast_id", outcome.BroadcastID)
		return fmt.Errorf("updating broadcast status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBroadcastNotFound
	}
	return nil
}

// GetBroadcast loads the message and latest failed recipients of a broadcast.
func (r *PgBroadcastStatusStore) GetBroadcast(ctx context.Context, broadcastID string) (*domain.BroadcastRecord, error) {
	query := `SELECT id, message, message_type, dlr_url, status, failed_recipients, updated_at
		FROM broadcasts WHERE id = $1`

	var rec domain.BroadcastRecord
	var messageType, dlrURL, status *string
	var failed []string
	err := r.db.QueryRow(ctx, query, broadcastID).Scan(
		&rec.ID, &rec.Message, &messageType, &dlrURL, &status, &failed, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBroadcastNotFound
		}
		r.logger.ErrorContext(ctx, "Error loading broadcast", "error", err, "broadcast_id", broadcastID)
		return nil, fmt.Errorf("loading broadcast: %w", err)
	}
	if messageType != nil {
		rec.MessageType = *messageType
	}
	if dlrURL != nil {
		rec.DLRURL = *dlrURL
	}
	if status != nil {
		rec.Status = domain.BroadcastStatus(*status)
	}
	rec.FailedRecipients = failed
	return &rec, nil
}
