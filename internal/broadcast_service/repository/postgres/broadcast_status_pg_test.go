package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

func TestPgBroadcastStatusStore_UpdateStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	query := `UPDATE broadcasts\s+SET status = \$1, sent_count = \$2, total_count = \$3, failed_count = \$4, failed_recipients = \$5, updated_at = NOW\(\)\s+WHERE id = \$6`

	t.Run("Updated", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		failed := []string{"254700000002"}
		mockPool.ExpectExec(query).
			WithArgs("Partially Sent", 2, 3, 1, failed, "BC-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		store := NewPgBroadcastStatusStore(mockPool, logger)
		outcome := domain.DispatchOutcome{BroadcastID: "BC-1", Sent: 2, Total: 3, Failed: failed}
		err = store.UpdateStatus(context.Background(), outcome, domain.BroadcastStatusPartiallySent)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NilFailedStoredAsEmpty", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec(query).
			WithArgs("Sent", 1, 1, 0, []string{}, "BC-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		store := NewPgBroadcastStatusStore(mockPool, logger)
		err = store.UpdateStatus(context.Background(), domain.DispatchOutcome{BroadcastID: "BC-1", Sent: 1, Total: 1}, domain.BroadcastStatusSent)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec(query).
			WithArgs("Sent", 1, 1, 0, []string{}, "BC-404").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		store := NewPgBroadcastStatusStore(mockPool, logger)
		err = store.UpdateStatus(context.Background(), domain.DispatchOutcome{BroadcastID: "BC-404", Sent: 1, Total: 1}, domain.BroadcastStatusSent)
		assert.ErrorIs(t, err, domain.ErrBroadcastNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ExecError", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		dbErr := errors.New("db down")
		mockPool.ExpectExec(query).
			WithArgs("Failed", 0, 2, 2, []string{"254700000001", "254700000002"}, "BC-1").
			WillReturnError(dbErr)

		store := NewPgBroadcastStatusStore(mockPool, logger)
		outcome := domain.DispatchOutcome{BroadcastID: "BC-1", Total: 2, Failed: []string{"254700000001", "254700000002"}}
		err = store.UpdateStatus(context.Background(), outcome, domain.BroadcastStatusFailed)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgBroadcastStatusStore_GetBroadcast(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	query := `SELECT id, message, message_type, dlr_url, status, failed_recipients, updated_at\s+FROM broadcasts WHERE id = \$1`
	columns := []string{"id", "message", "message_type", "dlr_url", "status", "failed_recipients", "updated_at"}

	t.Run("Found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		updated := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
		messageType, status := "Transactional", "Partially Sent"
		rows := mockPool.NewRows(columns).
			AddRow("BC-1", "Hello", &messageType, (*string)(nil), &status, []string{"254700000002"}, updated)
		mockPool.ExpectQuery(query).WithArgs("BC-1").WillReturnRows(rows)

		store := NewPgBroadcastStatusStore(mockPool, logger)
		rec, err := store.GetBroadcast(context.Background(), "BC-1")
		require.NoError(t, err)
		assert.Equal(t, &domain.BroadcastRecord{
			ID:               "BC-1",
			Message:          "Hello",
			MessageType:      "Transactional",
			Status:           domain.BroadcastStatusPartiallySent,
			FailedRecipients: []string{"254700000002"},
			UpdatedAt:        updated,
		}, rec)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectQuery(query).WithArgs("BC-404").WillReturnError(pgx.ErrNoRows)

		store := NewPgBroadcastStatusStore(mockPool, logger)
		_, err = store.GetBroadcast(context.Background(), "BC-404")
		assert.ErrorIs(t, err, domain.ErrBroadcastNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		dbErr := errors.New("db down")
		mockPool.ExpectQuery(query).WithArgs("BC-1").WillReturnError(dbErr)

		store := NewPgBroadcastStatusStore(mockPool, logger)
		_, err = store.GetBroadcast(context.Background(), "BC-1")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
