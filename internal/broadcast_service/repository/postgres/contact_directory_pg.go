package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mtechsms/golang_services/internal/broadcast_service/domain"
)

// Querier is the part of *pgxpool.Pool the directory needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgContactDirectory struct {
	db     Querier
	logger *slog.Logger
}

func NewPgContactDirectory(db Querier, logger *slog.Logger) domain.ContactDirectory {
	return &PgContactDirectory{db: db, logger: logger.With("component", "contact_directory_pg")}
}

// MobileNumbers returns the stored mobile number of each named contact.
// Unknown contacts and contacts with a blank number are left out.
func (r *PgContactDirectory) MobileNumbers(ctx context.Context, names []string) (map[string]string, error) {
	result := make(map[string]string, len(names))
	if len(names) == 0 {
		return result, nil
	}

	query := `SELECT name, mobile_no FROM contacts WHERE name = ANY($1)`
	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying contact mobile numbers", "error", err, "count", len(names))
		return nil, fmt.Errorf("querying contact mobile numbers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var mobile *string
		if err := rows.Scan(&name, &mobile); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning contact row", "error", err)
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		name = strings.TrimSpace(name)
		if name == "" || mobile == nil || strings.TrimSpace(*mobile) == "" {
			continue
		}
		result[name] = strings.TrimSpace(*mobile)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating contact rows", "error", err)
		return nil, fmt.Errorf("iterating contact rows: %w", err)
	}

	r.logger.DebugContext(ctx, "Contact mobile numbers resolved", "requested", len(names), "found", len(result))
	return result, nil
}
