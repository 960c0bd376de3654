// Package snapshots implements the snapshot store: the ledger of recorded account balances.
package snapshots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
)

const moduleName = "snapshots"

// Repository persists snapshots with at most one row per (account_id, date).
// Writes to a key are serialized; reads never block each other.
type Repository struct {
	db     *sql.DB
	locks  keyLocks
	events events.Emitter
	log    zerolog.Logger
}

// NewRepository creates a snapshot repository. emitter may be nil.
func NewRepository(db *sql.DB, emitter events.Emitter, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		events: emitter,
		log:    log.With().Str("repo", "snapshots").Logger(),
	}
}

const upsertSQL = `
	INSERT INTO snapshots (account_id, date, currency, raw_value, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(account_id, date) DO UPDATE SET
		currency = excluded.currency,
		raw_value = excluded.raw_value,
		updated_at = excluded.updated_at
`

// Put records a snapshot, overwriting any existing one for the same account and date.
func (r *Repository) Put(ctx context.Context, s domain.Snapshot) error {
	s = s.Normalized()
	if err := s.Validate(); err != nil {
		return err
	}

	unlock := r.locks.lock(s.Key())
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, upsertSQL,
			s.AccountID, domain.FormatDate(s.Date), s.Currency, s.RawValue.String(), time.Now().Unix())
		return err
	})
	unlock()
	if err != nil {
		return fmt.Errorf("failed to record snapshot %s: %w", s.Key(), err)
	}

	r.log.Debug().
		Str("account_id", s.AccountID).
		Str("date", domain.FormatDate(s.Date)).
		Str("value", s.RawValue.String()).
		Msg("Snapshot recorded")

	r.emit(map[string]interface{}{
		"operation":  "put",
		"account_id": s.AccountID,
		"date":       domain.FormatDate(s.Date),
	})
	return nil
}

// Get returns the snapshot for a key, or nil if there is none.
func (r *Repository) Get(ctx context.Context, accountID string, date time.Time) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT account_id, date, currency, raw_value FROM snapshots WHERE account_id = ? AND date = ?",
		accountID, domain.FormatDate(date))

	s, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return &s, nil
}

// Query returns the snapshots of the given accounts (all accounts when empty) inside
// the range, ordered by date then account. It runs as a single statement, so the
// result is a consistent read of the store.
func (r *Repository) Query(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.Snapshot, error) {
	query := "SELECT account_id, date, currency, raw_value FROM snapshots"
	var where []string
	var args []interface{}

	if len(accountIDs) > 0 {
		where = append(where, "account_id IN ("+placeholders(len(accountIDs))+")")
		for _, id := range accountIDs {
			args = append(args, id)
		}
	}
	if !rng.From.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, domain.FormatDate(rng.From))
	}
	if !rng.To.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, domain.FormatDate(rng.To))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date ASC, account_id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var result []domain.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return result, nil
}

// AccountIDs lists every account with at least one snapshot.
func (r *Repository) AccountIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT DISTINCT account_id FROM snapshots ORDER BY account_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a snapshot. It reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, accountID string, date time.Time) (bool, error) {
	key := domain.Snapshot{AccountID: accountID, Date: date}.Key()

	unlock := r.locks.lock(key)
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE account_id = ? AND date = ?", accountID, domain.FormatDate(date))
	unlock()
	if err != nil {
		return false, fmt.Errorf("failed to delete snapshot %s: %w", key, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		r.emit(map[string]interface{}{
			"operation":  "delete",
			"account_id": accountID,
			"date":       domain.FormatDate(date),
		})
	}
	return n > 0, nil
}

// Export returns the whole store as a flat list, ordered by date then account.
func (r *Repository) Export(ctx context.Context) ([]domain.Snapshot, error) {
	return r.Query(ctx, nil, domain.DateRange{})
}

// Import upserts a flat list of snapshots in one transaction. Every record is
// validated first; a single invalid record rejects the whole batch.
func (r *Repository) Import(ctx context.Context, batch []domain.Snapshot) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	normalized := make([]domain.Snapshot, len(batch))
	keys := make([]string, len(batch))
	for i, s := range batch {
		s = s.Normalized()
		if err := s.Validate(); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return 0, domain.NewValidationError(fmt.Sprintf("snapshots[%d].%s", i, ve.Field), ve.Reason)
			}
			return 0, err
		}
		normalized[i] = s
		keys[i] = s.Key()
	}

	unlock := r.locks.lock(keys...)
	now := time.Now().Unix()
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSQL)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range normalized {
			if _, err := stmt.ExecContext(ctx,
				s.AccountID, domain.FormatDate(s.Date), s.Currency, s.RawValue.String(), now); err != nil {
				return fmt.Errorf("failed to import %s: %w", s.Key(), err)
			}
		}
		return nil
	})
	unlock()
	if err != nil {
		return 0, fmt.Errorf("failed to import snapshots: %w", err)
	}

	r.log.Info().Int("count", len(normalized)).Msg("Snapshots imported")
	r.emit(map[string]interface{}{
		"operation": "import",
		"count":     len(normalized),
	})
	return len(normalized), nil
}

func (r *Repository) emit(data map[string]interface{}) {
	if r.events != nil {
		r.events.Emit(events.SnapshotsChanged, moduleName, data)
	}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row scanner) (domain.Snapshot, error) {
	var accountID, date, currency, raw string
	if err := row.Scan(&accountID, &date, &currency, &raw); err != nil {
		return domain.Snapshot{}, err
	}

	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.Snapshot{}, err
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("invalid stored value %q: %w", raw, err)
	}

	return domain.Snapshot{Date: d, AccountID: accountID, Currency: currency, RawValue: value}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
