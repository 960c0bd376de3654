// Package accounts implements the account registry: display name, native currency,
// category and whether an account belongs to the tracked performance universe.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
)

// Repository persists registry entries
type Repository struct {
	db     *sql.DB
	events events.Emitter
	log    zerolog.Logger
}

// NewRepository creates a new account repository. emitter may be nil.
func NewRepository(db *sql.DB, emitter events.Emitter, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		events: emitter,
		log:    log.With().Str("repo", "accounts").Logger(),
	}
}

// Upsert creates or replaces an account
func (r *Repository) Upsert(ctx context.Context, a domain.Account) error {
	a.ID = strings.TrimSpace(a.ID)
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if err := a.Validate(); err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, currency, category, tracked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			currency = excluded.currency,
			category = excluded.category,
			tracked = excluded.tracked,
			updated_at = excluded.updated_at
	`, a.ID, a.Name, a.Currency, a.Category, boolToInt(a.Tracked), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", a.ID, err)
	}

	if r.events != nil {
		r.events.Emit(events.AccountsChanged, "accounts", map[string]interface{}{"id": a.ID})
	}
	return nil
}

// Get returns an account or nil if it does not exist
func (r *Repository) Get(ctx context.Context, id string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT id, name, currency, category, tracked FROM accounts WHERE id = ?", id)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", id, err)
	}
	return &a, nil
}

// List returns all accounts ordered by id
func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, currency, category, tracked FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Delete removes an account from the registry. Its snapshots are kept.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete account %s: %w", id, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 && r.events != nil {
		r.events.Emit(events.AccountsChanged, "accounts", map[string]interface{}{"id": id, "deleted": true})
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account
	var tracked int
	if err := row.Scan(&a.ID, &a.Name, &a.Currency, &a.Category, &tracked); err != nil {
		return a, err
	}
	a.Tracked = tracked != 0
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
