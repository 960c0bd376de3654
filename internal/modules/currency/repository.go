// Package currency converts snapshot values into the base currency using a
// persisted FX rate history with carry-forward.
package currency

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/domain"
)

// Repository persists rates keyed by (currency, date)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rate repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "fx_rates").Logger(),
	}
}

// Put upserts rates in one transaction.
func (r *Repository) Put(ctx context.Context, rates []domain.FXRate) error {
	if len(rates) == 0 {
		return nil
	}

	now := time.Now().Unix()
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fx_rates (currency, date, rate, source, updated_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(currency, date) DO UPDATE SET
				rate = excluded.rate,
				source = excluded.source,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rate := range rates {
			if _, err := stmt.ExecContext(ctx,
				rate.Currency, domain.FormatDate(rate.Date), rate.Rate.String(), rate.Source, now); err != nil {
				return fmt.Errorf("failed to store %s rate: %w", rate.Currency, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store rates: %w", err)
	}
	return nil
}

// Exact returns the rate stored for exactly this date, or nil.
func (r *Repository) Exact(ctx context.Context, currency string, date time.Time) (*domain.FXRate, error) {
	return r.one(ctx,
		"SELECT currency, date, rate, source FROM fx_rates WHERE currency = ? AND date = ?",
		currency, domain.FormatDate(date))
}

// LatestOnOrBefore returns the most recent rate dated on or before date, or nil.
func (r *Repository) LatestOnOrBefore(ctx context.Context, currency string, date time.Time) (*domain.FXRate, error) {
	return r.one(ctx, `
		SELECT currency, date, rate, source FROM fx_rates
		WHERE currency = ? AND date <= ?
		ORDER BY date DESC LIMIT 1
	`, currency, domain.FormatDate(date))
}

// EarliestAfter returns the oldest rate dated after date, or nil.
func (r *Repository) EarliestAfter(ctx context.Context, currency string, date time.Time) (*domain.FXRate, error) {
	return r.one(ctx, `
		SELECT currency, date, rate, source FROM fx_rates
		WHERE currency = ? AND date > ?
		ORDER BY date ASC LIMIT 1
	`, currency, domain.FormatDate(date))
}

// List returns stored rates, optionally filtered by currency and range.
func (r *Repository) List(ctx context.Context, currency string, rng domain.DateRange) ([]domain.FXRate, error) {
	query := "SELECT currency, date, rate, source FROM fx_rates WHERE 1 = 1"
	var args []interface{}
	if currency != "" {
		query += " AND currency = ?"
		args = append(args, currency)
	}
	if !rng.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, domain.FormatDate(rng.From))
	}
	if !rng.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, domain.FormatDate(rng.To))
	}
	query += " ORDER BY currency ASC, date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var result []domain.FXRate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rate)
	}
	return result, rows.Err()
}

func (r *Repository) one(ctx context.Context, query string, args ...interface{}) (*domain.FXRate, error) {
	rate, err := scanRate(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRate(row scanner) (domain.FXRate, error) {
	var currency, date, value, source string
	if err := row.Scan(&currency, &date, &value, &source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.FXRate{}, err
		}
		return domain.FXRate{}, fmt.Errorf("failed to scan rate: %w", err)
	}

	d, err := domain.ParseDate(date)
	if err != nil {
		return domain.FXRate{}, err
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return domain.FXRate{}, fmt.Errorf("invalid stored rate %q: %w", value, err)
	}
	return domain.FXRate{Currency: currency, Date: d, Rate: rate, Source: source}, nil
}
