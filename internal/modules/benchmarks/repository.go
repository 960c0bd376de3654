// Package benchmarks stores external benchmark series used for beta, alpha and
// tracking error.
package benchmarks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/database"
	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
)

// Summary describes one stored benchmark series.
type Summary struct {
	Benchmark
	Points    int    `json:"points"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
}

// Repository persists benchmark values keyed by (benchmark_id, date)
type Repository struct {
	db     *sql.DB
	events events.Emitter
	log    zerolog.Logger
}

// NewRepository creates a new benchmark repository. emitter may be nil.
func NewRepository(db *sql.DB, emitter events.Emitter, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		events: emitter,
		log:    log.With().Str("repo", "benchmarks").Logger(),
	}
}

// Put upserts benchmark values in one transaction.
func (r *Repository) Put(ctx context.Context, benchmarkID string, points []domain.BenchmarkPoint) error {
	benchmarkID = strings.TrimSpace(benchmarkID)
	if benchmarkID == "" {
		return domain.NewValidationError("benchmark_id", "is required")
	}
	for i, p := range points {
		if p.Date.IsZero() {
			return domain.NewValidationError(fmt.Sprintf("points[%d].date", i), "is required")
		}
		if !p.Value.IsPositive() {
			return domain.NewValidationError(fmt.Sprintf("points[%d].value", i), "must be greater than zero")
		}
	}
	if len(points) == 0 {
		return nil
	}

	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO benchmark_values (benchmark_id, date, value) VALUES (?, ?, ?)
			ON CONFLICT(benchmark_id, date) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, benchmarkID, domain.FormatDate(p.Date), p.Value.String()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store benchmark %s: %w", benchmarkID, err)
	}

	r.log.Debug().Str("benchmark_id", benchmarkID).Int("points", len(points)).Msg("Benchmark values stored")
	if r.events != nil {
		r.events.Emit(events.BenchmarksChanged, "benchmarks", map[string]interface{}{
			"benchmark_id": benchmarkID,
			"points":       len(points),
		})
	}
	return nil
}

// Series returns the values of a benchmark inside the range, ordered by date.
func (r *Repository) Series(ctx context.Context, benchmarkID string, rng domain.DateRange) ([]domain.BenchmarkPoint, error) {
	query := "SELECT date, value FROM benchmark_values WHERE benchmark_id = ?"
	args := []interface{}{benchmarkID}
	if !rng.From.IsZero() {
		query += " AND date >= ?"
		args = append(args, domain.FormatDate(rng.From))
	}
	if !rng.To.IsZero() {
		query += " AND date <= ?"
		args = append(args, domain.FormatDate(rng.To))
	}
	query += " ORDER BY date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmark %s: %w", benchmarkID, err)
	}
	defer rows.Close()

	var result []domain.BenchmarkPoint
	for rows.Next() {
		var date, value string
		if err := rows.Scan(&date, &value); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark value: %w", err)
		}
		d, err := domain.ParseDate(date)
		if err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid stored benchmark value %q: %w", value, err)
		}
		result = append(result, domain.BenchmarkPoint{Date: d, Value: v})
	}
	return result, rows.Err()
}

// List summarizes every stored benchmark.
func (r *Repository) List(ctx context.Context) ([]Summary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT benchmark_id, COUNT(*), MIN(date), MAX(date)
		FROM benchmark_values
		GROUP BY benchmark_id
		ORDER BY benchmark_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Points, &s.FirstDate, &s.LastDate); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark summary: %w", err)
		}
		s.Name = NameOf(s.ID)
		result = append(result, s)
	}
	return result, rows.Err()
}
