// Package cash_flows records explicit flow annotations and splits account value
// changes into contributions, withdrawals and unclassified growth.
package cash_flows

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
)

// Repository handles flow annotation persistence.
// Annotations are recorded independently of the value snapshots and are the only
// signal that lets the classifier tell a deposit apart from a market gain.
type Repository struct {
	db     *sql.DB
	events events.Emitter
	log    zerolog.Logger
}

// NewRepository creates a new flow annotation repository. emitter may be nil.
func NewRepository(db *sql.DB, emitter events.Emitter, log zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		events: emitter,
		log:    log.With().Str("repo", "cash_flows").Logger(),
	}
}

// Record validates and stores an annotation, assigning an id when none is set.
func (r *Repository) Record(ctx context.Context, f domain.FlowAnnotation) (domain.FlowAnnotation, error) {
	f.AccountID = strings.TrimSpace(f.AccountID)
	f.Date = domain.TruncateDate(f.Date)
	if err := f.Validate(); err != nil {
		return f, err
	}
	if f.ID == "" {
		f.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO flow_annotations (id, date, account_id, amount, kind, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ID, domain.FormatDate(f.Date), f.AccountID, f.Amount.String(), string(f.Kind), f.Note, time.Now().Unix())
	if err != nil {
		return f, fmt.Errorf("failed to insert flow annotation: %w", err)
	}

	r.log.Debug().
		Str("id", f.ID).
		Str("account_id", f.AccountID).
		Str("kind", string(f.Kind)).
		Str("amount", f.Amount.String()).
		Msg("Flow annotation recorded")

	r.emit(map[string]interface{}{"operation": "record", "id": f.ID, "account_id": f.AccountID})
	return f, nil
}

// List returns annotations of the given accounts (all when empty) inside the
// range, ordered by date, account and id.
func (r *Repository) List(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.FlowAnnotation, error) {
	query := "SELECT id, date, account_id, amount, kind, note FROM flow_annotations"
	var where []string
	var args []interface{}

	if len(accountIDs) > 0 {
		where = append(where, "account_id IN ("+strings.TrimSuffix(strings.Repeat("?,", len(accountIDs)), ",")+")")
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
	query += " ORDER BY date ASC, account_id ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow annotations: %w", err)
	}
	defer rows.Close()

	var result []domain.FlowAnnotation
	for rows.Next() {
		var f domain.FlowAnnotation
		var date, amount, kind string
		if err := rows.Scan(&f.ID, &date, &f.AccountID, &amount, &kind, &f.Note); err != nil {
			return nil, fmt.Errorf("failed to scan flow annotation: %w", err)
		}
		if f.Date, err = domain.ParseDate(date); err != nil {
			return nil, fmt.Errorf("invalid stored date %q: %w", date, err)
		}
		if f.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		f.Kind = domain.FlowKind(kind)
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flow annotations: %w", err)
	}
	return result, nil
}

// Delete removes an annotation. It reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM flow_annotations WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete flow annotation %s: %w", id, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		r.emit(map[string]interface{}{"operation": "delete", "id": id})
	}
	return n > 0, nil
}

func (r *Repository) emit(data map[string]interface{}) {
	if r.events != nil {
		r.events.Emit(events.FlowsChanged, "cash_flows", data)
	}
}
