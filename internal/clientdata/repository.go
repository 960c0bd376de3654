// Package clientdata provides persistent caching for external API responses.
// Data is stored as JSON blobs with expiration timestamps for cache-first behavior,
// and expired rows stay readable as a fallback when the upstream fails.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// TableExchangeRate caches exchange rate tables keyed by base currency.
const TableExchangeRate = "exchangerate"

// tables maps every cache table to its key column.
var tables = map[string]string{
	TableExchangeRate: "pair",
}

// AllTables lists the cache tables in client_data.db, sorted.
var AllTables = func() []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}()

// TableStats counts the rows of one cache table.
type TableStats struct {
	Fresh int64 `json:"fresh"`
	Stale int64 `json:"stale"`
}

// Repository provides cache operations for client data.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// keyColumn validates the table name against the registry and returns its key
// column. Table names are never taken from user input unchecked.
func keyColumn(table string) (string, error) {
	col, ok := tables[table]
	if !ok {
		return "", fmt.Errorf("invalid table name: %s", table)
	}
	return col, nil
}

// Store saves data with expiration = now + ttl, replacing any existing entry.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s, data, expires_at) VALUES (?, ?, ?)", table, col)
	if _, err := r.db.Exec(query, key, string(payload), r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns the entry only while it has not expired.
// Returns nil, nil when the key is missing or expired.
func (r *Repository) GetIfFresh(table, key string) (json.RawMessage, error) {
	col, err := keyColumn(table)
	if err != nil {
		return nil, err
	}
	return r.get(fmt.Sprintf("SELECT data FROM %s WHERE %s = ? AND expires_at > ?", table, col), key, r.now().Unix())
}

// Get returns the entry regardless of expiration. Returns nil, nil when missing.
func (r *Repository) Get(table, key string) (json.RawMessage, error) {
	col, err := keyColumn(table)
	if err != nil {
		return nil, err
	}
	return r.get(fmt.Sprintf("SELECT data FROM %s WHERE %s = ?", table, col), key)
}

func (r *Repository) get(query string, args ...interface{}) (json.RawMessage, error) {
	var data string
	err := r.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read client data: %w", err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	col, err := keyColumn(table)
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, col), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes every expired row of a table and returns the count.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if _, err := keyColumn(table); err != nil {
		return 0, err
	}

	result, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}
	return result.RowsAffected()
}

// DeleteAllExpired removes expired rows from every table.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64, len(AllTables))
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}

// Stats counts fresh and stale rows per table.
func (r *Repository) Stats() (map[string]TableStats, error) {
	now := r.now().Unix()
	stats := make(map[string]TableStats, len(AllTables))
	for _, table := range AllTables {
		var s TableStats
		err := r.db.QueryRow(fmt.Sprintf(
			"SELECT COALESCE(SUM(expires_at > ?), 0), COALESCE(SUM(expires_at <= ?), 0) FROM %s", table),
			now, now).Scan(&s.Fresh, &s.Stale)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = s
	}
	return stats, nil
}
