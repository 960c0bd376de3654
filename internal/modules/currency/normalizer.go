package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
)

// DefaultRefreshCooldown bounds how often a rate miss may trigger a refresh.
const DefaultRefreshCooldown = 5 * time.Minute

// RateSource supplies refreshed rate tables. Implementations return rates as
// base-currency units per one unit of each currency.
type RateSource interface {
	RefreshRates(ctx context.Context, base string, asOf time.Time) (*domain.RateTable, error)
}

// Warning kinds reported by Normalize.
const (
	// WarningRateUnavailable means the observation was dropped.
	WarningRateUnavailable = "rate_unavailable"
	// WarningRateBackfilled means the observation was converted with the
	// earliest rate stored after its date.
	WarningRateBackfilled = "rate_backfilled"
)

// RateWarning records an observation whose rate could not be resolved normally.
type RateWarning struct {
	AccountID string `json:"account_id"`
	Date      string `json:"date"`
	Currency  string `json:"currency"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason"`
}

// Config configures a Normalizer.
type Config struct {
	BaseCurrency    string
	RefreshTimeout  time.Duration
	RefreshCooldown time.Duration
}

// Normalizer resolves FX rates and converts snapshots into base-currency observations.
//
// Lookup order: same currency is exactly 1, then the rate stored for the date,
// then (after at most one refresh attempt per cooldown) the latest stored rate
// on or before the date, then the earliest stored rate after it. Only when the
// currency has no stored rate at all is RateUnavailable returned.
type Normalizer struct {
	repo     *Repository
	source   RateSource
	base     string
	timeout  time.Duration
	cooldown time.Duration
	events   events.Emitter
	log      zerolog.Logger

	flight      singleflight.Group
	mu          sync.Mutex
	lastAttempt time.Time
}

// NewNormalizer creates a Normalizer. source and emitter may be nil.
func NewNormalizer(repo *Repository, source RateSource, emitter events.Emitter, cfg Config, log zerolog.Logger) *Normalizer {
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 10 * time.Second
	}
	if cfg.RefreshCooldown <= 0 {
		cfg.RefreshCooldown = DefaultRefreshCooldown
	}
	return &Normalizer{
		repo:     repo,
		source:   source,
		base:     strings.ToUpper(cfg.BaseCurrency),
		timeout:  cfg.RefreshTimeout,
		cooldown: cfg.RefreshCooldown,
		events:   emitter,
		log:      log.With().Str("service", "currency_normalizer").Logger(),
	}
}

// Base returns the process-wide base currency.
func (n *Normalizer) Base() string {
	return n.base
}

// Rate returns base-currency units per one unit of currency on date.
func (n *Normalizer) Rate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	rate, _, err := n.resolve(ctx, currency, date)
	return rate, err
}

// resolve is Rate that also reports whether the rate was backfilled from a
// later date.
func (n *Normalizer) resolve(ctx context.Context, currency string, date time.Time) (decimal.Decimal, bool, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == n.base {
		return decimal.NewFromInt(1), false, nil
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return decimal.Zero, false, err
	}
	date = domain.TruncateDate(date)

	exact, err := n.repo.Exact(ctx, currency, date)
	if err != nil {
		return decimal.Zero, false, err
	}
	if exact != nil {
		return exact.Rate, false, nil
	}

	if n.claimRefresh() {
		if err := n.Refresh(ctx, date); err != nil {
			n.log.Warn().Err(err).Str("currency", currency).Msg("Rate refresh failed, falling back to carry-forward")
		} else if exact, err = n.repo.Exact(ctx, currency, date); err == nil && exact != nil {
			return exact.Rate, false, nil
		}
	}

	latest, err := n.repo.LatestOnOrBefore(ctx, currency, date)
	if err != nil {
		return decimal.Zero, false, err
	}
	if latest != nil {
		n.log.Debug().
			Str("currency", currency).
			Str("date", domain.FormatDate(date)).
			Str("rate_date", domain.FormatDate(latest.Date)).
			Msg("Carrying rate forward")
		return latest.Rate, false, nil
	}

	// Upstream tables are dated on refresh, so history older than the first
	// stored rate is converted at the earliest known rate.
	earliest, err := n.repo.EarliestAfter(ctx, currency, date)
	if err != nil {
		return decimal.Zero, false, err
	}
	if earliest == nil {
		return decimal.Zero, false, &domain.RateUnavailableError{Currency: currency, Date: date}
	}

	n.log.Debug().
		Str("currency", currency).
		Str("date", domain.FormatDate(date)).
		Str("rate_date", domain.FormatDate(earliest.Date)).
		Msg("Backfilling rate")
	return earliest.Rate, true, nil
}

// claimRefresh reports whether a miss may trigger a refresh now.
func (n *Normalizer) claimRefresh() bool {
	if n.source == nil {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.lastAttempt.IsZero() && time.Since(n.lastAttempt) < n.cooldown {
		return false
	}
	n.lastAttempt = time.Now()
	return true
}

// Refresh asks the rate source for a table and stores it. Concurrent refreshes
// for the same date share one call. The call is bounded by the refresh timeout.
func (n *Normalizer) Refresh(ctx context.Context, asOf time.Time) error {
	if n.source == nil {
		return errors.New("no rate source configured")
	}
	key := domain.FormatDate(asOf)

	_, err, _ := n.flight.Do(key, func() (interface{}, error) {
		// Detached from the first caller; bounded only by the refresh timeout
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()

		table, err := n.source.RefreshRates(ctx, n.base, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to refresh rates: %w", err)
		}
		return nil, n.storeTable(ctx, table)
	})
	return err
}

func (n *Normalizer) storeTable(ctx context.Context, table *domain.RateTable) error {
	if table == nil || len(table.Rates) == 0 {
		return errors.New("rate source returned no rates")
	}

	source := table.Source
	if source == "" {
		source = "refresh"
	}
	date := domain.TruncateDate(table.Date)

	rates := make([]domain.FXRate, 0, len(table.Rates))
	for currency, rate := range table.Rates {
		currency = strings.ToUpper(currency)
		if currency == n.base || !rate.IsPositive() || domain.ValidateCurrency(currency) != nil {
			continue
		}
		rates = append(rates, domain.FXRate{Currency: currency, Date: date, Rate: rate, Source: source})
	}
	if err := n.repo.Put(ctx, rates); err != nil {
		return err
	}

	n.log.Info().
		Str("date", domain.FormatDate(date)).
		Str("source", source).
		Int("rates", len(rates)).
		Msg("Rates refreshed")
	n.emit(map[string]interface{}{"date": domain.FormatDate(date), "source": source, "count": len(rates)})
	return nil
}

// SetRate records a manual rate.
func (n *Normalizer) SetRate(ctx context.Context, rate domain.FXRate) (domain.FXRate, error) {
	rate.Currency = strings.ToUpper(strings.TrimSpace(rate.Currency))
	if err := domain.ValidateCurrency(rate.Currency); err != nil {
		return rate, err
	}
	if rate.Currency == n.base {
		return rate, domain.NewValidationError("currency", "must differ from the base currency")
	}
	if rate.Date.IsZero() {
		return rate, domain.NewValidationError("date", "is required")
	}
	if !rate.Rate.IsPositive() {
		return rate, domain.NewValidationError("rate", "must be greater than zero")
	}
	rate.Date = domain.TruncateDate(rate.Date)
	if rate.Source == "" {
		rate.Source = "manual"
	}

	if err := n.repo.Put(ctx, []domain.FXRate{rate}); err != nil {
		return rate, err
	}
	n.emit(map[string]interface{}{"date": domain.FormatDate(rate.Date), "source": rate.Source, "count": 1})
	return rate, nil
}

// Rates lists stored rates.
func (n *Normalizer) Rates(ctx context.Context, currency string, rng domain.DateRange) ([]domain.FXRate, error) {
	return n.repo.List(ctx, strings.ToUpper(strings.TrimSpace(currency)), rng)
}

// Normalize converts snapshots to observations. Snapshots whose rate is
// unavailable are dropped and reported as warnings, backfilled rates are kept
// and reported as warnings. Any other failure aborts.
func (n *Normalizer) Normalize(ctx context.Context, snapshots []domain.Snapshot) ([]domain.Observation, []RateWarning, error) {
	type rateKey struct {
		currency string
		date     time.Time
	}
	type resolvedRate struct {
		rate       decimal.Decimal
		backfilled bool
	}
	resolved := make(map[rateKey]resolvedRate)
	unavailable := make(map[rateKey]error)

	observations := make([]domain.Observation, 0, len(snapshots))
	var warnings []RateWarning

	for _, s := range snapshots {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		key := rateKey{strings.ToUpper(s.Currency), s.Date}
		r, ok := resolved[key]
		if !ok {
			if prev, failed := unavailable[key]; failed {
				warnings = append(warnings, newWarning(s, WarningRateUnavailable, prev.Error()))
				continue
			}

			rate, backfilled, err := n.resolve(ctx, s.Currency, s.Date)
			if domain.IsRateUnavailable(err) {
				n.log.Warn().
					Str("account_id", s.AccountID).
					Str("currency", s.Currency).
					Str("date", domain.FormatDate(s.Date)).
					Msg("No exchange rate, skipping observation")
				unavailable[key] = err
				warnings = append(warnings, newWarning(s, WarningRateUnavailable, err.Error()))
				continue
			}
			if err != nil {
				return nil, nil, fmt.Errorf("failed to normalize %s: %w", s.Key(), err)
			}
			r = resolvedRate{rate: rate, backfilled: backfilled}
			resolved[key] = r
		}

		if r.backfilled {
			warnings = append(warnings, newWarning(s, WarningRateBackfilled,
				fmt.Sprintf("no exchange rate for %s on or before %s, used the earliest later rate",
					strings.ToUpper(s.Currency), domain.FormatDate(s.Date))))
		}
		observations = append(observations, domain.Observation{
			Date:      s.Date,
			AccountID: s.AccountID,
			BaseValue: s.RawValue.Mul(r.rate),
		})
	}

	return observations, warnings, nil
}

func newWarning(s domain.Snapshot, kind, reason string) RateWarning {
	return RateWarning{
		AccountID: s.AccountID,
		Date:      domain.FormatDate(s.Date),
		Currency:  s.Currency,
		Kind:      kind,
		Reason:    reason,
	}
}

func (n *Normalizer) emit(data map[string]interface{}) {
	if n.events != nil {
		n.events.Emit(events.RatesRefreshed, "currency", data)
	}
}
