// Package analytics is the read side of the engine: it loads snapshots, normalizes
// them, builds the daily series and serves the derived reports through a
// fingerprint-keyed cache.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/networth/internal/domain"
	"github.com/aristath/networth/internal/events"
	"github.com/aristath/networth/internal/modules/accounts"
	"github.com/aristath/networth/internal/modules/cash_flows"
	"github.com/aristath/networth/internal/modules/correlation"
	"github.com/aristath/networth/internal/modules/currency"
	"github.com/aristath/networth/internal/modules/risk"
	"github.com/aristath/networth/internal/modules/series"
	"github.com/aristath/networth/internal/utils"
)

// Uncategorized labels registry entries without a category and unregistered accounts.
const Uncategorized = "uncategorized"

// SnapshotReader is the read side of the snapshot store.
type SnapshotReader interface {
	Query(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.Snapshot, error)
	AccountIDs(ctx context.Context) ([]string, error)
}

// FlowReader lists flow annotations.
type FlowReader interface {
	List(ctx context.Context, accountIDs []string, rng domain.DateRange) ([]domain.FlowAnnotation, error)
}

// BenchmarkReader reads a benchmark series.
type BenchmarkReader interface {
	Series(ctx context.Context, benchmarkID string, rng domain.DateRange) ([]domain.BenchmarkPoint, error)
}

// Normalizer converts snapshots into base-currency observations.
type Normalizer interface {
	Base() string
	Normalize(ctx context.Context, snapshots []domain.Snapshot) ([]domain.Observation, []currency.RateWarning, error)
}

// Meta describes the inputs a report was computed from.
type Meta struct {
	BaseCurrency string                 `json:"base_currency"`
	Fingerprint  string                 `json:"fingerprint"`
	ComputedAt   time.Time              `json:"computed_at"`
	Accounts     []string               `json:"accounts"`
	Warnings     []currency.RateWarning `json:"warnings"`
}

// CategoryAllocation is the share of one account category in the latest point.
type CategoryAllocation struct {
	Category string          `json:"category"`
	Value    decimal.Decimal `json:"value"`
	Share    float64         `json:"share"`
	Accounts []string        `json:"accounts"`
}

// DailySeries is the output of GetDailySeries.
type DailySeries struct {
	Meta
	Points               []series.Point       `json:"points"`
	InsufficientAccounts []string             `json:"insufficient_accounts"`
	Allocation           []CategoryAllocation `json:"allocation"`
}

// CashFlowReport is the output of GetCashFlowBreakdown.
type CashFlowReport struct {
	Meta
	Breakdown *cash_flows.Breakdown `json:"breakdown"`
}

// RiskReport is the output of GetRiskMetrics.
type RiskReport struct {
	Meta
	Metrics *risk.Result `json:"metrics"`
}

// CorrelationReport is the output of GetCorrelationMatrix.
type CorrelationReport struct {
	Meta
	Correlation *correlation.Matrix `json:"correlation"`
}

// Config configures the service cache.
type Config struct {
	CacheSize int
	Staleness time.Duration
}

// Service implements the read-only analytics accessors. Every result is a
// fresh value shared through the cache and must not be modified by callers.
type Service struct {
	snapshots  SnapshotReader
	registry   accounts.Lister
	flows      FlowReader
	benchmarks BenchmarkReader
	normalizer Normalizer
	risk       *risk.Calculator
	analyzer   *correlation.Analyzer
	cache      *Cache[any]
	events     events.Emitter
	log        zerolog.Logger

	unsubscribe []func()
}

// NewService creates the analytics service. When bus is not nil the cache is
// purged on every store mutation.
func NewService(
	snapshots SnapshotReader,
	registry accounts.Lister,
	flows FlowReader,
	benchmarks BenchmarkReader,
	normalizer Normalizer,
	calculator *risk.Calculator,
	analyzer *correlation.Analyzer,
	bus *events.Bus,
	emitter events.Emitter,
	cfg Config,
	log zerolog.Logger,
) *Service {
	s := &Service{
		snapshots:  snapshots,
		registry:   registry,
		flows:      flows,
		benchmarks: benchmarks,
		normalizer: normalizer,
		risk:       calculator,
		analyzer:   analyzer,
		cache:      NewCache[any](cfg.CacheSize, cfg.Staleness, log),
		events:     emitter,
		log:        log.With().Str("service", "analytics").Logger(),
	}

	if bus != nil {
		for _, t := range events.MutationTypes {
			s.unsubscribe = append(s.unsubscribe, bus.Subscribe(t, s.onMutation))
		}
	}
	return s
}

// Close stops listening for mutations.
func (s *Service) Close() {
	for _, u := range s.unsubscribe {
		u()
	}
	s.unsubscribe = nil
}

func (s *Service) onMutation(e *events.Event) {
	s.Invalidate(string(e.Type))
}

// Invalidate drops every cached result.
func (s *Service) Invalidate(reason string) {
	s.cache.Purge()
	s.log.Debug().Str("reason", reason).Msg("Analytics cache invalidated")
	if s.events != nil {
		s.events.Emit(events.AnalyticsCacheInvalidated, "analytics", map[string]interface{}{"reason": reason})
	}
}

// CacheStats returns the cache counters.
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// GetDailySeries returns the aligned daily series of the requested accounts.
// Untracked accounts are loaded and reported apart from the performance total.
func (s *Service) GetDailySeries(ctx context.Context, p domain.Params) (*DailySeries, error) {
	in, err := s.load(ctx, KindSeries, p, true)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, in.fingerprint, func(ctx context.Context) (*DailySeries, error) {
		meta, res, err := s.build(ctx, in)
		if err != nil {
			return nil, err
		}

		out := &DailySeries{
			Meta:                 meta,
			Points:               res.Points,
			InsufficientAccounts: nonNil(res.Insufficient),
			Allocation:           allocation(res, in.inputs.Accounts),
		}
		if out.Points == nil {
			out.Points = []series.Point{}
		}
		return out, nil
	})
}

// GetCashFlowBreakdown classifies value changes of all requested accounts,
// tracked or not, into contributions, withdrawals and unclassified growth.
func (s *Service) GetCashFlowBreakdown(ctx context.Context, p domain.Params) (*CashFlowReport, error) {
	in, err := s.load(ctx, KindCashFlows, p, true)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, in.fingerprint, func(ctx context.Context) (*CashFlowReport, error) {
		meta, res, err := s.build(ctx, in)
		if err != nil {
			return nil, err
		}
		return &CashFlowReport{Meta: meta, Breakdown: cash_flows.BuildBreakdown(res, in.inputs.Flows)}, nil
	})
}

// GetRiskMetrics computes the risk bundle of the tracked total.
func (s *Service) GetRiskMetrics(ctx context.Context, p domain.Params) (*RiskReport, error) {
	in, err := s.load(ctx, KindRisk, p, false)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, in.fingerprint, func(ctx context.Context) (*RiskReport, error) {
		meta, res, err := s.build(ctx, in)
		if err != nil {
			return nil, err
		}
		return &RiskReport{Meta: meta, Metrics: s.risk.Compute(res, in.inputs.Params.BenchmarkID, in.inputs.Benchmark)}, nil
	})
}

// GetCorrelationMatrix correlates the requested accounts pairwise.
func (s *Service) GetCorrelationMatrix(ctx context.Context, p domain.Params) (*CorrelationReport, error) {
	in, err := s.load(ctx, KindCorrelation, p, false)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s.cache, in.fingerprint, func(ctx context.Context) (*CorrelationReport, error) {
		meta, res, err := s.build(ctx, in)
		if err != nil {
			return nil, err
		}
		return &CorrelationReport{Meta: meta, Correlation: s.analyzer.Analyze(res)}, nil
	})
}

type loaded struct {
	inputs      Inputs
	accountIDs  []string
	fingerprint string
}

// load reads every input of a computation and fingerprints it.
func (s *Service) load(ctx context.Context, kind Kind, p domain.Params, includeUntracked bool) (*loaded, error) {
	base, err := s.resolveBase(p.BaseCurrency)
	if err != nil {
		return nil, err
	}
	p.BaseCurrency = base
	if err := p.Range.Validate(); err != nil {
		return nil, err
	}

	registry, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	withSnapshots, err := s.snapshots.AccountIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot accounts: %w", err)
	}
	universe, err := accounts.Resolve(ctx, staticRegistry(registry), withSnapshots, p.AccountIDs, includeUntracked)
	if err != nil {
		return nil, err
	}

	in := Inputs{Kind: kind, Params: p, Base: base, Accounts: registry, Tracked: universe.Tracked}

	if len(universe.AccountIDs) > 0 {
		if in.Snapshots, err = s.snapshots.Query(ctx, universe.AccountIDs, p.Range); err != nil {
			return nil, fmt.Errorf("failed to load snapshots: %w", err)
		}
		if kind == KindCashFlows {
			if in.Flows, err = s.flows.List(ctx, universe.AccountIDs, p.Range); err != nil {
				return nil, fmt.Errorf("failed to load flow annotations: %w", err)
			}
		}
	}
	if kind == KindRisk && p.BenchmarkID != "" {
		if in.Benchmark, err = s.benchmarks.Series(ctx, p.BenchmarkID, p.Range); err != nil {
			return nil, fmt.Errorf("failed to load benchmark %s: %w", p.BenchmarkID, err)
		}
	}

	fp, err := Fingerprint(in)
	if err != nil {
		return nil, err
	}
	return &loaded{inputs: in, accountIDs: nonNil(universe.AccountIDs), fingerprint: fp}, nil
}

// build normalizes the loaded snapshots and aligns them into a series.
func (s *Service) build(ctx context.Context, in *loaded) (Meta, *series.Result, error) {
	timer := utils.NewTimer("analytics."+string(in.inputs.Kind), s.log)
	defer timer.StopWithContext(map[string]interface{}{"snapshots": len(in.inputs.Snapshots)})

	observations, warnings, err := s.normalizer.Normalize(ctx, in.inputs.Snapshots)
	if err != nil {
		return Meta{}, nil, err
	}
	if warnings == nil {
		warnings = []currency.RateWarning{}
	}

	meta := Meta{
		BaseCurrency: in.inputs.Base,
		Fingerprint:  in.fingerprint,
		ComputedAt:   time.Now().UTC(),
		Accounts:     in.accountIDs,
		Warnings:     warnings,
	}
	return meta, series.Build(observations, in.inputs.Tracked), nil
}

func (s *Service) resolveBase(requested string) (string, error) {
	base := s.normalizer.Base()
	requested = strings.ToUpper(strings.TrimSpace(requested))
	if requested == "" || requested == base {
		return base, nil
	}
	return "", domain.NewValidationError("base_currency", "must be "+base+", the configured base currency")
}

// cached adapts the shared cache to a typed result.
func cached[V any](ctx context.Context, c *Cache[any], fingerprint string, compute func(ctx context.Context) (V, error)) (V, error) {
	v, err := c.GetOrCompute(ctx, fingerprint, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	out, _ := v.(V)
	return out, nil
}

// allocation groups the account values of the latest point by registry category.
func allocation(res *series.Result, registry []domain.Account) []CategoryAllocation {
	out := []CategoryAllocation{}
	if len(res.Points) == 0 {
		return out
	}
	last := res.Points[len(res.Points)-1]

	categories := make(map[string]string, len(registry))
	for _, a := range registry {
		categories[a.ID] = a.Category
	}

	groups := make(map[string]*CategoryAllocation)
	add := func(id string, v decimal.Decimal) {
		cat := categories[id]
		if cat == "" {
			cat = Uncategorized
		}
		g, ok := groups[cat]
		if !ok {
			g = &CategoryAllocation{Category: cat, Value: decimal.Zero}
			groups[cat] = g
		}
		g.Value = g.Value.Add(v)
		g.Accounts = append(g.Accounts, id)
	}
	for id, v := range last.PerAccountValues {
		add(id, v)
	}
	for id, v := range last.UntrackedValues {
		add(id, v)
	}

	for _, g := range groups {
		sort.Strings(g.Accounts)
		if last.AllAccountsTotal.IsPositive() {
			g.Share = g.Value.Div(last.AllAccountsTotal).InexactFloat64()
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

type staticRegistry []domain.Account

func (r staticRegistry) List(context.Context) ([]domain.Account, error) {
	return r, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
