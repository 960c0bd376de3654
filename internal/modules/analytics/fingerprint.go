package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aristath/networth/internal/domain"
)

// Kind names the accessor a fingerprint belongs to.
type Kind string

const (
	KindSeries      Kind = "series"
	KindCashFlows   Kind = "cash_flows"
	KindRisk        Kind = "risk"
	KindCorrelation Kind = "correlation"
)

// Inputs is everything a computation reads. Two equal Inputs always produce
// the same fingerprint.
type Inputs struct {
	Kind      Kind
	Params    domain.Params
	Base      string
	Accounts  []domain.Account
	Tracked   map[string]bool
	Snapshots []domain.Snapshot
	Flows     []domain.FlowAnnotation
	Benchmark []domain.BenchmarkPoint
}

type snapshotTuple struct {
	_msgpack  struct{} `msgpack:",as_array"`
	AccountID string
	Date      string
	RawValue  string
	Currency  string
}

type flowTuple struct {
	_msgpack  struct{} `msgpack:",as_array"`
	ID        string
	AccountID string
	Date      string
	Amount    string
	Kind      string
}

type accountTuple struct {
	_msgpack struct{} `msgpack:",as_array"`
	ID       string
	Category string
	Tracked  bool
}

type pointTuple struct {
	_msgpack struct{} `msgpack:",as_array"`
	Date     string
	Value    string
}

type canonical struct {
	Kind       string          `msgpack:"kind"`
	AccountIDs []string        `msgpack:"account_ids"`
	From       string          `msgpack:"from"`
	To         string          `msgpack:"to"`
	Base       string          `msgpack:"base"`
	Benchmark  string          `msgpack:"benchmark"`
	Accounts   []accountTuple  `msgpack:"accounts"`
	Snapshots  []snapshotTuple `msgpack:"snapshots"`
	Flows      []flowTuple     `msgpack:"flows"`
	Points     []pointTuple    `msgpack:"points"`
}

// Fingerprint hashes the canonical msgpack encoding of the inputs with SHA-256.
//
// Decimals are encoded in their normalized string form so 1.50 and 1.5 hash
// alike. Slices are sorted first, which makes the hash independent of query order.
func Fingerprint(in Inputs) (string, error) {
	c := canonical{
		Kind:       string(in.Kind),
		AccountIDs: append([]string{}, in.Params.AccountIDs...),
		Base:       in.Base,
		Benchmark:  in.Params.BenchmarkID,
		Accounts:   make([]accountTuple, 0, len(in.Tracked)),
		Snapshots:  make([]snapshotTuple, 0, len(in.Snapshots)),
		Flows:      make([]flowTuple, 0, len(in.Flows)),
		Points:     make([]pointTuple, 0, len(in.Benchmark)),
	}
	sort.Strings(c.AccountIDs)
	if !in.Params.Range.From.IsZero() {
		c.From = domain.FormatDate(in.Params.Range.From)
	}
	if !in.Params.Range.To.IsZero() {
		c.To = domain.FormatDate(in.Params.Range.To)
	}

	categories := make(map[string]string, len(in.Accounts))
	for _, a := range in.Accounts {
		categories[a.ID] = a.Category
	}
	for id, tracked := range in.Tracked {
		c.Accounts = append(c.Accounts, accountTuple{ID: id, Category: categories[id], Tracked: tracked})
	}
	sort.Slice(c.Accounts, func(i, j int) bool { return c.Accounts[i].ID < c.Accounts[j].ID })

	for _, s := range in.Snapshots {
		c.Snapshots = append(c.Snapshots, snapshotTuple{
			AccountID: s.AccountID,
			Date:      domain.FormatDate(s.Date),
			RawValue:  s.RawValue.String(),
			Currency:  s.Currency,
		})
	}
	sort.Slice(c.Snapshots, func(i, j int) bool {
		a, b := c.Snapshots[i], c.Snapshots[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.AccountID < b.AccountID
	})

	for _, f := range in.Flows {
		c.Flows = append(c.Flows, flowTuple{
			ID:        f.ID,
			AccountID: f.AccountID,
			Date:      domain.FormatDate(f.Date),
			Amount:    f.Amount.String(),
			Kind:      string(f.Kind),
		})
	}
	sort.Slice(c.Flows, func(i, j int) bool {
		a, b := c.Flows[i], c.Flows[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		return a.ID < b.ID
	})

	for _, p := range in.Benchmark {
		c.Points = append(c.Points, pointTuple{Date: domain.FormatDate(p.Date), Value: p.Value.String()})
	}
	sort.Slice(c.Points, func(i, j int) bool { return c.Points[i].Date < c.Points[j].Date })

	h := sha256.New()
	if err := msgpack.NewEncoder(h).Encode(&c); err != nil {
		return "", fmt.Errorf("failed to encode fingerprint inputs: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
