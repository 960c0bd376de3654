package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/networth/internal/domain"
	testingpkg "github.com/aristath/networth/internal/testing"
)

func baseInputs() Inputs {
	return Inputs{
		Kind:    KindRisk,
		Params:  domain.Params{AccountIDs: []string{"b", "a"}, BenchmarkID: "^GSPC"},
		Base:    "USD",
		Tracked: map[string]bool{"a": true, "b": false},
		Snapshots: []domain.Snapshot{
			testingpkg.Snapshot("a", 1, "USD", "100.50"),
			testingpkg.Snapshot("b", 1, "EUR", "20"),
			testingpkg.Snapshot("a", 2, "USD", "101"),
		},
		Flows: []domain.FlowAnnotation{testingpkg.Flow("a", 2, domain.FlowContribution, "10")},
		Benchmark: []domain.BenchmarkPoint{
			{Date: testingpkg.Day(1), Value: testingpkg.Dec("4700")},
		},
	}
}

func fingerprint(t *testing.T, in Inputs) string {
	t.Helper()
	fp, err := Fingerprint(in)
	require.NoError(t, err)
	return fp
}

func TestFingerprint_Deterministic(t *testing.T) {
	fp := fingerprint(t, baseInputs())
	assert.Len(t, fp, 64)
	assert.Equal(t, fp, fingerprint(t, baseInputs()))
}

func TestFingerprint_IgnoresOrderAndDecimalScale(t *testing.T) {
	in := baseInputs()
	in.Snapshots[0], in.Snapshots[2] = in.Snapshots[2], in.Snapshots[0]
	in.Params.AccountIDs = []string{"a", "b"}
	in.Snapshots[2].RawValue = testingpkg.Dec("100.5000")

	assert.Equal(t, fingerprint(t, baseInputs()), fingerprint(t, in))
}

func TestFingerprint_ChangesWithInputs(t *testing.T) {
	base := fingerprint(t, baseInputs())

	mutations := map[string]func(*Inputs){
		"value":     func(in *Inputs) { in.Snapshots[0].RawValue = testingpkg.Dec("100.51") },
		"currency":  func(in *Inputs) { in.Snapshots[1].Currency = "GBP" },
		"new date":  func(in *Inputs) { in.Snapshots = append(in.Snapshots, testingpkg.Snapshot("a", 3, "USD", "1")) },
		"range":     func(in *Inputs) { in.Params.Range.From = testingpkg.Day(2) },
		"benchmark": func(in *Inputs) { in.Params.BenchmarkID = "^IXIC" },
		"kind":      func(in *Inputs) { in.Kind = KindCorrelation },
		"tracked":   func(in *Inputs) { in.Tracked["b"] = true },
		"flow":      func(in *Inputs) { in.Flows[0].Amount = testingpkg.Dec("11") },
		"category": func(in *Inputs) {
			in.Accounts = []domain.Account{{ID: "a", Currency: "USD", Category: "stocks"}}
		},
		"benchmark point": func(in *Inputs) { in.Benchmark[0].Value = testingpkg.Dec("4701") },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			in := baseInputs()
			mutate(&in)
			assert.NotEqual(t, base, fingerprint(t, in))
		})
	}
}
