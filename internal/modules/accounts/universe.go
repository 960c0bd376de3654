package accounts

import (
	"context"
	"fmt"
	"sort"

	"github.com/aristath/networth/internal/domain"
)

// Lister is the registry read side used to resolve account universes
type Lister interface {
	List(ctx context.Context) ([]domain.Account, error)
}

// Universe describes which accounts an analytics request covers.
type Universe struct {
	// AccountIDs are the accounts to load, sorted.
	AccountIDs []string
	// Tracked marks the accounts contributing to the performance total.
	Tracked map[string]bool
}

// Resolve builds the universe for a request.
//
// Accounts missing from the registry count as tracked. With an explicit filter
// every requested account is loaded and untracked ones stay out of the
// performance total. Without a filter the accounts that have snapshots are
// loaded, skipping untracked ones unless includeUntracked is set (cash flow
// accounting covers all accounts).
func Resolve(ctx context.Context, registry Lister, snapshotAccounts []string, requested []string, includeUntracked bool) (*Universe, error) {
	accounts, err := registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account universe: %w", err)
	}

	registered := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		registered[a.ID] = a.Tracked
	}
	isTracked := func(id string) bool {
		tracked, known := registered[id]
		return !known || tracked
	}

	u := &Universe{Tracked: make(map[string]bool)}
	add := func(id string) {
		if _, dup := u.Tracked[id]; dup {
			return
		}
		u.AccountIDs = append(u.AccountIDs, id)
		u.Tracked[id] = isTracked(id)
	}

	switch {
	case len(requested) > 0:
		for _, id := range requested {
			add(id)
		}
	default:
		for _, id := range snapshotAccounts {
			if includeUntracked || isTracked(id) {
				add(id)
			}
		}
	}

	sort.Strings(u.AccountIDs)
	return u, nil
}
