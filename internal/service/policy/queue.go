package policy

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	domainbr "github.com/alanyang/build-mesh/internal/domain/buildrequest"
	portbr "github.com/alanyang/build-mesh/internal/port/buildrequest"
)

// Lexicographic orders builders by name.
func Lexicographic(_ context.Context, builders []string) ([]string, error) {
	out := slices.Clone(builders)
	sort.Strings(out)
	return out, nil
}

// OldestRequestFirst gives the first turn to the builder whose oldest unclaimed request
// has waited longest. Builders with nothing pending go last, by name.
func OldestRequestFirst(store portbr.ClaimStore) QueueOrderer {
	return func(ctx context.Context, builders []string) ([]string, error) {
		type entry struct {
			name   string
			oldest time.Time
			has    bool
		}
		entries := make([]entry, 0, len(builders))
		for _, name := range builders {
			reqs, err := store.ListUnclaimed(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("list unclaimed for %q: %w", name, err)
			}
			e := entry{name: name}
			if len(reqs) > 0 {
				domainbr.SortOldestFirst(reqs)
				e.oldest, e.has = reqs[0].SubmittedAt, true
			}
			entries = append(entries, e)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.has != b.has {
				return a.has
			}
			if a.has && !a.oldest.Equal(b.oldest) {
				return a.oldest.Before(b.oldest)
			}
			return a.name < b.name
		})
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.name
		}
		return out, nil
	}
}

// IsPermutation reports whether ordered holds exactly the names of input.
func IsPermutation(input, ordered []string) bool {
	if len(input) != len(ordered) {
		return false
	}
	counts := make(map[string]int, len(input))
	for _, n := range input {
		counts[n]++
	}
	for _, n := range ordered {
		counts[n]--
		if counts[n] < 0 {
			return false
		}
	}
	return true
}
