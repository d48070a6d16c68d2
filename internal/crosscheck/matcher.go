// Package crosscheck joins sanction registries with contract records and
// summarizes the contracts that were signed while a sanction was in force.
//
// Everything here is pure: callers hand in parsed records and get new values
// back. Inputs are never mutated.
package crosscheck

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/integrity/sanctions-crosscheck/internal/domain"
)

// Index buckets matchable sanctions by identifier, keeping input order per bucket.
// It is read-only once built and safe to share between goroutines.
type Index struct {
	buckets map[domain.Identifier][]domain.SanctionRecord
	size    int
}

// NewIndex drops sanctions without a CPF/CNPJ identifier or a start date and indexes the rest
func NewIndex(sanctions []domain.SanctionRecord) *Index {
	return buildIndex(sanctions, (*domain.SanctionRecord).Matchable)
}

// NewRegistryIndex indexes every sanction with a CPF/CNPJ identifier, dated or not.
// It answers registry lookups; undated rows in it still never match a contract.
func NewRegistryIndex(sanctions []domain.SanctionRecord) *Index {
	return buildIndex(sanctions, func(s *domain.SanctionRecord) bool {
		return s.Identifier.Kind() != domain.KindInvalid
	})
}

func buildIndex(sanctions []domain.SanctionRecord, keep func(*domain.SanctionRecord) bool) *Index {
	idx := &Index{buckets: make(map[domain.Identifier][]domain.SanctionRecord)}
	for i := range sanctions {
		s := sanctions[i]
		if !keep(&s) {
			continue
		}
		idx.buckets[s.Identifier] = append(idx.buckets[s.Identifier], s)
		idx.size++
	}
	return idx
}

// Lookup returns the indexed sanctions for id. The slice must not be modified.
func (idx *Index) Lookup(id domain.Identifier) []domain.SanctionRecord {
	return idx.buckets[id]
}

// Len returns the number of indexed sanctions
func (idx *Index) Len() int {
	return idx.size
}

// Entities returns the number of distinct sanctioned identifiers
func (idx *Index) Entities() int {
	return len(idx.buckets)
}

// Match flags every (contract, sanction) pair sharing an identifier where the
// contract was signed inside the sanction window. Rows missing an identifier
// or their anchoring date are skipped.
func Match(sanctions []domain.SanctionRecord, contracts []domain.ContractRecord) []domain.FlaggedPair {
	return NewIndex(sanctions).Match(contracts)
}

// Match runs the overlap join of contracts against the index
func (idx *Index) Match(contracts []domain.ContractRecord) []domain.FlaggedPair {
	flagged := idx.collect(contracts)
	sortFlagged(flagged)
	return flagged
}

func (idx *Index) collect(contracts []domain.ContractRecord) []domain.FlaggedPair {
	var flagged []domain.FlaggedPair
	for _, c := range contracts {
		if !c.Matchable() {
			continue
		}
		for _, s := range idx.buckets[c.Identifier] {
			if s.ActiveOn(*c.SignedDate) {
				flagged = append(flagged, domain.NewFlaggedPair(c, s))
			}
		}
	}
	return flagged
}

// MatchSharded splits contracts into contiguous shards, matches them
// concurrently against the shared index, then concatenates in shard order and
// sorts. The result is identical to idx.Match(contracts).
func MatchSharded(ctx context.Context, idx *Index, contracts []domain.ContractRecord, shards int) ([]domain.FlaggedPair, error) {
	if shards <= 1 || len(contracts) < shards {
		return idx.Match(contracts), nil
	}

	size := (len(contracts) + shards - 1) / shards
	partials := make([][]domain.FlaggedPair, shards)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * size
		if lo >= len(contracts) {
			break
		}
		hi := min(lo+size, len(contracts))
		shard := i

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			partials[shard] = idx.collect(contracts[lo:hi])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, p := range partials {
		total += len(p)
	}
	flagged := make([]domain.FlaggedPair, 0, total)
	for _, p := range partials {
		flagged = append(flagged, p...)
	}
	sortFlagged(flagged)
	return flagged, nil
}

// sortFlagged orders by signed date, then identifier. The sort is stable so
// ties keep contract input order, then sanction bucket order.
func sortFlagged(flagged []domain.FlaggedPair) {
	sort.SliceStable(flagged, func(i, j int) bool {
		di, dj := *flagged[i].Contract.SignedDate, *flagged[j].Contract.SignedDate
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return flagged[i].Contract.Identifier < flagged[j].Contract.Identifier
	})
}
