// internal/pipeline/priority/rank.go
package priority

import (
	"sort"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

// The pipeline uses three distinct ordering rules that must stay separate:
//
//   - the demand tuple (urgencyLess) breaks ties deterministically,
//     independent of any numeric score;
//   - competition ranking (ties share the minimum rank, the next rank
//     skips) orders the composite and proxy scores;
//   - the final table gets a dense 1..N rank after the overstock pass.

// urgencyLess orders two records by the demand sort key, highest urgency
// first: MarketWeight, then Penetration, then Requirement, then the Top SKU
// flag, all descending.
func urgencyLess(a, b *domain.SKURecord) bool {
	if a.MarketWeight != b.MarketWeight {
		return a.MarketWeight > b.MarketWeight
	}
	if a.Penetration != b.Penetration {
		return a.Penetration > b.Penetration
	}
	if a.Requirement != b.Requirement {
		return a.Requirement > b.Requirement
	}
	return a.TopSKUFlag > b.TopSKUFlag
}

// competitionRanks assigns descending competition ranks ("min" method) to
// the given scores: equal scores share the same rank and the following rank
// skips by the size of the tie group.
func competitionRanks(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	ranks := make([]int, len(scores))
	for pos, i := range idx {
		if pos > 0 && scores[i] == scores[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

// sortByScoreDesc orders records by the given score accessor descending,
// falling back to the demand tuple so equal scores come out in a stable,
// reproducible order.
func sortByScoreDesc(records []domain.SKURecord, score func(*domain.SKURecord) float64) {
	sort.SliceStable(records, func(a, b int) bool {
		sa, sb := score(&records[a]), score(&records[b])
		if sa != sb {
			return sa > sb
		}
		return urgencyLess(&records[a], &records[b])
	})
}
