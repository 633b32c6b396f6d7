// internal/pipeline/priority/reconcile.go
package priority

import "github.com/andresuchdata/vector-priority/internal/domain"

// reconcileRule parameterizes the outer-join-with-imputation step shared by
// deployment reconciliation (ghost SKUs) and manual override synthesis
// (supersession). The left set is always the current batch of SKU records;
// the right set is the external feed being reconciled against it.
//
// Two modes, selected by Match:
//
//   - join mode (Match != nil): right values are applied onto matching left
//     rows, unmatched left rows get Impute, and right-side orphans are
//     synthesized and appended;
//   - supersede mode (Match == nil): every right row is synthesized and
//     matched left rows are dropped entirely — no blending.
type reconcileRule[R any] struct {
	// Key extracts the join key from a right-side row.
	Key func(R) string

	// Match applies a matched right row onto a left record (join mode).
	Match func(*domain.SKURecord, R)

	// Impute fills a left record that had no right match (join mode).
	Impute func(*domain.SKURecord)

	// ScoreFloor derives the floor value handed to Synthesize from the
	// left batch, typically its minimum score. Nil means 0.
	ScoreFloor func([]domain.SKURecord) float64

	// Synthesize builds a full record from a right-side row that has no
	// left counterpart (join mode) or from every right row (supersede
	// mode).
	Synthesize func(R, float64) domain.SKURecord
}

// reconcile executes the rule and returns surviving left rows followed by
// synthesized right rows. Ordering between the two blocks is the caller's
// concern; every later rank is assigned after a dedicated sort.
func reconcile[R any](left []domain.SKURecord, right []R, rule reconcileRule[R]) []domain.SKURecord {
	rightByKey := make(map[string]R, len(right))
	rightOrder := make([]string, 0, len(right))
	for _, r := range right {
		key := rule.Key(r)
		if _, seen := rightByKey[key]; !seen {
			rightOrder = append(rightOrder, key)
		}
		rightByKey[key] = r
	}

	leftKeys := make(map[string]struct{}, len(left))
	out := make([]domain.SKURecord, 0, len(left)+len(right))

	for i := range left {
		rec := left[i]
		leftKeys[rec.SKUCode] = struct{}{}
		r, matched := rightByKey[rec.SKUCode]
		if rule.Match != nil {
			if matched {
				rule.Match(&rec, r)
			} else if rule.Impute != nil {
				rule.Impute(&rec)
			}
			out = append(out, rec)
			continue
		}
		// Supersede mode: a right row with the same key replaces the
		// left row outright.
		if !matched {
			out = append(out, rec)
		}
	}

	if rule.Synthesize == nil {
		return out
	}

	floor := 0.0
	if rule.ScoreFloor != nil {
		floor = rule.ScoreFloor(left)
	}

	for _, key := range rightOrder {
		if rule.Match != nil {
			// Join mode synthesizes right-side orphans only.
			if _, inLeft := leftKeys[key]; inLeft {
				continue
			}
		}
		out = append(out, rule.Synthesize(rightByKey[key], floor))
	}

	return out
}

// minCompositeScore is the usual score-floor rule: the minimum composite
// score over the batch, 0 for an empty batch.
func minCompositeScore(batch []domain.SKURecord) float64 {
	if len(batch) == 0 {
		return 0
	}
	min := batch[0].CompositeScore
	for i := range batch {
		if batch[i].CompositeScore < min {
			min = batch[i].CompositeScore
		}
	}
	return min
}
