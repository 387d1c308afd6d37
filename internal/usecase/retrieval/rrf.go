package retrieval

import "sort"

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges row rankings via Reciprocal Rank Fusion.
// score(row) = sum of 1/(k + rank_i + 1) over rankings containing the row.
// Ties keep first-appearance order, so fusion is deterministic for a fixed
// set of input rankings.
func fuseRRF(rankings [][]int, limit int) []int {
	scores := map[int]float64{}
	var order []int
	for _, ranking := range rankings {
		for rank, row := range ranking {
			if _, seen := scores[row]; !seen {
				order = append(order, row)
			}
			scores[row] += 1.0 / float64(rrfK+rank+1)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if limit < 1 {
		limit = 1
	}
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
