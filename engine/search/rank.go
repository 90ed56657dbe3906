package search

import (
	"sort"

	"github.com/MotorMindAI/motormind-mvp/engine/domain"
)

// RankAndTrim orders results and keeps the top topK. With a year preference
// the model year is the primary key and score breaks ties; otherwise score
// descending with record ID as the deterministic tiebreaker. The sort is
// stable so equal elements keep their store order.
func RankAndTrim(results []domain.SearchResult, pref domain.YearPreference, topK int) []domain.SearchResult {
	switch pref {
	case domain.YearNewest:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Record.ModelYear != results[j].Record.ModelYear {
				return results[i].Record.ModelYear > results[j].Record.ModelYear
			}
			return results[i].Score > results[j].Score
		})
	case domain.YearOldest:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Record.ModelYear != results[j].Record.ModelYear {
				return results[i].Record.ModelYear < results[j].Record.ModelYear
			}
			return results[i].Score > results[j].Score
		})
	default:
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].Record.ID < results[j].Record.ID
		})
	}

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
