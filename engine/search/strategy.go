package search

import "github.com/MotorMindAI/motormind-mvp/engine/domain"

// Choose picks the retrieval strategy for a filter set.
//
// A question that names a model keeps its semantic weight even when exact
// filters ride along, so it goes through vector search with post-filtering.
// Exact filters without a model mean the user asked for attributes, not a
// vibe: a filtered scan answers that precisely and skips the embedding call.
func Choose(f domain.FilterSet) domain.Strategy {
	if f.HasExact() && f.Model == "" {
		return domain.StrategyFilteredScan
	}
	return domain.StrategyVectorSearch
}
