package search

import (
	"sort"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// SearchScoreKey holds the unboosted similarity in boosted records.
const SearchScoreKey = "searchScore"

// WithAuxiliaryBoost turns the retriever into a post-filter retriever: the
// metadata field holds an auxiliary count that is folded into the score with
// ApplyAuxiliaryBoost.
func WithAuxiliaryBoost(field string) RetrieverOption {
	return func(r *VectorRetriever) { r.boostField = field }
}

// ApplyAuxiliaryBoost sets each score to (1 + aux) * similarity, where aux is
// the numeric metadata field (zero when absent). The similarity is kept in
// metadata under SearchScoreKey. Records are reordered by aux descending, then
// similarity descending; equal records keep their order.
func ApplyAuxiliaryBoost(records []*types.ScoredRecord, field string) {
	type boosted struct {
		record     *types.ScoredRecord
		aux        float64
		similarity float64
	}

	items := make([]boosted, len(records))
	for i, rec := range records {
		var aux float64
		if rec.Metadata != nil {
			if v, ok := rec.Metadata.Get(field); ok {
				aux, _ = driver.AsFloat64(v)
			}
		} else {
			rec.Metadata = types.NewMetadata()
		}
		similarity := rec.Score
		rec.Metadata.Set(SearchScoreKey, similarity)
		rec.Score = (1 + aux) * similarity
		items[i] = boosted{record: rec, aux: aux, similarity: similarity}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].aux != items[j].aux {
			return items[i].aux > items[j].aux
		}
		return items[i].similarity > items[j].similarity
	})
	for i := range items {
		records[i] = items[i].record
	}
}
