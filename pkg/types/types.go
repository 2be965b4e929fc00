package types

import (
	"errors"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Validation errors
var (
	ErrEmptyIdentity = errors.New("identity cannot be empty")
	ErrEmptyStrategy = errors.New("strategy cannot be empty")
)

// Metadata is an insertion-ordered field map attached to a retrieval hit.
type Metadata = orderedmap.OrderedMap[string, any]

// NewMetadata returns an empty Metadata map.
func NewMetadata() *Metadata {
	return orderedmap.New[string, any]()
}

// MetadataFromPairs builds a Metadata map from alternating key/value arguments.
// A trailing key without a value is ignored.
func MetadataFromPairs(kv ...any) *Metadata {
	m := NewMetadata()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m.Set(key, kv[i+1])
	}
	return m
}

// CloneMetadata returns a shallow copy of m preserving key order.
func CloneMetadata(m *Metadata) *Metadata {
	out := NewMetadata()
	if m == nil {
		return out
	}
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, pair.Value)
	}
	return out
}

// ScoredRecord is a single hit returned by one retrieval strategy.
type ScoredRecord struct {
	// Identity is the key used to merge the same entity across strategies.
	Identity string `json:"identity" mapstructure:"identity"`
	Text     string `json:"text,omitempty" mapstructure:"text"`
	// Score is local to the producing strategy until normalized.
	Score    float64   `json:"score" mapstructure:"score"`
	Metadata *Metadata `json:"metadata,omitempty" mapstructure:"-"`
	Strategy string    `json:"strategy" mapstructure:"strategy"`
	// Hit carries the strategy-specific payload, if the strategy produces one.
	Hit HitData `json:"-" mapstructure:"-"`
}

// Validate checks if the ScoredRecord has all required fields set.
func (r *ScoredRecord) Validate() error {
	if r.Identity == "" {
		return ErrEmptyIdentity
	}
	if r.Strategy == "" {
		return ErrEmptyStrategy
	}
	return nil
}

// StrategyHit is one strategy's contribution to a fused candidate.
type StrategyHit struct {
	Strategy string  `json:"strategy"`
	Score    float64 `json:"score"`
	Payload  HitData `json:"-"`
}

// CandidateRecord is an identity-grouped record produced by rank fusion.
type CandidateRecord struct {
	Identity string    `json:"identity"`
	Text     string    `json:"text,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	// Hits is ordered by the position of the contributing strategy in the fused input.
	Hits       []StrategyHit `json:"hits"`
	Strategies []string      `json:"strategies"`
	Score      float64       `json:"score"`
}

// HasStrategy reports whether the named strategy contributed to the candidate.
func (c *CandidateRecord) HasStrategy(name string) bool {
	for _, s := range c.Strategies {
		if s == name {
			return true
		}
	}
	return false
}

// CandidateFromRecord wraps a single ScoredRecord as an unfused candidate.
func CandidateFromRecord(r *ScoredRecord) *CandidateRecord {
	c := &CandidateRecord{
		Identity:   r.Identity,
		Text:       r.Text,
		Metadata:   r.Metadata,
		Score:      r.Score,
		Strategies: []string{r.Strategy},
		Hits:       []StrategyHit{{Strategy: r.Strategy, Score: r.Score, Payload: r.Hit}},
	}
	return c
}

// ContextFormat names the serialization of an assembled context.
type ContextFormat string

const (
	ContextFormatJSON ContextFormat = "json"
	ContextFormatYAML ContextFormat = "yaml"
)

// Context is the bounded payload handed to text generation.
type Context struct {
	Records  []*Metadata   `json:"records"`
	Document string        `json:"document"`
	Format   ContextFormat `json:"format"`
}

// Len returns the number of records in the context.
func (c *Context) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Records)
}
