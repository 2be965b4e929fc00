package assembler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Field names of a flattened record.
const (
	TextKey            = "text"
	ScoreKey           = "score"
	DefaultHitKey      = "hitData"
	DefaultStrategyKey = "retrievalType"
	strategySeparator  = ", "
	hitBlockSeparator  = "\n"
)

// DefaultStripKeys are removed from every record at any depth.
var DefaultStripKeys = []string{"embedding", "textEmbedding"}

// ErrUnsupportedFormat is returned for a context format other than JSON or YAML.
var ErrUnsupportedFormat = errors.New("unsupported context format")

// Assembler flattens candidates into records and serializes them.
// It holds no per-call state and is safe for concurrent use.
type Assembler struct {
	renderers   map[string]Renderer
	stripKeys   map[string]struct{}
	format      types.ContextFormat
	ensureASCII bool
	hitKey      string
	strategyKey string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithRenderer registers the hit renderer for a strategy.
func WithRenderer(strategy string, r Renderer) Option {
	return func(a *Assembler) {
		if r == nil {
			r = RenderNothing
		}
		a.renderers[strategy] = r
	}
}

// WithStripKeys adds keys to the set removed from records. DefaultStripKeys
// are always removed.
func WithStripKeys(keys ...string) Option {
	return func(a *Assembler) {
		for _, k := range keys {
			a.stripKeys[k] = struct{}{}
		}
	}
}

// WithFormat selects JSON or YAML output.
func WithFormat(format types.ContextFormat) Option {
	return func(a *Assembler) {
		a.format = format
	}
}

// WithEnsureASCII escapes non-ASCII characters in JSON output.
func WithEnsureASCII(enabled bool) Option {
	return func(a *Assembler) {
		a.ensureASCII = enabled
	}
}

// WithHitKey sets the field the rendered hit blocks are written to.
func WithHitKey(key string) Option {
	return func(a *Assembler) {
		a.hitKey = key
	}
}

// WithStrategyKey adds a field listing the contributing strategies.
func WithStrategyKey(key string) Option {
	return func(a *Assembler) {
		a.strategyKey = key
	}
}

// New creates an Assembler producing JSON with the default strip keys.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		renderers: make(map[string]Renderer),
		format:    types.ContextFormatJSON,
		hitKey:    DefaultHitKey,
		stripKeys: make(map[string]struct{}, len(DefaultStripKeys)),
	}
	WithStripKeys(DefaultStripKeys...)(a)
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Format returns the configured output format.
func (a *Assembler) Format() types.ContextFormat {
	return a.format
}

// Assemble flattens the candidates in order and serializes them.
func (a *Assembler) Assemble(candidates []*types.CandidateRecord) (*types.Context, error) {
	records := make([]*types.Metadata, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		records = append(records, a.flatten(c))
	}
	return a.serialize(records)
}

// AssembleRecords assembles the hits of a single strategy without fusion.
func (a *Assembler) AssembleRecords(records []*types.ScoredRecord) (*types.Context, error) {
	candidates := make([]*types.CandidateRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		candidates = append(candidates, types.CandidateFromRecord(r))
	}
	return a.Assemble(candidates)
}

// AssembleRows serializes raw result rows, such as those of a generated
// statement. Row keys are emitted in sorted order.
func (a *Assembler) AssembleRows(rows []map[string]any) (*types.Context, error) {
	records := make([]*types.Metadata, 0, len(rows))
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rec := types.NewMetadata()
		for _, k := range keys {
			rec.Set(k, row[k])
		}
		a.strip(rec)
		records = append(records, rec)
	}
	return a.serialize(records)
}

func (a *Assembler) flatten(c *types.CandidateRecord) *types.Metadata {
	rec := types.NewMetadata()
	if c.Text != "" {
		rec.Set(TextKey, c.Text)
	}
	rec.Set(ScoreKey, c.Score)

	if c.Metadata != nil {
		for pair := c.Metadata.Oldest(); pair != nil; pair = pair.Next() {
			if pair.Value == nil {
				continue
			}
			rec.Set(pair.Key, pair.Value)
		}
	}

	if block := a.render(c.Hits); block != "" {
		rec.Set(a.hitKey, block)
	}
	if a.strategyKey != "" && len(c.Strategies) > 0 {
		rec.Set(a.strategyKey, strings.Join(c.Strategies, strategySeparator))
	}

	a.strip(rec)
	return rec
}

func (a *Assembler) render(hits []types.StrategyHit) string {
	var blocks []string
	for _, hit := range hits {
		if hit.Payload == nil {
			continue
		}
		r, ok := a.renderers[hit.Strategy]
		if !ok {
			r = defaultRenderer
		}
		if block := r(hit.Payload); block != "" {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, hitBlockSeparator)
}

func (a *Assembler) serialize(records []*types.Metadata) (*types.Context, error) {
	var (
		doc string
		err error
	)
	switch a.format {
	case types.ContextFormatJSON, "":
		doc, err = encodeJSON(records, a.ensureASCII)
	case types.ContextFormatYAML:
		doc, err = encodeYAML(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, a.format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to serialize context: %w", err)
	}

	format := a.format
	if format == "" {
		format = types.ContextFormatJSON
	}
	return &types.Context{Records: records, Document: doc, Format: format}, nil
}

// strip removes configured keys and raw vectors from rec in place.
func (a *Assembler) strip(rec *types.Metadata) {
	var drop []string
	for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
		if a.isStripped(pair.Key, pair.Value) {
			drop = append(drop, pair.Key)
			continue
		}
		pair.Value = a.stripValue(pair.Value)
	}
	for _, k := range drop {
		rec.Delete(k)
	}
}

func (a *Assembler) isStripped(key string, value any) bool {
	if _, ok := a.stripKeys[key]; ok {
		return true
	}
	return isVector(value)
}

func (a *Assembler) stripValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if a.isStripped(k, inner) {
				continue
			}
			out[k] = a.stripValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = a.stripValue(inner)
		}
		return out
	case []map[string]any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = a.stripValue(inner)
		}
		return out
	case *types.Metadata:
		out := types.CloneMetadata(val)
		a.strip(out)
		return out
	default:
		return v
	}
}

// isVector reports whether v is a float vector. Lists read through the
// driver arrive as []any, so a non-empty list holding only floats counts.
func isVector(v any) bool {
	switch val := v.(type) {
	case []float32, []float64:
		return true
	case []any:
		if len(val) == 0 {
			return false
		}
		for _, e := range val {
			switch e.(type) {
			case float32, float64:
			default:
				return false
			}
		}
		return true
	default:
		return false
	}
}
