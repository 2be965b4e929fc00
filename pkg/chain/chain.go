package chain

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/assembler"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/prompts"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Routing tags attached to language model calls.
const (
	UsageAnswer      = "answer"
	UsageText2Cypher = "text2cypher"
)

var (
	// ErrEmptyPrompt is returned when a request carries no prompt.
	ErrEmptyPrompt = errors.New("prompt cannot be empty")

	// ErrNoLanguageModel is returned by Invoke on a chain built without one.
	ErrNoLanguageModel = errors.New("chain has no language model")
)

// Request is one chain invocation.
type Request struct {
	// Prompt is the question answered by the language model.
	Prompt string `json:"prompt"`
	// SearchText replaces Prompt as the retrieval input when set.
	SearchText string `json:"search_text,omitempty"`
	// Instructions replace the chain's instructions for this call when set.
	Instructions string `json:"instructions,omitempty"`
	// Params are extra statement parameters such as a customer id.
	Params map[string]any `json:"params,omitempty"`
}

func (r Request) searchText() string {
	if r.SearchText != "" {
		return r.SearchText
	}
	return r.Prompt
}

// Answer is the outcome of an invocation: the generated text together with
// the context it was grounded on and every statement issued to produce it.
type Answer struct {
	Answer     string                   `json:"answer"`
	Context    *types.Context           `json:"context,omitempty"`
	Queries    []*types.RetrievalQuery  `json:"queries,omitempty"`
	Candidates []*types.CandidateRecord `json:"candidates,omitempty"`
	Warnings   []string                 `json:"warnings,omitempty"`
}

// Chain answers a question from the graph.
type Chain interface {
	Name() string
	Invoke(ctx context.Context, req Request) (*Answer, error)
}

// Observer receives one measurement per invocation. telemetry.Metrics
// implements it.
type Observer interface {
	ObserveChain(chain string, elapsed time.Duration, err error)
}

type options struct {
	instructions string
	topK         int
	assembler    *assembler.Assembler
	logger       *slog.Logger
	observer     Observer

	// text-to-Cypher
	maxAttempts int
	retryDelay  time.Duration
	structured  bool
	examples    string
	rowAnswer   bool
	stripKeys   []string
	generation  *prompts.Template
	response    *prompts.Template
}

// Option configures a chain.
type Option func(*options)

// WithInstructions sets the text placed before the question and context.
func WithInstructions(instructions string) Option {
	return func(o *options) { o.instructions = instructions }
}

// WithTopK sets the number of records retrieved per invocation.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithAssembler replaces the default JSON assembler.
func WithAssembler(a *assembler.Assembler) Option {
	return func(o *options) { o.assembler = a }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver reports every invocation to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func newOptions(opts []Option) options {
	o := options{
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.assembler == nil {
		o.assembler = assembler.New()
	}
	return o
}

// observe tags ctx with the chain name and reports the invocation once fn
// returns.
func (o *options) observe(ctx context.Context, name string, fn func(ctx context.Context) (*Answer, error)) (*Answer, error) {
	start := time.Now()
	ctx = context.WithValue(ctx, types.ContextKeyChain, name)

	answer, err := fn(ctx)

	elapsed := time.Since(start)
	if o.observer != nil {
		o.observer.ObserveChain(name, elapsed, err)
	}
	if err != nil {
		o.logger.ErrorContext(ctx, "chain invocation failed", "chain", name, "duration", elapsed, "error", err)
		return nil, err
	}
	o.logger.InfoContext(ctx, "chain invocation completed", "chain", name, "duration", elapsed)
	return answer, nil
}

// complete sends prompt as a single user message. Failures, including an
// empty reply, are reported as GenerationServiceError for stage.
func complete(ctx context.Context, llm nlp.Client, usage, stage, prompt string) (string, error) {
	resp, err := llm.Chat(nlp.WithUsage(ctx, usage), []types.Message{nlp.NewUserMessage(prompt)})
	if err != nil {
		return "", nlp.NewGenerationServiceError(stage, err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", nlp.NewGenerationServiceError(stage, nlp.ErrEmptyResponse)
	}
	return resp.Content, nil
}
