package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/assembler"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/prompts"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second

	// StrategyText2Cypher tags the generated statements.
	StrategyText2Cypher = "text2cypher"
)

// ErrEmptyStatement is returned when the model produced no statement.
var ErrEmptyStatement = errors.New("generated statement is empty")

// WithMaxAttempts bounds the generate-and-execute attempts. Values below one
// keep the default.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithRetryDelay sets the pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.retryDelay = d }
}

// WithStructuredOutput asks the model for {"cypher": "..."} instead of bare
// Cypher.
func WithStructuredOutput(enabled bool) Option {
	return func(o *options) { o.structured = enabled }
}

// WithStripProperties removes properties from the result rows at any depth.
func WithStripProperties(keys ...string) Option {
	return func(o *options) { o.stripKeys = keys }
}

// WithGenerationTemplate replaces the statement generation template. A
// template declaring {schema} receives the chain instructions there instead
// of as a prefix; {query_text} and {input} both receive the question.
func WithGenerationTemplate(t *prompts.Template) Option {
	return func(o *options) { o.generation = t }
}

// WithExamples fills the {examples} variable of the generation template.
func WithExamples(examples string) Option {
	return func(o *options) { o.examples = examples }
}

// WithResponseTemplate replaces the template that turns rows into an answer.
func WithResponseTemplate(t *prompts.Template) Option {
	return func(o *options) { o.response = t }
}

// WithRowAnswer skips the second model call: the answer is the serialized
// rows, one per paragraph.
func WithRowAnswer() Option {
	return func(o *options) { o.rowAnswer = true }
}

// Text2Cypher answers a question by having the language model write a Cypher
// statement against a described schema, running it read-only and summarising
// the rows. Failed attempts are retried with the error appended to the
// question; when every attempt fails the answer reports the errors and
// Invoke returns no error.
type Text2Cypher struct {
	name string
	llm  nlp.Client
	exec driver.QueryExecutor
	rows *assembler.Assembler
	opts options
	wait func(ctx context.Context, d time.Duration) error
}

// NewText2Cypher creates a chain. The instructions option carries the schema
// description.
func NewText2Cypher(name string, llm nlp.Client, exec driver.QueryExecutor, opts ...Option) *Text2Cypher {
	o := newOptions(opts)
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultMaxAttempts
	}
	if o.generation == nil {
		o.generation = prompts.Text2CypherAskTemplate
		if o.structured {
			o.generation = prompts.Text2CypherStructuredAskTemplate
		}
	}
	if o.response == nil {
		o.response = prompts.Text2CypherResponseTemplate
	}

	rows := assembler.New()
	if len(o.stripKeys) > 0 {
		rows = assembler.New(assembler.WithStripKeys(o.stripKeys...))
	}

	return &Text2Cypher{
		name: name,
		llm:  llm,
		exec: exec,
		rows: rows,
		opts: o,
		wait: sleep,
	}
}

// Name returns the chain name.
func (c *Text2Cypher) Name() string {
	return c.name
}

// Invoke runs up to the configured number of attempts.
func (c *Text2Cypher) Invoke(ctx context.Context, req Request) (*Answer, error) {
	return c.opts.observe(ctx, c.name, func(ctx context.Context) (*Answer, error) {
		if c.llm == nil {
			return nil, ErrNoLanguageModel
		}
		if req.Prompt == "" {
			return nil, ErrEmptyPrompt
		}

		question := req.Prompt
		var (
			failures []string
			queries  []*types.RetrievalQuery
		)
		for attempt := 1; attempt <= c.opts.maxAttempts; attempt++ {
			answer, query, err := c.attempt(ctx, req, question)
			if query != nil {
				queries = append(queries, query)
			}
			if err == nil {
				answer.Queries = queries
				return answer, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			c.opts.logger.WarnContext(ctx, "text2cypher attempt failed",
				"chain", c.name,
				"attempt", attempt,
				"max_attempts", c.opts.maxAttempts,
				"error", err)

			message := fmt.Sprintf("\nError on last attempt number %d: %v", attempt, err)
			failures = append(failures, message)
			question += message

			if attempt < c.opts.maxAttempts {
				if err := c.wait(ctx, c.opts.retryDelay); err != nil {
					return nil, err
				}
			}
		}

		return &Answer{
			Answer:   fmt.Sprintf("Failed after %d attempts. Errors: %s", c.opts.maxAttempts, listLiteral(failures)),
			Queries:  queries,
			Warnings: failures,
		}, nil
	})
}

// attempt generates a statement from question, executes it and answers
// req.Prompt from the rows. The query is returned whenever a statement was
// generated, even if a later step failed.
func (c *Text2Cypher) attempt(ctx context.Context, req Request, question string) (*Answer, *types.RetrievalQuery, error) {
	statement, err := c.generate(ctx, req, question)
	if err != nil {
		return nil, nil, err
	}
	query := types.NewRetrievalQuery(StrategyText2Cypher, statement, req.Params)
	c.opts.logger.InfoContext(ctx, "text2cypher query generated", "chain", c.name, "cypher", statement)

	rows, err := c.exec.ExecuteQuery(ctx, statement, req.Params)
	if err != nil {
		return nil, query, search.NewRetrievalExecutionError(StrategyText2Cypher, statement, err)
	}

	docs, err := c.rows.AssembleRows(rows)
	if err != nil {
		return nil, query, fmt.Errorf("failed to assemble rows: %w", err)
	}

	answer := &Answer{Context: docs}
	if c.opts.rowAnswer {
		answer.Answer, err = rowParagraphs(docs)
		if err != nil {
			return nil, query, err
		}
		return answer, query, nil
	}

	prompt, err := c.opts.response.Format(map[string]string{
		prompts.VarInput:   req.Prompt,
		prompts.VarContext: docs.Document,
	})
	if err != nil {
		return nil, query, err
	}
	answer.Answer, err = complete(ctx, c.llm, UsageAnswer, "answer", prompt)
	if err != nil {
		return nil, query, err
	}
	return answer, query, nil
}

func (c *Text2Cypher) generate(ctx context.Context, req Request, question string) (string, error) {
	instructions := c.opts.instructions
	if req.Instructions != "" {
		instructions = req.Instructions
	}

	tmpl := c.opts.generation
	if !slices.Contains(tmpl.Vars(), prompts.VarSchema) {
		tmpl = tmpl.WithPrefix(instructions)
	}

	prompt, err := tmpl.Format(map[string]string{
		prompts.VarInput:     question,
		prompts.VarQueryText: question,
		prompts.VarSchema:    instructions,
		prompts.VarExamples:  c.opts.examples,
	})
	if err != nil {
		return "", err
	}

	if !c.opts.structured {
		reply, err := complete(ctx, c.llm, UsageText2Cypher, "cypher", prompt)
		if err != nil {
			return "", err
		}
		statement := nlp.StripCodeFences(reply)
		if statement == "" {
			return "", ErrEmptyStatement
		}
		return statement, nil
	}

	resp, err := c.llm.ChatWithStructuredOutput(nlp.WithUsage(ctx, UsageText2Cypher),
		[]types.Message{nlp.NewUserMessage(prompt)}, &generatedStatement{})
	if err != nil {
		return "", nlp.NewGenerationServiceError("cypher", err)
	}
	if resp == nil {
		return "", nlp.NewGenerationServiceError("cypher", nlp.ErrEmptyResponse)
	}

	var out generatedStatement
	if err := nlp.DecodeJSONResponse(resp.Content, &out); err != nil {
		return "", err
	}
	statement := strings.TrimSpace(out.Cypher)
	if statement == "" {
		return "", ErrEmptyStatement
	}
	return statement, nil
}

type generatedStatement struct {
	Cypher string `json:"cypher"`
}

// rowParagraphs renders each record as compact JSON followed by a blank line.
func rowParagraphs(docs *types.Context) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, rec := range docs.Records {
		if err := enc.Encode(rec); err != nil {
			return "", fmt.Errorf("failed to encode row: %w", err)
		}
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// listLiteral renders items the way the failure answer has always shown
// them: ['first', 'second'] with quotes and control characters escaped.
func listLiteral(items []string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = quoteItem(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func quoteItem(s string) string {
	quote := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		quote = `"`
	}
	var sb strings.Builder
	sb.WriteString(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			sb.WriteString(`\\`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case string(r) == quote:
			sb.WriteString(`\` + quote)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString(quote)
	return sb.String()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
