package chain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/prompts"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
)

func noWait(calls *int) func(context.Context, time.Duration) error {
	return func(context.Context, time.Duration) error {
		*calls++
		return nil
	}
}

func TestText2CypherInvoke(t *testing.T) {
	t.Parallel()

	statement := "MATCH (p:Product) RETURN p {.productName, .textEmbedding} AS product"
	llm := &fakeLLM{replies: []string{
		"```cypher\n" + statement + "\n```",
		"Here is the product\n- Chai",
	}}
	exec := &fakeExecutor{rows: []driver.Row{
		{"product": map[string]any{"productName": "Chai", "textEmbedding": "opaque"}},
	}}

	c := NewText2Cypher("text2cypher", llm, exec,
		WithInstructions("SCHEMA"),
		WithStripProperties("textEmbedding"))

	answer, err := c.Invoke(context.Background(), Request{Prompt: "Which products?"})
	require.NoError(t, err)

	assert.Equal(t, "Here is the product\n- Chai", answer.Answer)
	require.Len(t, answer.Queries, 1)
	assert.Equal(t, statement, answer.Queries[0].Text)
	assert.Equal(t, StrategyText2Cypher, answer.Queries[0].Strategy)
	assert.Equal(t, []string{statement}, exec.cypher)

	assert.Contains(t, answer.Context.Document, "Chai")
	assert.NotContains(t, answer.Context.Document, "textEmbedding")

	require.Len(t, llm.prompts, 2)
	assert.Equal(t, "SCHEMA\n# Ask:\nWhich products?\n\nRemove english explanation, provide just the Cypher code.\n", llm.prompts[0])
	assert.Contains(t, llm.prompts[1], "## Ask\nWhich products?\n\n## Response:\n"+answer.Context.Document)
	assert.Equal(t, []string{UsageText2Cypher, UsageAnswer}, llm.usages)
	assert.Empty(t, answer.Warnings)
}

func TestText2CypherRetriesWithErrorsAppended(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{"MATCH (n) RETURN n.name AS name"}}
	exec := &fakeExecutor{err: errors.New("Invalid input RETRUN")}

	c := NewText2Cypher("text2cypher", llm, exec, WithMaxAttempts(3))
	waits := 0
	c.wait = noWait(&waits)

	answer, err := c.Invoke(context.Background(), Request{Prompt: "Count products"})
	require.NoError(t, err)

	assert.Equal(t, 2, waits)
	assert.Len(t, exec.cypher, 3)
	assert.Len(t, answer.Queries, 3)
	require.Len(t, answer.Warnings, 3)

	cause := `retrieval failed for strategy "text2cypher": Invalid input RETRUN`
	assert.Equal(t, "\nError on last attempt number 1: "+cause, answer.Warnings[0])

	want := "Failed after 3 attempts. Errors: [" +
		`'\nError on last attempt number 1: ` + cause + `', ` +
		`'\nError on last attempt number 2: ` + cause + `', ` +
		`'\nError on last attempt number 3: ` + cause + `']`
	assert.Equal(t, want, answer.Answer)

	// Every attempt sees the errors of the previous ones.
	require.Len(t, llm.prompts, 3)
	assert.NotContains(t, llm.prompts[0], "Error on last attempt")
	assert.Contains(t, llm.prompts[1], "Count products\nError on last attempt number 1: ")
	assert.Contains(t, llm.prompts[2], "\nError on last attempt number 2: ")
	assert.Equal(t, 1, strings.Count(llm.prompts[2], "Error on last attempt number 1"))
}

func TestText2CypherRecoversAfterGenerationError(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{
		errs:    []error{nlp.NewRateLimitError()},
		replies: []string{"", "MATCH (n) RETURN count(n) AS total", "There are 3 nodes."},
	}
	exec := &fakeExecutor{rows: []driver.Row{{"total": int64(3)}}}

	c := NewText2Cypher("text2cypher", llm, exec)
	waits := 0
	c.wait = noWait(&waits)

	answer, err := c.Invoke(context.Background(), Request{Prompt: "How many nodes?"})
	require.NoError(t, err)

	assert.Equal(t, "There are 3 nodes.", answer.Answer)
	assert.Equal(t, 1, waits)
	require.Len(t, answer.Queries, 1)
	assert.Contains(t, llm.prompts[1], "Error on last attempt number 1: generation service error during cypher: rate limit exceeded")
}

func TestText2CypherStructuredOutput(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{
		"{'cypher': 'MATCH (n) RETURN count(n) AS total',}",
		"Three nodes.",
	}}
	exec := &fakeExecutor{rows: []driver.Row{{"total": int64(3)}}}

	c := NewText2Cypher("text2cypher", llm, exec, WithStructuredOutput(true))
	answer, err := c.Invoke(context.Background(), Request{Prompt: "How many nodes?"})
	require.NoError(t, err)

	assert.Equal(t, 1, llm.structured)
	assert.Equal(t, []string{"MATCH (n) RETURN count(n) AS total"}, exec.cypher)
	assert.Contains(t, llm.prompts[0], `{"cypher": "<statement>"}`)
	assert.Equal(t, "Three nodes.", answer.Answer)
}

func TestText2CypherSchemaTemplateAndRowAnswer(t *testing.T) {
	t.Parallel()

	llm := &fakeLLM{replies: []string{"MATCH (s:Supplier) RETURN s.name AS name, s.supplierId AS supplierId"}}
	exec := &fakeExecutor{rows: []driver.Row{
		{"supplierId": int64(7), "name": "Tokyo Traders"},
		{"supplierId": int64(8), "name": "Exotic Liquids"},
	}}

	c := NewText2Cypher("retail", llm, exec,
		WithInstructions(`{"nodes": ["Supplier"]}`),
		WithGenerationTemplate(prompts.SchemaText2CypherTemplate),
		WithExamples("none"),
		WithRowAnswer())

	answer, err := c.Invoke(context.Background(), Request{Prompt: "List suppliers"})
	require.NoError(t, err)

	require.Len(t, llm.prompts, 1)
	assert.True(t, strings.HasPrefix(llm.prompts[0], "\nTask: Generate a Cypher statement"))
	assert.Contains(t, llm.prompts[0], "Schema:\n{\"nodes\": [\"Supplier\"]}\n")
	assert.Contains(t, llm.prompts[0], "Examples (optional):\nnone\n")
	assert.Contains(t, llm.prompts[0], "Input:\nList suppliers\n")

	want := `{"name":"Tokyo Traders","supplierId":7}` + "\n\n" +
		`{"name":"Exotic Liquids","supplierId":8}` + "\n\n"
	assert.Equal(t, want, answer.Answer)
}

func TestText2CypherErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty prompt", func(t *testing.T) {
		t.Parallel()
		c := NewText2Cypher("t2c", &fakeLLM{}, &fakeExecutor{})
		_, err := c.Invoke(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("no language model", func(t *testing.T) {
		t.Parallel()
		c := NewText2Cypher("t2c", nil, &fakeExecutor{})
		_, err := c.Invoke(context.Background(), Request{Prompt: "q"})
		assert.ErrorIs(t, err, ErrNoLanguageModel)
	})

	t.Run("cancelled context is not retried", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		llm := &fakeLLM{replies: []string{"MATCH (n) RETURN n"}}
		c := NewText2Cypher("t2c", llm, &fakeExecutor{})
		waits := 0
		c.wait = noWait(&waits)

		_, err := c.Invoke(ctx, Request{Prompt: "q"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, waits)
	})

	t.Run("execution error keeps the statement", func(t *testing.T) {
		t.Parallel()
		c := NewText2Cypher("t2c", &fakeLLM{replies: []string{"RETURN x"}}, &fakeExecutor{err: errors.New("unknown variable")})
		answer, query, err := c.attempt(context.Background(), Request{Prompt: "q"}, "q")
		assert.Nil(t, answer)
		require.NotNil(t, query)
		assert.Equal(t, "RETURN x", query.Text)
		var execErr *search.RetrievalExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, "RETURN x", execErr.Query)
	})
}

func TestListLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		items []string
		want  string
	}{
		{"empty", nil, "[]"},
		{"newline", []string{"\nError on last attempt number 1: boom"}, `['\nError on last attempt number 1: boom']`},
		{"single quote", []string{"it's"}, `["it's"]`},
		{"both quotes", []string{`it's "x"`}, `['it\'s "x"']`},
		{"backslash and tab", []string{"a\\b\tc"}, `['a\\b\tc']`},
		{"several", []string{"a", "b"}, `['a', 'b']`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, listLiteral(tt.items))
		})
	}
}

func TestSleepHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleep(context.Background(), 0))
}
