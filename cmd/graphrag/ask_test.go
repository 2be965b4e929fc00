package graphrag

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

func TestPrintAnswer(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	printAnswer(&buf, &chain.Answer{
		Answer: "Chai is a tea.\n",
		Context: &types.Context{
			Records:  []*types.Metadata{types.MetadataFromPairs("text", "Chai")},
			Document: `[{"text":"Chai"}]`,
		},
		Queries:  []*types.RetrievalQuery{types.NewRetrievalQuery("northwind-vector", "RETURN 1", nil)},
		Warnings: []string{"\nError on last attempt number 1: boom"},
	})

	out := buf.String()
	assert.Contains(t, out, "Answer\nChai is a tea.\n")
	assert.Contains(t, out, "Context (1 records)\n[{\"text\":\"Chai\"}]")
	assert.Contains(t, out, "warning: Error on last attempt number 1: boom")
	assert.Contains(t, out, "Query (northwind-vector)\nRETURN 1")
}

func TestPrintAnswerRetrievalOnly(t *testing.T) {
	var buf bytes.Buffer
	printAnswer(&buf, &chain.Answer{})
	assert.Empty(t, buf.String())
}
