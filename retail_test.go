package graphrag

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/datasets"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/driver"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

type observation struct {
	name    string
	records int
	err     error
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (o *recordingObserver) ObserveRetrieval(name string, _ time.Duration, records int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, observation{name: name, records: records, err: err})
}

func similarProductsTemplate() string {
	return search.NewQueryBuilder(datasets.RetailVectorIndex,
		search.WithEmbeddingProperty(datasets.RetailEmbeddingProperty),
		search.WithRetrievalQuery(datasets.RetailProductRetrievalQuery)).Template()
}

func TestRetailSimilarProducts(t *testing.T) {
	d := newFakeDriver()
	d.rows[similarProductsTemplate()] = []driver.Row{
		{"text": "Denim jacket", "score": 0.91, "metadata": map[string]any{
			"productCode": int64(108775), "name": "Strap top", "url": "https://example.com/108775",
		}},
		{"text": "Denim skirt", "score": 0.85, "metadata": map[string]any{
			"productCode": int64(110065), "name": "Skirt", "text": "Denim skirt, knee length",
		}},
	}
	svc := NewRetailService(fakeEmbedder{}, d, nil)

	products, err := svc.SimilarProducts(context.Background(), "denim")
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, types.Product{
		ProductCode: 108775,
		Name:        "Strap top",
		Text:        "Denim jacket",
		URL:         "https://example.com/108775",
		Score:       0.91,
	}, products[0])
	assert.Equal(t, "Denim skirt, knee length", products[1].Text)
	assert.Equal(t, datasets.RetailSimilarTopK, d.lastRead().params[search.ParamK])
}

func TestRetailSimilarProductsWithoutEmbedder(t *testing.T) {
	svc := NewRetailService(nil, newFakeDriver(), nil)

	_, err := svc.SimilarProducts(context.Background(), "denim")
	assert.ErrorIs(t, err, ErrNoEmbedder)
}

func TestRetailRecommendations(t *testing.T) {
	d := newFakeDriver()
	d.rows[datasets.RetailRecommendationsQuery] = []driver.Row{
		{"product": map[string]any{"productCode": int64(1), "name": "Beanie"}, "recommendationScore": int64(12)},
		{"product": map[string]any{"productCode": int64(2), "name": "Scarf"}, "recommendationScore": int64(4)},
	}
	obs := &recordingObserver{}
	svc := NewRetailService(nil, d, nil, WithRetailObserver(obs))

	products, err := svc.Recommendations(context.Background(), []int64{706016001, 108775})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Beanie", products[0].Name)
	assert.Equal(t, 12.0, products[0].Score)
	assert.Equal(t, 4.0, products[1].Score)
	assert.Equal(t, []int64{706016001, 108775}, d.lastRead().params["itemIds"])

	require.Len(t, obs.seen, 1)
	assert.Equal(t, observation{name: strategyRecommendations, records: 2}, obs.seen[0])

	_, err = svc.Recommendations(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIDs)
}

func TestRetailRecommendationsExecutionError(t *testing.T) {
	d := newFakeDriver()
	d.errs[datasets.RetailRecommendationsQuery] = errors.New("syntax error")
	obs := &recordingObserver{}
	svc := NewRetailService(nil, d, nil, WithRetailObserver(obs))

	_, err := svc.Recommendations(context.Background(), []int64{1})
	var execErr *search.RetrievalExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, strategyRecommendations, execErr.Strategy)
	assert.Equal(t, datasets.RetailRecommendationsQuery, execErr.Query)

	require.Len(t, obs.seen, 1)
	assert.Error(t, obs.seen[0].err)
}

func TestRetailCreateCustomerSegments(t *testing.T) {
	d := newFakeDriver()
	d.rows[datasets.RetailLeidenQuery] = []driver.Row{{"communityCount": int64(2), "nodePropertiesWritten": int64(30)}}
	d.rows[datasets.RetailSegmentsQuery] = []driver.Row{
		{"segmentId": int64(7), "numberOfCustomers": int64(20)},
		{"segmentId": int64(3), "numberOfCustomers": int64(10)},
	}
	svc := NewRetailService(nil, d, nil)

	segments, err := svc.CreateCustomerSegments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.CustomerSegment{
		{SegmentID: 7, NumberOfCustomers: 20},
		{SegmentID: 3, NumberOfCustomers: 10},
	}, segments)

	require.Len(t, d.writes, 4)
	expected := []string{
		datasets.RetailDropSegmentGraphQuery,
		datasets.RetailClearSegmentsQuery,
		datasets.RetailProjectSegmentsQuery,
		datasets.RetailLeidenQuery,
	}
	for i, w := range d.writes {
		assert.Equal(t, expected[i], w.query)
		assert.Equal(t, datasets.RetailSegmentGraph, w.params["graphName"])
	}
}

func TestRetailCreateCustomerSegmentsStepFailure(t *testing.T) {
	d := newFakeDriver()
	d.errs[datasets.RetailProjectSegmentsQuery] = errors.New("gds not installed")
	svc := NewRetailService(nil, d, nil)

	_, err := svc.CreateCustomerSegments(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project co-purchases: gds not installed")
	assert.Len(t, d.writes, 3)
	assert.Empty(t, d.reads)
}

func TestRetailProductOrderSupplierInfo(t *testing.T) {
	d := newFakeDriver()
	d.rows[datasets.RetailProductInfoQuery] = []driver.Row{{
		"productCode":  int64(108775),
		"totalOrders":  int64(9),
		"totalReturns": int64(1),
		"supplierInfos": []any{
			map[string]any{"supplierId": int64(5), "name": "Acme", "numberOfOrders": int64(9), "numberOfRefunds": int64(1)},
		},
	}}
	svc := NewRetailService(nil, d, nil)

	infos, err := svc.ProductOrderSupplierInfo(context.Background(), []int64{108775})
	require.NoError(t, err)
	assert.Equal(t, []types.ProductInfo{{
		ProductCode:  108775,
		TotalOrders:  9,
		TotalReturns: 1,
		SupplierInfos: []types.SupplierOrders{
			{SupplierID: 5, Name: "Acme", NumberOfOrders: 9, NumberOfRefunds: 1},
		},
	}}, infos)
	assert.Equal(t, []int64{108775}, d.lastRead().params["productCodes"])

	_, err = svc.ProductOrderSupplierInfo(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoIDs)
}

func TestRetailSupplierOrderProductInfo(t *testing.T) {
	d := newFakeDriver()
	d.rows[datasets.RetailSupplierInfoQuery] = []driver.Row{{
		"supplierId":   int64(5),
		"totalOrders":  int64(4),
		"totalReturns": int64(0),
		"supplierInfos": []any{
			map[string]any{"productCode": int64(1), "name": "Beanie", "numberOfOrders": int64(4), "numberOfRefunds": int64(0)},
		},
	}}
	svc := NewRetailService(nil, d, nil)

	infos, err := svc.SupplierOrderProductInfo(context.Background(), []int64{5})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, int64(5), infos[0].SupplierID)
	assert.Equal(t, []types.ProductOrders{{ProductCode: 1, Name: "Beanie", NumberOfOrders: 4}}, infos[0].ProductInfos)
	assert.Equal(t, []int64{5}, d.lastRead().params["supplierIds"])
}

func TestRetailDecodeError(t *testing.T) {
	d := newFakeDriver()
	d.rows[datasets.RetailSegmentsQuery] = []driver.Row{{"segmentId": "not-a-number"}}
	svc := NewRetailService(nil, d, nil)

	_, err := svc.CreateCustomerSegments(context.Background())
	var execErr *search.RetrievalExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "row 0")
}

func TestRetailAnswerQuestion(t *testing.T) {
	const statement = "MATCH (p:Product) RETURN p.name AS name LIMIT 1"

	d := newFakeDriver()
	d.rows[statement] = []driver.Row{{"name": "Strap top"}}
	llm := &fakeLLM{reply: "```cypher\n" + statement + "\n```"}
	svc := NewRetailService(nil, d, llm)

	answer, err := svc.AnswerQuestion(context.Background(), "Name one product")
	require.NoError(t, err)

	assert.Equal(t, "{\"name\":\"Strap top\"}\n\n", answer.Answer)
	require.Len(t, answer.Queries, 1)
	assert.Equal(t, statement, answer.Queries[0].Text)

	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], datasets.RetailSchema)
	assert.Contains(t, llm.prompts[0], "Name one product")
}

func TestRetailAnswerQuestionCustomSchema(t *testing.T) {
	llm := &fakeLLM{reply: "RETURN 1 AS one"}
	svc := NewRetailService(nil, newFakeDriver(), llm, WithRetailSchema("Node properties:\nThing {id: INTEGER}"))

	_, err := svc.AnswerQuestion(context.Background(), "How many things?")
	require.NoError(t, err)
	assert.Contains(t, llm.prompts[0], "Thing {id: INTEGER}")
	assert.NotContains(t, llm.prompts[0], "Customer {customerId")
}

func TestRetailAnswerQuestionWithoutModel(t *testing.T) {
	svc := NewRetailService(nil, newFakeDriver(), nil)

	_, err := svc.AnswerQuestion(context.Background(), "Name one product")
	assert.ErrorIs(t, err, chain.ErrNoLanguageModel)
}
