package graphrag

import (
	"context"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// ChainRunner runs the registered chains by name.
type ChainRunner interface {
	ChainNames() []string
	Chain(name string) (chain.Chain, bool)
	Invoke(ctx context.Context, name string, req chain.Request) (*chain.Answer, error)
}

// RetailAnalytics is the set of retail operations offered to agents.
type RetailAnalytics interface {
	// SimilarProducts finds products by text similarity.
	SimilarProducts(ctx context.Context, text string) ([]types.Product, error)

	// Recommendations finds products bought together with the given
	// articles, products or customer segments.
	Recommendations(ctx context.Context, ids []int64) ([]types.Product, error)

	// CreateCustomerSegments recomputes customer segments.
	CreateCustomerSegments(ctx context.Context) ([]types.CustomerSegment, error)

	// ProductOrderSupplierInfo returns order statistics per product.
	ProductOrderSupplierInfo(ctx context.Context, productCodes []int64) ([]types.ProductInfo, error)

	// SupplierOrderProductInfo returns order statistics per supplier.
	SupplierOrderProductInfo(ctx context.Context, supplierIDs []int64) ([]types.SupplierInfo, error)

	// AnswerQuestion answers anything else with a generated statement.
	AnswerQuestion(ctx context.Context, question string) (*chain.Answer, error)
}

var (
	_ ChainRunner     = (*Client)(nil)
	_ RetailAnalytics = (*RetailService)(nil)
)
