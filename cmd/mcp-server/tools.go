package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"

	graphrag "github.com/neo4j-product-examples/graphrag-examples"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
)

// Tool request/response types

// SearchProductsRequest holds the text products are compared against
type SearchProductsRequest struct {
	PromptText string `json:"prompt_text"`
}

// RecommendRequest holds product codes, article ids or segment ids
type RecommendRequest struct {
	SegmentItemIDsOrCodes []int64 `json:"segment_item_ids_or_codes"`
}

// EmptyRequest is the input of tools without parameters
type EmptyRequest struct{}

// ProductCodesRequest holds explicit product codes
type ProductCodesRequest struct {
	ProductCodes []int64 `json:"product_codes"`
}

// SupplierIDsRequest holds explicit supplier ids
type SupplierIDsRequest struct {
	SupplierIDs []int64 `json:"supplier_ids"`
}

// QuestionRequest holds a free-form question
type QuestionRequest struct {
	UserQuestion string `json:"user_question"`
}

// InvokeChainRequest runs one of the registered chains
type InvokeChainRequest struct {
	Chain  string         `json:"chain"`
	Prompt string         `json:"prompt"`
	Params map[string]any `json:"params,omitempty"`
}

// Response types

// ToolResponse is a generic response wrapper
type ToolResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func failure(format string, args ...any) *ToolResponse {
	return &ToolResponse{Success: false, Error: fmt.Sprintf(format, args...)}
}

// toolContext returns the request context carried by a tool call.
func toolContext(ctx *ai.ToolContext) context.Context {
	if ctx == nil || ctx.Context == nil {
		return context.Background()
	}
	return ctx.Context
}

// SearchProductsTool returns the products most similar to the prompt text.
// The caller is expected to re-order or filter further.
func (s *MCPServer) SearchProductsTool(ctx *ai.ToolContext, input *SearchProductsRequest) (*ToolResponse, error) {
	if input.PromptText == "" {
		return failure("prompt_text is required"), nil
	}

	products, err := s.retail.SimilarProducts(toolContext(ctx), input.PromptText)
	if err != nil {
		s.logger.Error("Failed to search products", "error", err)
		return failure("Failed to search products: %v", err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: fmt.Sprintf("Found %d products", len(products)),
		Data:    products,
	}, nil
}

// RecommendProductsTool recommends products from co-purchases.
func (s *MCPServer) RecommendProductsTool(ctx *ai.ToolContext, input *RecommendRequest) (*ToolResponse, error) {
	products, err := s.retail.Recommendations(toolContext(ctx), input.SegmentItemIDsOrCodes)
	if errors.Is(err, graphrag.ErrNoIDs) {
		return failure("segment_item_ids_or_codes is required"), nil
	}
	if err != nil {
		s.logger.Error("Failed to recommend products", "error", err)
		return failure("Failed to recommend products: %v", err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: fmt.Sprintf("Recommended %d products", len(products)),
		Data:    products,
	}, nil
}

// CreateCustomerSegmentsTool recomputes the customer segments.
func (s *MCPServer) CreateCustomerSegmentsTool(ctx *ai.ToolContext, _ *EmptyRequest) (*ToolResponse, error) {
	segments, err := s.retail.CreateCustomerSegments(toolContext(ctx))
	if err != nil {
		s.logger.Error("Failed to create customer segments", "error", err)
		return failure("Failed to create customer segments: %v", err), nil
	}

	s.logger.Info("Customer segments created", "segments", len(segments))
	return &ToolResponse{
		Success: true,
		Message: fmt.Sprintf("Created %d customer segments", len(segments)),
		Data:    segments,
	}, nil
}

// ProductOrderSupplierInfoTool returns order statistics per product.
func (s *MCPServer) ProductOrderSupplierInfoTool(ctx *ai.ToolContext, input *ProductCodesRequest) (*ToolResponse, error) {
	infos, err := s.retail.ProductOrderSupplierInfo(toolContext(ctx), input.ProductCodes)
	if errors.Is(err, graphrag.ErrNoIDs) {
		return failure("product_codes is required"), nil
	}
	if err != nil {
		s.logger.Error("Failed to get product info", "error", err)
		return failure("Failed to get product info: %v", err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: "Product info retrieved successfully",
		Data:    infos,
	}, nil
}

// SupplierOrderProductInfoTool returns order statistics per supplier.
func (s *MCPServer) SupplierOrderProductInfoTool(ctx *ai.ToolContext, input *SupplierIDsRequest) (*ToolResponse, error) {
	infos, err := s.retail.SupplierOrderProductInfo(toolContext(ctx), input.SupplierIDs)
	if errors.Is(err, graphrag.ErrNoIDs) {
		return failure("supplier_ids is required"), nil
	}
	if err != nil {
		s.logger.Error("Failed to get supplier info", "error", err)
		return failure("Failed to get supplier info: %v", err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: "Supplier info retrieved successfully",
		Data:    infos,
	}, nil
}

// AnswerGeneralQuestionTool answers by generating and running Cypher.
func (s *MCPServer) AnswerGeneralQuestionTool(ctx *ai.ToolContext, input *QuestionRequest) (*ToolResponse, error) {
	if input.UserQuestion == "" {
		return failure("user_question is required"), nil
	}

	answer, err := s.retail.AnswerQuestion(toolContext(ctx), input.UserQuestion)
	if err != nil {
		s.logger.Error("Failed to answer question", "error", err)
		return failure("Failed to answer question: %v", err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: answer.Answer,
		Data:    answer,
	}, nil
}

// InvokeChainTool runs a registered chain by name.
func (s *MCPServer) InvokeChainTool(ctx *ai.ToolContext, input *InvokeChainRequest) (*ToolResponse, error) {
	if input.Chain == "" {
		return failure("chain is required"), nil
	}
	if input.Prompt == "" {
		return failure("prompt is required"), nil
	}

	answer, err := s.chains.Invoke(toolContext(ctx), input.Chain, chain.Request{
		Prompt: input.Prompt,
		Params: input.Params,
	})
	if err != nil {
		s.logger.Error("Failed to invoke chain", "chain", input.Chain, "error", err)
		return failure("Failed to invoke chain %s: %v", input.Chain, err), nil
	}

	return &ToolResponse{
		Success: true,
		Message: answer.Answer,
		Data:    answer,
	}, nil
}

// ListChainsTool lists the registered chains.
func (s *MCPServer) ListChainsTool(_ *ai.ToolContext, _ *EmptyRequest) (*ToolResponse, error) {
	names := s.chains.ChainNames()
	return &ToolResponse{
		Success: true,
		Message: fmt.Sprintf("%d chains available", len(names)),
		Data:    map[string]any{"chains": names},
	}, nil
}
