package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/chain"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/nlp"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/search"
	"github.com/neo4j-product-examples/graphrag-examples/pkg/server/dto"
)

// writeError writes an error response as JSON
func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{
		Error:   errCode,
		Message: message,
		Code:    status,
	})
}

// writeChainError maps a chain failure to a status and error code.
func writeChainError(c *gin.Context, err error) {
	status, code := classify(err)
	writeError(c, status, code, err.Error())
}

func classify(err error) (int, string) {
	var (
		embedErr *search.EmbeddingServiceError
		execErr  *search.RetrievalExecutionError
		genErr   *nlp.GenerationServiceError
		partial  *search.PartialFailureError
		limited  *nlp.RateLimitError
	)
	switch {
	case errors.Is(err, chain.ErrEmptyPrompt),
		errors.Is(err, search.ErrWeightCountMismatch),
		errors.Is(err, search.ErrDivisionByZero):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, chain.ErrNoLanguageModel):
		return http.StatusNotImplemented, "generation_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.As(err, &limited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "generation_failed"
	case errors.As(err, &embedErr):
		return http.StatusBadGateway, "embedding_failed"
	case errors.As(err, &execErr), errors.As(err, &partial):
		return http.StatusBadGateway, "retrieval_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
