package types

import (
	"encoding/json"
	"fmt"
	"maps"
)

// RetrievalQuery is a statement issued against the graph store together with
// the exact parameters bound to it. It is built per invocation and not
// modified afterwards.
type RetrievalQuery struct {
	Strategy string         `json:"strategy,omitempty"`
	Text     string         `json:"text"`
	Params   map[string]any `json:"params"`
	// Inline is a display form with the reserved parameters written as literals.
	Inline string `json:"inline,omitempty"`
}

// NewRetrievalQuery copies params so later caller mutation cannot leak in.
func NewRetrievalQuery(strategy, text string, params map[string]any) *RetrievalQuery {
	return &RetrievalQuery{
		Strategy: strategy,
		Text:     text,
		Params:   maps.Clone(params),
	}
}

// BrowserQueries are ready-to-paste commands for the Neo4j Browser.
type BrowserQueries struct {
	ParamsQuery    string `json:"params_query"`
	ParamsURLQuery string `json:"params_url_query"`
	QueryBody      string `json:"query_body"`
}

// BrowserQueries renders the `:params` command, its URL form and the body.
func (q *RetrievalQuery) BrowserQueries() (*BrowserQueries, error) {
	raw, err := json.Marshal(q.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query params: %w", err)
	}
	params := string(raw)
	return &BrowserQueries{
		ParamsQuery:    ":params " + params,
		ParamsURLQuery: "/browser?cmd=params&arg=" + params,
		QueryBody:      q.Text,
	}, nil
}
