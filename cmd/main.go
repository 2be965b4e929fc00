package main

import (
	"os"

	"github.com/neo4j-product-examples/graphrag-examples/cmd/graphrag"
)

func main() {
	if err := graphrag.Execute(); err != nil {
		os.Exit(1)
	}
}
