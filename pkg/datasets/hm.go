package datasets

import "fmt"

// H&M customer graph.
const (
	HMVectorIndex       = "product_text_embeddings"
	HMEmbeddingProperty = "textEmbedding"
	HMPrefilterTopK     = 20
	HMPostfilterTopK    = 100

	// ParamCustomerID scopes the H&M filters to one customer.
	ParamCustomerID = "customerId"
	// PurchaseScoreKey is the auxiliary count of the post-filter.
	PurchaseScoreKey = "purchaseScore"
)

// HMPrefilterQuery keeps the 100 products most often bought by customers
// who share a purchase with the given customer.
const HMPrefilterQuery = `MATCH (:Customer {customerId:$customerId})-[:PURCHASED]->(:Article)
<-[:PURCHASED]-(:Customer)-[:PURCHASED]->(recArticle:Article)-[:VARIANT_OF]->(product:Product)
WITH count(recArticle) AS recommendationScore, product
ORDER BY recommendationScore DESC LIMIT 100
WITH product AS node, {recommendationScore:recommendationScore} AS prefilterMetadata`

// HMPostfilterQuery counts, for every similar product, the articles the
// given customer shares with its buyers. The count is folded into the score
// by the retriever.
const HMPostfilterQuery = `WITH node AS product, score AS searchScore
OPTIONAL MATCH(product)<-[:VARIANT_OF]-(:Article)<-[:PURCHASED]-(:Customer)
-[:PURCHASED]->(a:Article)<-[:PURCHASED]-(:Customer {customerId: $customerId})

WITH count(a) AS purchaseScore, product.text AS text, searchScore, product.productCode AS productCode, product.url AS url
RETURN text,
    searchScore AS score,
    {productCode: productCode, url: url, purchaseScore: purchaseScore} AS metadata
ORDER BY purchaseScore DESC, searchScore DESC LIMIT 20`

// EmailInstructions asks for a promotional email to one customer for the
// given time of year.
func EmailInstructions(customerName, timeOfYear string) string {
	return fmt.Sprintf(`
You are a personal assistant named Sally for a fashion, home, and beauty company called HRM.
write an email to %[1]s, one of your customers, to promote and summarize products relevant for them
given the current season / time of year: %[2]s.
Please only mention the products listed in the context below. Do not come up with or add any new products to the list.
Select the best 4 to 5 product subset from the context that best match the time of year: %[2]s.
Each product comes with an https `+"`url`"+` field. Make sure to provide that https url with descriptive name text in markdown for each product.
`, customerName, timeOfYear)
}
