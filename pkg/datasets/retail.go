package datasets

// Retail customer graph.
const (
	RetailVectorIndex       = "product_text_embeddings"
	RetailEmbeddingProperty = "textEmbedding"
	RetailSimilarTopK       = 20
	RetailIdentityKey       = "productCode"

	// RetailSegmentGraph is the name of the projected co-purchase graph.
	RetailSegmentGraph = "co-purchase-123"
)

// RetailProductRetrievalQuery projects a similar product onto the fields of
// types.Product.
const RetailProductRetrievalQuery = `RETURN node.text AS text, score,
    node {.productCode, .name, .description, .text, .url} AS metadata`

// RetailRecommendationsQuery recommends products bought by customers who
// bought the given articles or products, or who belong to the given segments.
const RetailRecommendationsQuery = `MATCH (customer:Customer)-[:ORDERED]->()-[:CONTAINS]->()-[:VARIANT_OF]->
(interestedInProducts:Product)<-[:VARIANT_OF]-(interestedInArticles:Article)<-[:CONTAINS]-()<-[:ORDERED]
-(:Customer)-[:ORDERED]->()-[:CONTAINS]->(recArticle:Article)-[:VARIANT_OF]->(product:Product)
WHERE (interestedInArticles.articleId IN $itemIds)
    OR (interestedInProducts.productCode IN $itemIds)
    OR (customer.segmentId IN $itemIds)
WITH count(recArticle) AS recommendationScore, product
RETURN product {.productCode, .name, .description, .text, .url} AS product, recommendationScore
ORDER BY recommendationScore DESC LIMIT 20`

// RetailProductInfoQuery aggregates orders and refunds per product and supplier.
const RetailProductInfoQuery = `MATCH(p:Product)<-[:VARIANT_OF]-(a:Article)-[:SUPPLIED_BY]->(s)
WHERE p.productCode IN $productCodes
WITH *,
    COUNT {MATCH (:Order)-[:CONTAINS]->(a)} AS numberOfOrders,
    COUNT {MATCH (:CreditNote)-[:REFUND_OF_ARTICLE]-(a)} AS numberOfRefunds
RETURN p.productCode AS productCode,
    sum(numberOfOrders) AS totalOrders,
    sum(numberOfRefunds) AS totalReturns,
    collect({supplierId:s.supplierId, name:s.name, numberOfOrders:numberOfOrders, numberOfRefunds:numberOfRefunds}) AS supplierInfos`

// RetailSupplierInfoQuery aggregates orders and refunds per supplier and product.
const RetailSupplierInfoQuery = `MATCH(p:Product)<-[:VARIANT_OF]-(:Article)-[:SUPPLIED_BY]->(s)
WHERE s.supplierId IN $supplierIds
WITH DISTINCT p, s,
    COUNT {MATCH (:Order)-[:CONTAINS]->()-[:VARIANT_OF]->(p)} AS numberOfOrders,
    COUNT {MATCH (:CreditNote)-[:REFUND_OF_ARTICLE]-()-[:VARIANT_OF]->(p)} AS numberOfRefunds
RETURN s.supplierId AS supplierId,
    sum(numberOfOrders) AS totalOrders,
    sum(numberOfRefunds) AS totalReturns,
    collect({productCode:p.productCode, name:p.name, numberOfOrders:numberOfOrders, numberOfRefunds:numberOfRefunds}) AS supplierInfos`

// Customer segmentation runs as a sequence of write statements: drop the old
// projection and segment ids, project the co-purchase graph, run Leiden and
// read the segments back.
const (
	RetailDropSegmentGraphQuery = `CALL gds.graph.drop($graphName, false) YIELD graphName RETURN graphName`
	RetailClearSegmentsQuery    = `MATCH(n:Customer) REMOVE n.segmentId`
	RetailProjectSegmentsQuery  = `MATCH(c1:Customer)-[:ORDERED]->()-[:CONTAINS]->(a:Article)<-[:CONTAINS]-()<-[:ORDERED]-(c2:Customer)
WHERE elementId(c1) < elementId(c2)
WITH c1, c2, count(a) AS coPurchaseCount
WITH gds.graph.project($graphName, c1, c2, {
    relationshipProperties: { coPurchaseCount: coPurchaseCount }},
    {undirectedRelationshipTypes: ['*']}) AS g
RETURN g.graphName AS graph, g.nodeCount AS nodes, g.relationshipCount AS rels`
	RetailLeidenQuery = `CALL gds.leiden.write($graphName, { relationshipWeightProperty: 'coPurchaseCount', randomSeed: 7474, writeProperty: 'segmentId', concurrency:1})
YIELD communityCount, nodePropertiesWritten
RETURN communityCount, nodePropertiesWritten`
	RetailSegmentsQuery = `MATCH(c:Customer) WHERE c.segmentId IS NOT NULL
RETURN c.segmentId AS segmentId, count(c) AS numberOfCustomers ORDER BY numberOfCustomers DESC`
)

// RetailSchema describes the customer graph to a model writing Cypher.
const RetailSchema = `Node properties:
Customer {customerId: INTEGER, name: STRING, address: STRING, age: STRING, postalCode: INTEGER,
    clubMemberStatus: STRING, fashionNewsFrequency: STRING, segmentId: INTEGER}
Order {orderId: INTEGER, date: DATE}
Article {articleId: INTEGER, name: STRING, colourGroupCode: INTEGER, colourGroupName: STRING,
    graphicalAppearanceNo: INTEGER, graphicalAppearanceName: STRING}
Product {productCode: INTEGER, name: STRING, description: STRING, text: STRING, url: STRING}
Supplier {supplierId: INTEGER, name: STRING, address: STRING}
CreditNote {creditNoteId: INTEGER, date: DATE, amount: FLOAT, reason: STRING}
ProductCategory {name: STRING}
ProductType {name: STRING}

The relationships:
(:Customer)-[:ORDERED]->(:Order)
(:Order)-[:CONTAINS]->(:Article)
(:Article)-[:VARIANT_OF]->(:Product)
(:Article)-[:SUPPLIED_BY]->(:Supplier)
(:Product)-[:PART_OF]->(:ProductCategory)
(:Product)-[:PART_OF]->(:ProductType)
(:CreditNote)-[:REFUND_FOR_ORDER]->(:Order)
(:CreditNote)-[:REFUND_OF_ARTICLE]->(:Article)
`
