package datasets

// Northwind product graph.
const (
	NorthwindVectorIndex       = "product_text_embeddings"
	NorthwindEmbeddingProperty = "textEmbedding"
	NorthwindTopK              = 5
)

// NorthwindStripProperties are removed from generated-statement results.
var NorthwindStripProperties = []string{"textEmbedding"}

// ProductExpertInstructions precede the question and context of the
// Northwind retrieval chains.
const ProductExpertInstructions = `You are a product and retail expert who can answer questions based only on the context below.
* Answer the question STRICTLY based on the context provided in JSON below.
* Do not assume or retrieve any information outside of the context
* Think step by step before answering.
* Do not return helpful or extra text or apologies
* List the results in rich text format if there are more than one results`

// NorthwindGraphRetrievalQuery enriches every product hit with its supplier,
// the customers ordering it and the products frequently bought with it.
const NorthwindGraphRetrievalQuery = `WITH node AS product, score
MATCH (product)<-[:ORDER_CONTAINS]-(o:Order)<-[:ORDERED]-(c:Customer)
MATCH (product)-[:SUPPLIED_BY]->(s:Supplier)
WITH product, s, c, count(*) AS orderCount, score
WITH product,
    score,
    s.companyName AS productSupplierName,
    orderCount,
    {customerName:c.companyName, orderCount:orderCount} AS customerData
WITH product,
    score,
    productSupplierName,
    collect(customerData) AS customerData,
    sum(orderCount) as totalOrders
MATCH (product)<-[:ORDER_CONTAINS]-(o:Order)-[:ORDER_CONTAINS]->(recommendedProduct:Product)
WITH product,
    score,
    productSupplierName,
    totalOrders,
    customerData,
    recommendedProduct, count(*) AS copurchaseCount
WHERE copurchaseCount > 2
WITH product,
    score,
    productSupplierName,
    totalOrders,
    customerData,
    collect({recommendedProduct:recommendedProduct.productName, copurchaseCount:copurchaseCount}) AS recommendedProducts
RETURN product.text AS text,
    score,
    {
        productSupplierName: productSupplierName,
        totalOrders: totalOrders,
        customerData: customerData,
        recommendedProducts: recommendedProducts
    } AS metadata
`

// NorthwindSchemaInstructions describe the graph to a model writing Cypher.
const NorthwindSchemaInstructions = `#Context

You have expertise in neo4j cypher query language and based on below graph data model schema, you are going to help me write cypher queries.

Node Labels and Properties

["Customer"], ["country:String", "address:String", "contactTitle:String", "phone:String", "city:String", "Bloom_Link:String", "contactName:String", "postalCode:String", "companyName:String", "customerID:String", "region:String", "fax:String"]
["Supplier"], ["country:String", "address:String", "contactTitle:String", "supplierID:String", "phone:String", "city:String", "contactName:String", "postalCode:String", "companyName:String", "fax:String", "region:String", "homePage:String"]
["Order"], ["shipCity:String", "orderID:String", "freight:String", "requiredDate:String", "employeeID:String", "shipPostalCode:String", "shipName:String", "shipCountry:String", "shipAddress:String", "shipVia:String", "customerID:String", "shipRegion:String", "shippedDate:String", "orderDate:String"]
["Category"], ["description:String", "categoryName:String", "picture:String", "categoryID:String"]
["Product"], ["reorderLevel:String", "unitsInStock:String", "unitPrice:String", "supplierID:String", "productID:String", "discontinued:String", "quantityPerUnit:String", "unitsOnOrder:String", "productName:String", "categoryID:String"]
["Order_Detail"], ["unitPrice:String", "discount:String", "quantity:String", "productID:String", "orderID:String"]
["Address"], ["addressID", "name", "address", "city", "region", "postalCode", "country"]

Accepted graph traversal paths

(:Customer)-[:ORDERED]->(:Order),
(:Product)-[:BELONGS_TO]->(:Category),
(:Product)-[:SUPPLIED_BY]->(:Supplier),
(:Order)-[:ORDER_CONTAINS]->(:Product),
(:Order)-[:SHIPPED_TO]->(:Address)
`
