package prompts

// ContextTemplate follows the instructions of a retrieval chain: the user
// question, then the assembled context document.
var ContextTemplate = New(`

# Question
{input}

# Here is the context:
{context}
`, VarInput, VarContext)

// Text2CypherAskTemplate follows the schema instructions of a text-to-Cypher
// chain.
var Text2CypherAskTemplate = New(`
# Ask:
{input}

Remove english explanation, provide just the Cypher code.
`, VarInput)

// Text2CypherStructuredAskTemplate asks for the statement wrapped in a JSON
// object instead of bare Cypher.
var Text2CypherStructuredAskTemplate = New(`
# Ask:
{input}

Respond with a JSON object of the form {"cypher": "<statement>"} and nothing else.
`, VarInput)

// Text2CypherResponseTemplate turns the rows of a generated statement into a
// short human readable answer.
var Text2CypherResponseTemplate = New(`
Transform below data to human readable format with bullets if needed, And summarize it in a sentence or two if possible
# Sample Ask and Response :
## Ask:
Get distinct watch terms ?

## Response:
["alert","attorney","bad","canceled","charge"]

## Output:
Here are the distinct watch terms
- "alert"
- "attorney"
- "bad"
- "canceled"
- "charge"

# Generate similar output for below Ask and Response

## Ask
{input}

## Response:
{context}

## Output:
`, VarInput, VarContext)

// SchemaText2CypherTemplate generates a statement from a schema description
// and optional examples.
var SchemaText2CypherTemplate = New(`
Task: Generate a Cypher statement for querying a Neo4j graph database from a user input.
- Do not include triple backticks `+"```"+` or `+"```cypher"+` or any additional text except the generated Cypher statement in your response.
- Do not use any properties or relationships not included in the schema.

Schema:
{schema}

Examples (optional):
{examples}

Input:
{query_text}

Cypher query:
`, VarSchema, VarExamples, VarQueryText)
