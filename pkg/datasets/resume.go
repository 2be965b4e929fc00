package datasets

// Resume graph retrieval strategies.
const (
	StrategyPerson   = "PERSON"
	StrategySkill    = "SKILL"
	StrategyPosition = "POSITION"

	// ResumeStrategyK is the per-strategy k; ResumeTopK bounds the fused list.
	ResumeStrategyK = 10
	ResumeTopK      = 10

	// ResumeIdentityKey merges people found by several strategies.
	ResumeIdentityKey = "entityId"
)

// ResumeMetadataOrder is the field order of a person record.
var ResumeMetadataOrder = []string{"entityId", "name", "role", "description"}

// ResumeStrategy describes one hybrid search over the resume graph.
type ResumeStrategy struct {
	Name           string
	VectorIndex    string
	KeywordIndex   string
	RetrievalQuery string
}

// ResumeStrategies lists the strategies in fusion order.
var ResumeStrategies = []ResumeStrategy{
	{
		Name:         StrategyPerson,
		VectorIndex:  "person_text_embedding",
		KeywordIndex: "person_full_text",
		RetrievalQuery: `RETURN "" AS text, score, {entityId: node.entityId, name: node.name, role: node.role,
    description: node.description, hitData:{role:node.role, description:node.description}} AS metadata`,
	},
	{
		Name:         StrategySkill,
		VectorIndex:  "skill_text_embedding",
		KeywordIndex: "skill_full_text",
		RetrievalQuery: `WITH node AS skill, score
MATCH(skill)<-[:HAS_SKILL]-(person)
WITH skill.entityId AS skill, count(*) AS totalWithSkill, collect(person) AS people, score
UNWIND people AS person
WITH person, collect(skill) AS skills, sum(score/totalWithSkill) AS score ORDER BY score DESC LIMIT 10
RETURN "" AS text, score, {entityId: person.entityId, name: person.name, role: person.role,
description: person.description, hitData:skills} AS metadata`,
	},
	{
		Name:         StrategyPosition,
		VectorIndex:  "position_text_embedding",
		KeywordIndex: "position_full_text",
		RetrievalQuery: `WITH node AS position, score
MATCH (position)<-[:HAS_POSITION]-(person)
WITH person, collect(position{.*}) AS positions, sum(score) AS score
ORDER BY score DESC LIMIT 10
RETURN "" AS text, score, {entityId: person.entityId, name: person.name, role: person.role,
description: person.description, hitData:positions} AS metadata`,
	},
}

// ResumeInstructions precede the question and context of the resume chain.
const ResumeInstructions = `You are a recruiting assistant who can answer questions based only on the candidates below.
* Answer the question STRICTLY based on the context provided below.
* Refer to candidates by name and explain which skills or positions make them relevant.
* Do not return helpful or extra text or apologies`
