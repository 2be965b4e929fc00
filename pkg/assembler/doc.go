/*
Package assembler turns ranked retrieval results into the context document
handed to text generation.

Each candidate is flattened into a single ordered record: the text and the
aggregate score come first, non-null metadata fields follow and override
top-level fields of the same name, and strategy-specific hit payloads are
rendered into a "hitData" block. Embedding properties are removed at any
depth before the records are serialized as indented JSON or YAML.

	a := assembler.New(
		assembler.WithRenderer("SKILL", assembler.RenderSkills),
		assembler.WithStrategyKey("retrievalType"),
	)
	ctx, err := a.Assemble(candidates)
*/
package assembler
