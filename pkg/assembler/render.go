package assembler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

// Renderer turns a hit payload into a text block. An empty string means the
// hit contributes nothing to the context.
type Renderer func(hit types.HitData) string

// RenderSkills renders a SkillsHit as a markdown list of matched skills.
func RenderSkills(hit types.HitData) string {
	skills, ok := hit.(types.SkillsHit)
	if !ok || len(skills.Skills) == 0 {
		return ""
	}
	return "#### Relevant Skills:  \n*" + strings.Join(skills.Skills, ", ") + "*"
}

// RenderPositions renders a PositionsHit as markdown, one paragraph per position.
func RenderPositions(hit types.HitData) string {
	positions, ok := hit.(types.PositionsHit)
	if !ok || len(positions.Positions) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("#### Relevant Positions:  \n")
	for _, p := range positions.Positions {
		fmt.Fprintf(&sb, "__%s__, __%s__:  \n*%s - %s*  \n%s  \n",
			p.Title, p.Company, p.StartDate, p.EndDate, p.Description)
	}
	return sb.String()
}

// RenderNothing drops the payload.
func RenderNothing(types.HitData) string { return "" }

// RenderFields renders a GenericHit as "key: value" lines sorted by key.
func RenderFields(hit types.HitData) string {
	generic, ok := hit.(types.GenericHit)
	if !ok || len(generic.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(generic.Fields))
	for k := range generic.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v := generic.Fields[k]
		if v == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %v", k, v))
	}
	return strings.Join(lines, "\n")
}

// defaultRenderer picks a renderer by payload shape when no strategy
// renderer is registered. Generic payloads are dropped.
func defaultRenderer(hit types.HitData) string {
	switch hit.Kind() {
	case types.HitKindSkills:
		return RenderSkills(hit)
	case types.HitKindPositions:
		return RenderPositions(hit)
	default:
		return ""
	}
}
