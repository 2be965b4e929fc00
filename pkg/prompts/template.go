package prompts

import (
	"fmt"
	"slices"
	"strings"
)

// Common template variables.
const (
	VarInput     = "input"
	VarContext   = "context"
	VarSchema    = "schema"
	VarExamples  = "examples"
	VarQueryText = "query_text"
)

// Template is prompt text with named {variable} placeholders. Only declared
// variables are substituted; any other braces in the text are left as they
// are, so instructions may quote JSON or Cypher maps freely.
type Template struct {
	parts []part
	vars  []string
}

// part is a run of template text. Literal parts are never substituted.
type part struct {
	text    string
	literal bool
}

// New creates a template declaring vars.
func New(text string, vars ...string) *Template {
	return &Template{parts: []part{{text: text}}, vars: vars}
}

// Join returns a template whose text is t's text followed by other's, with
// the union of both variable sets.
func (t *Template) Join(other *Template) *Template {
	vars := slices.Clone(t.vars)
	for _, v := range other.vars {
		if !slices.Contains(vars, v) {
			vars = append(vars, v)
		}
	}
	parts := append(slices.Clone(t.parts), other.parts...)
	return &Template{parts: parts, vars: vars}
}

// WithPrefix returns t with plain instructions prepended. The instructions
// are kept verbatim: placeholders inside them are not substituted.
func (t *Template) WithPrefix(instructions string) *Template {
	parts := append([]part{{text: instructions, literal: true}}, t.parts...)
	return &Template{parts: parts, vars: slices.Clone(t.vars)}
}

// Vars returns the declared variables.
func (t *Template) Vars() []string {
	return slices.Clone(t.vars)
}

// Text returns the unrendered template text.
func (t *Template) Text() string {
	var sb strings.Builder
	for _, p := range t.parts {
		sb.WriteString(p.text)
	}
	return sb.String()
}

// Format substitutes every declared variable. A declared variable missing
// from values is an error; extra values are ignored.
func (t *Template) Format(values map[string]string) (string, error) {
	pairs := make([]string, 0, 2*len(t.vars))
	for _, v := range t.vars {
		val, ok := values[v]
		if !ok {
			return "", fmt.Errorf("missing value for prompt variable %q", v)
		}
		pairs = append(pairs, "{"+v+"}", val)
	}

	r := strings.NewReplacer(pairs...)
	var sb strings.Builder
	for _, p := range t.parts {
		if p.literal {
			sb.WriteString(p.text)
			continue
		}
		sb.WriteString(r.Replace(p.text))
	}
	return sb.String(), nil
}
