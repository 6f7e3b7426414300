package structured

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/kailas-cloud/kbsearch/internal/domain/hints"
)

const promptText = `You are an expert in the Redis Query Engine. Generate one FT.SEARCH query expression that retrieves documentation articles for the question below.

Index fields:
{{.Schema}}

Available page slugs and their place in the documentation hierarchy:

{{.Scope}}

---
RULES:

1. PRIORITIZE EXACT OR NEAR-EXACT SLUG MATCHES.
   If the question matches one or more slugs from the list above or the slug hints, query them directly:
   @slug:{Exact\-Slug\-Name} or @slug:{Slug\-One | Slug\-Two}
   Escape punctuation inside tag values with a backslash.

2. SECOND PRIORITY: HIERARCHY PLUS KEYWORDS.
   If the question names a series or a known category or subcategory, filter on it and add title keywords:
   @subcategory:{KIC\ General\ Info} @title:(2500)

3. LAST RESORT: FULL-TEXT OVER CONTENT.
   @content:(keyword another)

Do not mix exact slug matches with broad content terms in one OR group.
Output the query expression only: no FT.SEARCH, no index name, no RETURN, LIMIT, SORTBY or DIALECT clause.
{{if .Slugs}}
STRONG HINT: Consider these relevant slugs for direct matching: {{join .Slugs ", "}}
{{- end}}
{{- if .Hierarchy}}
STRONG HINT: Relevant categories/subcategories might include: {{join .Hierarchy ", "}}
{{- end}}

Question: {{.Question}}

YOUR ANSWER (query expression only):`

var promptTmpl = template.Must(template.New("prompt").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(promptText))

type promptData struct {
	Schema    string
	Scope     string
	Slugs     []string
	Hierarchy []string
	Question  string
}

func renderPrompt(schema, scopeText, question string, h hints.Hints) (string, error) {
	var buf bytes.Buffer
	err := promptTmpl.Execute(&buf, promptData{
		Schema:    schema,
		Scope:     scopeText,
		Slugs:     h.Slugs,
		Hierarchy: h.Hierarchy,
		Question:  question,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

var (
	fenceRe   = regexp.MustCompile("```[A-Za-z0-9_-]*")
	commandRe = regexp.MustCompile(`(?i)^FT\.SEARCH\s+\S+\s+`)
)

// A trailing clause never contains a group or tag set, so a keyword inside
// "(...)" or "{...}" stays a search term.
var clauseRe = regexp.MustCompile(`(?i)\s+(?:RETURN\b|LIMIT\s+\d+(?:\s+\d+)?|SORTBY\s+\S+|DIALECT\s+\d+|PARAMS\s+\d+)[^(){}]*$`)

// Sanitize reduces generator output to a bare query expression: code fences,
// a leading FT.SEARCH command and any trailing return or paging clause are
// removed. An empty result means the output was unusable.
func Sanitize(raw string) string {
	q := fenceRe.ReplaceAllString(raw, "")
	q = strings.TrimSpace(q)
	q = commandRe.ReplaceAllString(q, "")
	q = clauseRe.ReplaceAllString(q, "")
	q = strings.TrimSpace(q)
	if len(q) >= 2 {
		if (q[0] == '"' && q[len(q)-1] == '"') || (q[0] == '\'' && q[len(q)-1] == '\'') {
			q = strings.TrimSpace(q[1 : len(q)-1])
		}
	}
	return q
}
