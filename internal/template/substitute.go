package template

import (
	"regexp"
	"sort"

	"github.com/bnbong/FastAPI-fastkit-sub000/internal/project"
)

// Placeholders are written as <token>: a lowercase snake_case identifier in
// angle brackets, e.g. <project_name>. Substitution is a strict single pass.
//
// Unresolved-token detection has to coexist with angle brackets in ordinary
// project content (HTML, comparisons, type hints), so only two shapes count
// as placeholders after the pass: multi-word snake_case tokens such as
// <author_email>, and the reserved single-word vocabulary below.
var (
	tokenPattern = regexp.MustCompile(`<([a-z][a-z0-9]*(?:_[a-z0-9]+)*)>`)

	reservedTokens = map[string]struct{}{
		"author":      {},
		"description": {},
		"version":     {},
	}
)

// Substitute replaces every <token> whose token is present in ctx and
// returns the rendered text plus the sorted list of tokens that remained
// unresolved. A non-empty unresolved list is a TemplateSyntaxError at the
// caller.
func Substitute(content string, ctx project.SubstitutionContext) (string, []string) {
	rendered := tokenPattern.ReplaceAllStringFunc(content, func(match string) string {
		token := match[1 : len(match)-1]
		if value, ok := ctx[token]; ok {
			return value
		}
		return match
	})

	seen := map[string]struct{}{}
	for _, m := range tokenPattern.FindAllStringSubmatch(rendered, -1) {
		token := m[1]
		if !isPlaceholderToken(token) {
			continue
		}
		// Substitution is single-pass, so a token still present in the
		// output is unresolved even when a context value reintroduced the
		// token form.
		seen[token] = struct{}{}
	}

	if len(seen) == 0 {
		return rendered, nil
	}

	unresolved := make([]string, 0, len(seen))
	for token := range seen {
		unresolved = append(unresolved, token)
	}
	sort.Strings(unresolved)

	return rendered, unresolved
}

func isPlaceholderToken(token string) bool {
	if _, ok := reservedTokens[token]; ok {
		return true
	}
	for i := 0; i < len(token); i++ {
		if token[i] == '_' {
			return true
		}
	}

	return false
}
