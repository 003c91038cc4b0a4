package builtin

import (
	"context"
	"regexp"
	"strings"

	"github.com/zero-day-ai/graphask/internal/guardrail"
)

// writePatterns match Cypher clauses and procedures that can change the
// database. They run against upper-cased text with literals and comments
// removed, so every pattern is written in upper case.
var writePatterns = []struct {
	name  string
	regex *regexp.Regexp
}{
	{"CREATE", regexp.MustCompile(`\bCREATE\b`)},
	{"MERGE", regexp.MustCompile(`\bMERGE\b`)},
	{"DELETE", regexp.MustCompile(`\bDELETE\b`)},
	{"DETACH", regexp.MustCompile(`\bDETACH\b`)},
	{"SET", regexp.MustCompile(`\bSET\b`)},
	{"REMOVE", regexp.MustCompile(`\bREMOVE\b`)},
	{"DROP", regexp.MustCompile(`\bDROP\b`)},
	{"LOAD CSV", regexp.MustCompile(`\bLOAD\s+CSV\b`)},
	{"FOREACH", regexp.MustCompile(`\bFOREACH\b`)},
	{"IN TRANSACTIONS", regexp.MustCompile(`\bIN\s+(\d+\s+)?(CONCURRENT\s+)?TRANSACTIONS\b`)},
	{"apoc write procedure", regexp.MustCompile(`\bAPOC\s*\.\s*(CREATE|MERGE|REFACTOR|PERIODIC|DO|TRIGGER|ATOMIC|LOCK|SCHEMA\s*\.\s*ASSERT|NODES\s*\.\s*(DELETE|LINK|COLLAPSE))\b`)},
	{"apoc.cypher.run", regexp.MustCompile(`\bAPOC\s*\.\s*CYPHER\s*\.\s*(RUN|DO|PARALLEL)`)},
	{"db.create", regexp.MustCompile(`\bDB\s*\.\s*[A-Z0-9_.\s]*CREATE`)},
	{"dbms procedure", regexp.MustCompile(`\bDBMS\s*\.`)},
	{"apoc file procedure", regexp.MustCompile(`\bAPOC\s*\.\s*(IMPORT|EXPORT|LOAD\s*\.\s*(CSV|JSON|XML|JDBC|DRIVER))\b`)},
	{"apoc.graph", regexp.MustCompile(`\bAPOC\s*\.\s*GRAPH\s*\.`)},
	{"gds write procedure", regexp.MustCompile(`\bGDS\s*\.[A-Z0-9_.\s]*?\b(WRITE|MUTATE|EXPORT)\b`)},
	{"GRANT", regexp.MustCompile(`\bGRANT\b`)},
	{"REVOKE", regexp.MustCompile(`\bREVOKE\b`)},
	{"DENY", regexp.MustCompile(`\bDENY\b`)},
	{"ALTER", regexp.MustCompile(`\bALTER\b`)},
	{"RENAME", regexp.MustCompile(`\bRENAME\b`)},
	{"START DATABASE", regexp.MustCompile(`\bSTART\s+DATABASES?\b`)},
	{"STOP DATABASE", regexp.MustCompile(`\bSTOP\s+DATABASES?\b`)},
	{"TERMINATE", regexp.MustCompile(`\bTERMINATE\b`)},
	{"server administration", regexp.MustCompile(`\b(ENABLE|DEALLOCATE|REALLOCATE)\s+(SERVERS?|DATABASES?)\b`)},
}

// MutationGuard blocks Cypher that contains a write clause or write procedure.
// Matching is case-insensitive and ignores string literals and comments.
// Identifiers that happen to equal a keyword (a property called `set`) are
// blocked too; a missed write is worse than a rejected read.
type MutationGuard struct {
	name string
}

// NewMutationGuard returns a MutationGuard.
func NewMutationGuard() *MutationGuard {
	return &MutationGuard{name: "cypher-mutation"}
}

func (m *MutationGuard) Name() string {
	return m.name
}

func (m *MutationGuard) Type() guardrail.GuardrailType {
	return guardrail.GuardrailTypeMutation
}

// CheckInput blocks the candidate when any write pattern matches.
func (m *MutationGuard) CheckInput(ctx context.Context, input guardrail.GuardrailInput) (guardrail.GuardrailResult, error) {
	matched := FindWriteClauses(input.Content)
	if len(matched) == 0 {
		return guardrail.NewAllowResult(), nil
	}

	result := guardrail.NewBlockResult("read-only mode forbids " + strings.Join(matched, ", "))
	result.Metadata["matched_clauses"] = matched
	return result, nil
}

// FindWriteClauses returns the names of write patterns present in cypher.
func FindWriteClauses(cypher string) []string {
	code, complete := StripLiterals(cypher)
	texts := []string{strings.ToUpper(code)}
	// An unterminated literal or comment would hide everything after it.
	if !complete {
		texts = append(texts, strings.ToUpper(cypher))
	}

	var matched []string
	for _, p := range writePatterns {
		for _, text := range texts {
			if p.regex.MatchString(text) {
				matched = append(matched, p.name)
				break
			}
		}
	}
	return matched
}

// StripLiterals replaces string literals and comments with a space and drops
// the backticks around quoted identifiers while keeping their text.
// complete is false when the input ends inside a literal or block comment.
func StripLiterals(cypher string) (code string, complete bool) {
	const (
		stateCode = iota
		stateSingle
		stateDouble
		stateBacktick
		stateLineComment
		stateBlockComment
	)

	var b strings.Builder
	b.Grow(len(cypher))

	state := stateCode
	for i := 0; i < len(cypher); i++ {
		c := cypher[i]
		var next byte
		if i+1 < len(cypher) {
			next = cypher[i+1]
		}

		switch state {
		case stateCode:
			switch {
			case c == '/' && next == '/':
				state = stateLineComment
				i++
			case c == '/' && next == '*':
				state = stateBlockComment
				i++
			case c == '\'':
				state = stateSingle
			case c == '"':
				state = stateDouble
			case c == '`':
				state = stateBacktick
			default:
				b.WriteByte(c)
			}

		case stateSingle, stateDouble:
			quote := byte('\'')
			if state == stateDouble {
				quote = '"'
			}
			switch c {
			case '\\':
				i++
			case quote:
				state = stateCode
				b.WriteByte(' ')
			}

		case stateBacktick:
			if c == '`' {
				if next == '`' {
					b.WriteByte('`')
					i++
					continue
				}
				state = stateCode
				continue
			}
			b.WriteByte(c)

		case stateLineComment:
			if c == '\n' {
				state = stateCode
				b.WriteByte('\n')
			}

		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateCode
				b.WriteByte(' ')
				i++
			}
		}
	}

	complete = state == stateCode || state == stateLineComment
	return b.String(), complete
}
