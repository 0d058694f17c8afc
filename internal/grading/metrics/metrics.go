// Package metrics computes static quality metrics over Python source. The
// analyzers are pure and total: nothing is executed, and unparsable input
// yields a neutral value rather than an error, so a broken submission never
// breaks the surrounding grade.
package metrics

import (
	"strings"

	"skillbuilder/internal/pysrc"
)

// Summary bundles every metric for one source text.
type Summary struct {
	Complexity   int     `json:"complexity"`
	Coverage     float64 `json:"coverage"`
	Duplication  float64 `json:"duplication"`
	HasTypeHints bool    `json:"has_type_hints"`
	HasDocstring bool    `json:"has_docstring"`
	LinesOfCode  int     `json:"lines_of_code"`
}

// Complexity estimates cyclomatic complexity: one base path, plus one per
// if/elif/for/while/except statement, plus the extra paths contributed by
// and/or operators. Returns 0 when the source does not scan.
func Complexity(source string) int {
	lines, err := pysrc.Scan(source)
	if err != nil {
		return 0
	}
	complexity := 1
	for _, line := range lines {
		for _, head := range line.StatementHeads() {
			if len(head) == 0 {
				continue
			}
			switch {
			case head[0].IsName("if"), head[0].IsName("elif"),
				head[0].IsName("for"), head[0].IsName("while"),
				head[0].IsName("except"):
				complexity++
			}
		}
		for _, tok := range line.Tokens {
			if tok.IsName("and") || tok.IsName("or") {
				complexity++
			}
		}
	}
	return complexity
}

// Duplication reports the percentage of non-blank lines that repeat an
// earlier non-comment line, capped at 100. Sources shorter than two lines
// score 0.
func Duplication(source string) float64 {
	var nonBlank int
	counts := make(map[string]int)
	for _, raw := range strings.Split(strings.TrimSpace(source), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		nonBlank++
		if !strings.HasPrefix(line, "#") {
			counts[line]++
		}
	}
	if nonBlank < 2 {
		return 0
	}
	duplicates := 0
	for _, n := range counts {
		if n > 1 {
			duplicates += n - 1
		}
	}
	pct := float64(duplicates) / float64(nonBlank) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Coverage is a coarse heuristic: the ratio of assert statements in the test
// source to function definitions in the code, as a percentage capped at 100.
// Code with no functions counts as fully covered. Returns 0 when either
// source fails to scan.
func Coverage(source, testSource string) float64 {
	functions := countStatements(source, "def")
	if functions < 0 {
		return 0
	}
	if functions == 0 {
		return 100
	}
	assertions := countStatements(testSource, "assert")
	if assertions < 0 {
		return 0
	}
	pct := float64(assertions) / float64(functions) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// countStatements returns how many statements open with the keyword, or -1
// when the source does not scan.
func countStatements(source, keyword string) int {
	lines, err := pysrc.Scan(source)
	if err != nil {
		return -1
	}
	n := 0
	for _, line := range lines {
		for _, head := range line.StatementHeads() {
			if len(head) > 0 && head[0].IsName(keyword) {
				n++
			}
		}
	}
	return n
}

// HasTypeHints reports whether the source carries any annotation: a return
// annotation, an annotated parameter, or an annotated assignment.
func HasTypeHints(source string) bool {
	lines, err := pysrc.Scan(source)
	if err != nil {
		return false
	}
	for _, line := range lines {
		for _, tok := range line.Tokens {
			if tok.IsOp("->") {
				return true
			}
		}
		for _, head := range line.StatementHeads() {
			if defHasAnnotatedArg(head) || isAnnotatedAssign(head) {
				return true
			}
		}
	}
	return false
}

// defHasAnnotatedArg reports whether a def header contains a parameter
// annotation: a colon at depth one inside the parameter parentheses.
func defHasAnnotatedArg(head []pysrc.Token) bool {
	if len(head) == 0 || !head[0].IsName("def") {
		return false
	}
	depth := 0
	pendingLambda := 0
	for _, tok := range head {
		if tok.IsName("lambda") {
			pendingLambda++
			continue
		}
		if tok.Kind != pysrc.TokOp {
			continue
		}
		switch tok.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ":":
			if depth == 1 {
				if pendingLambda > 0 {
					pendingLambda--
					continue
				}
				return true
			}
		}
	}
	return false
}

// isAnnotatedAssign matches "name: type" or "name: type = value" statements.
func isAnnotatedAssign(head []pysrc.Token) bool {
	if len(head) < 3 || head[0].Kind != pysrc.TokName {
		return false
	}
	if compound := head[0].Text; compound == "if" || compound == "elif" ||
		compound == "else" || compound == "for" || compound == "while" ||
		compound == "try" || compound == "except" || compound == "finally" ||
		compound == "def" || compound == "class" || compound == "with" ||
		compound == "async" || compound == "lambda" {
		return false
	}
	return head[1].IsOp(":")
}

// HasDocstring reports whether the source has a module docstring or a
// docstring immediately inside any def or class.
func HasDocstring(source string) bool {
	lines, err := pysrc.Scan(source)
	if err != nil {
		return false
	}
	expectDoc := true // module docstring position
	for _, line := range lines {
		for _, head := range line.StatementHeads() {
			if len(head) == 0 {
				continue
			}
			if expectDoc && head[0].Kind == pysrc.TokString && strings.TrimSpace(head[0].Text) != "" {
				return true
			}
			switch head[0].Text {
			case "def", "class":
				expectDoc = head[0].Kind == pysrc.TokName
			case "async":
				// "async def" headers also open a docstring position.
				expectDoc = head[0].Kind == pysrc.TokName && len(head) > 1 && head[1].IsName("def")
			default:
				expectDoc = false
			}
		}
	}
	return false
}

// Summarize computes every metric for the source. Coverage is reported
// against an empty test source, matching its use as a standalone summary.
func Summarize(source string) Summary {
	return Summary{
		Complexity:   Complexity(source),
		Coverage:     Coverage(source, ""),
		Duplication:  Duplication(source),
		HasTypeHints: HasTypeHints(source),
		HasDocstring: HasDocstring(source),
		LinesOfCode:  len(strings.Split(strings.TrimSpace(source), "\n")),
	}
}

// Improved decides whether a refactor is an improvement over its previous
// version: complexity must not regress, or the refactor must add
// documentation or type hints.
func Improved(before, after Summary) bool {
	return after.Complexity <= before.Complexity ||
		after.HasDocstring || after.HasTypeHints
}
