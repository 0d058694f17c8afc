package policy

import (
	"strings"

	"skillbuilder/internal/pysrc"
	appErr "skillbuilder/pkg/errors"
)

// Validator statically checks submission source against a Policy.
//
// Validation is total: it scans every logical line exactly once, never
// executes anything, and a source importing a disallowed module always fails
// here before any execution is attempted. The interpreter harness re-checks
// dynamic imports at runtime against the same policy, so this validator and
// the runtime gate can never disagree about what is allowed.
type Validator struct {
	policy *Policy
}

// NewValidator creates a validator bound to an immutable policy.
func NewValidator(p *Policy) *Validator {
	return &Validator{policy: p}
}

// Validate scans source and returns nil if it is acceptable.
// Failures are SyntaxInvalid for lexically broken source and PolicyViolation
// (with the offending construct or module in the details) otherwise.
func (v *Validator) Validate(source string) error {
	lines, err := pysrc.Scan(source)
	if err != nil {
		return appErr.Wrapf(err, appErr.SyntaxInvalid, "submission does not scan: %v", err)
	}

	for _, line := range lines {
		for _, stmt := range line.StatementHeads() {
			if err := v.checkStatement(stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func (v *Validator) checkStatement(stmt []pysrc.Token) error {
	if len(stmt) == 0 || stmt[0].Kind != pysrc.TokName {
		return nil
	}

	switch stmt[0].Text {
	case "global":
		return v.constructError(ConstructGlobal)
	case "nonlocal":
		return v.constructError(ConstructNonlocal)
	case "with":
		return v.constructError(ConstructWith)
	case "async":
		if len(stmt) > 1 && stmt[1].IsName("with") {
			return v.constructError(ConstructAsyncWith)
		}
		return nil
	case "import":
		return v.checkImport(stmt[1:])
	case "from":
		return v.checkImportFrom(stmt[1:])
	}
	return nil
}

func (v *Validator) constructError(c Construct) error {
	if !v.policy.ConstructDisallowed(c) {
		return nil
	}
	return appErr.Newf(appErr.PolicyViolation, "use of disallowed language feature: %s", c).
		WithDetail("construct", string(c))
}

// checkImport handles "import a.b as c, d".
func (v *Validator) checkImport(rest []pysrc.Token) error {
	for _, module := range importedNames(rest) {
		if !v.policy.ModuleAllowed(module) {
			return v.moduleError(module)
		}
	}
	return nil
}

// checkImportFrom handles "from mod.sub import x as y, z" and
// "from mod import *". Relative imports ("from . import x") never name an
// allow-listed module and therefore fail closed.
func (v *Validator) checkImportFrom(rest []pysrc.Token) error {
	module, i := dottedName(rest, 0)
	if module == "" || i >= len(rest) || !rest[i].IsName("import") {
		// Malformed from-statement; the interpreter will report the
		// syntax error, nothing here to allow.
		return v.moduleError(module)
	}
	if !v.policy.ModuleAllowed(module) {
		return v.moduleError(module)
	}

	symbols := rest[i+1:]
	for _, tok := range symbols {
		// Star imports are only acceptable from all-symbols modules.
		if tok.IsOp("*") && !v.policy.SymbolAllowed(module, "*") && !v.allowsAll(module) {
			return v.symbolError(module, "*")
		}
	}
	for _, symbol := range importedNames(symbols) {
		if !v.policy.SymbolAllowed(module, symbol) {
			return v.symbolError(module, symbol)
		}
	}
	return nil
}

func (v *Validator) allowsAll(module string) bool {
	symbols, ok := v.policy.allowedImports[module]
	return ok && symbols == nil
}

func (v *Validator) moduleError(module string) error {
	return appErr.Newf(appErr.PolicyViolation, "import of %q is not allowed", module).
		WithDetail("module", module)
}

func (v *Validator) symbolError(module, symbol string) error {
	return appErr.Newf(appErr.PolicyViolation, "import of %q from %q is not allowed", symbol, module).
		WithDetail("module", module).
		WithDetail("symbol", symbol)
}

// importedNames extracts the first dotted name of every comma-separated
// import group, skipping "as" aliases and grouping parentheses.
func importedNames(tokens []pysrc.Token) []string {
	var names []string
	expect := true
	for i := 0; i < len(tokens); {
		tok := tokens[i]
		if tok.IsOp("(") || tok.IsOp(")") {
			i++
			continue
		}
		if tok.IsOp(",") {
			expect = true
			i++
			continue
		}
		if expect && tok.Kind == pysrc.TokName {
			name, next := dottedName(tokens, i)
			names = append(names, name)
			expect = false
			i = next
			continue
		}
		i++
	}
	return names
}

// dottedName reads a dotted module path starting at index i and returns it
// together with the index past its last component.
func dottedName(tokens []pysrc.Token, i int) (string, int) {
	var parts []string
	for i < len(tokens) {
		if tokens[i].IsOp(".") {
			parts = append(parts, ".")
			i++
			continue
		}
		if tokens[i].Kind == pysrc.TokName && tokens[i].Text != "import" && tokens[i].Text != "as" {
			parts = append(parts, tokens[i].Text)
			i++
			if i < len(tokens) && tokens[i].IsOp(".") {
				continue
			}
		}
		break
	}
	return strings.Join(parts, ""), i
}
