// Package policy defines the security policy for sandboxed grading and the
// static validator that enforces it before any code runs.
package policy

// Construct identifies a language construct the policy can disallow.
type Construct string

const (
	ConstructGlobal    Construct = "global"
	ConstructNonlocal  Construct = "nonlocal"
	ConstructWith      Construct = "with"
	ConstructAsyncWith Construct = "async with"
)

// Policy is an immutable security policy: which syntax constructs are
// rejected, which imports are allowed, and which primitives each namespace
// role is built from. It is constructed once at startup and passed by
// reference into every validator, namespace and engine call; nothing mutates
// it afterwards.
type Policy struct {
	disallowedConstructs map[Construct]bool
	allowedImports       map[string][]string
	submissionPrimitives []string
	graderExtras         []string
}

// Config is the mutable form a Policy is built from.
type Config struct {
	DisallowedConstructs []Construct
	// AllowedImports maps a module name to its permitted symbols.
	// A nil symbol slice means every symbol from that module is allowed.
	AllowedImports       map[string][]string
	SubmissionPrimitives []string
	GraderExtras         []string
}

// New builds a Policy from cfg, copying every input so later mutation of cfg
// cannot leak into the policy.
func New(cfg Config) *Policy {
	p := &Policy{
		disallowedConstructs: make(map[Construct]bool, len(cfg.DisallowedConstructs)),
		allowedImports:       make(map[string][]string, len(cfg.AllowedImports)),
		submissionPrimitives: append([]string(nil), cfg.SubmissionPrimitives...),
		graderExtras:         append([]string(nil), cfg.GraderExtras...),
	}
	for _, c := range cfg.DisallowedConstructs {
		p.disallowedConstructs[c] = true
	}
	for module, symbols := range cfg.AllowedImports {
		if symbols == nil {
			p.allowedImports[module] = nil
			continue
		}
		p.allowedImports[module] = append([]string(nil), symbols...)
	}
	return p
}

// Default returns the stock grading policy: scope-escape constructs are
// rejected, a short list of modules needed by decorator and timing exercises
// is importable, and submissions see only pure, non-IO primitives.
func Default() *Policy {
	return New(Config{
		DisallowedConstructs: []Construct{
			ConstructGlobal, ConstructNonlocal, ConstructWith, ConstructAsyncWith,
		},
		AllowedImports: map[string][]string{
			"functools": {"wraps"},
			"time":      {"sleep", "time", "perf_counter"},
			"numpy":     nil,
		},
		SubmissionPrimitives: []string{
			"len", "range", "sum", "min", "max", "abs",
			"enumerate", "zip", "sorted", "all", "any",
			"map", "filter",
			"list", "dict", "set", "tuple", "str", "int",
			"float", "bool", "print", "isinstance", "type",
			"repr", "getattr", "setattr", "hasattr",
			"Exception", "ValueError", "TypeError",
			"KeyError", "IndexError", "AttributeError",
			"NameError", "ImportError", "StopIteration",
			"ZeroDivisionError", "RuntimeError",
			"__build_class__",
			"property", "classmethod", "staticmethod", "super",
		},
		GraderExtras: []string{
			"callable", "dir", "iter", "next", "round", "divmod", "issubclass", "format",
		},
	})
}

// ConstructDisallowed reports whether the construct is rejected.
func (p *Policy) ConstructDisallowed(c Construct) bool {
	return p.disallowedConstructs[c]
}

// ModuleAllowed reports whether a plain "import module" is permitted.
func (p *Policy) ModuleAllowed(module string) bool {
	_, ok := p.allowedImports[module]
	return ok
}

// SymbolAllowed reports whether "from module import symbol" is permitted.
// Modules mapped to a nil symbol set allow every symbol.
func (p *Policy) SymbolAllowed(module, symbol string) bool {
	symbols, ok := p.allowedImports[module]
	if !ok {
		return false
	}
	if symbols == nil {
		return true
	}
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// AllowedImports returns a copy of the import table. A nil value retains the
// all-symbols sentinel, which serializes to JSON null for the harness.
func (p *Policy) AllowedImports() map[string][]string {
	out := make(map[string][]string, len(p.allowedImports))
	for module, symbols := range p.allowedImports {
		if symbols == nil {
			out[module] = nil
			continue
		}
		out[module] = append([]string(nil), symbols...)
	}
	return out
}

// SubmissionPrimitives returns a copy of the primitive names exposed to
// submission namespaces.
func (p *Policy) SubmissionPrimitives() []string {
	return append([]string(nil), p.submissionPrimitives...)
}

// GraderExtras returns a copy of the additional primitive names exposed to
// grader namespaces on top of the submission set.
func (p *Policy) GraderExtras() []string {
	return append([]string(nil), p.graderExtras...)
}
