// Package namespace builds the curated execution environments grading runs
// inside. A Namespace here is the serializable specification the interpreter
// harness materializes: which primitives exist, how the import gate behaves,
// and which trusted modules are preloaded. The harness never exposes anything
// this specification does not name.
package namespace

import (
	"fmt"

	"skillbuilder/internal/grading/policy"
)

// Role selects which environment is built.
type Role string

const (
	// RoleSubmission is the environment learner code runs in.
	RoleSubmission Role = "submission"
	// RoleGrader is the environment operator-authored grading code runs in.
	RoleGrader Role = "grader"
)

// Gate selects runtime import behavior.
type Gate string

const (
	// GateRestricted re-checks every dynamic import against the policy's
	// import table. Static validation alone is bypassable by code that
	// reaches the low-level import primitive with a computed name, so the
	// namespace itself refuses anything the validator would have refused.
	GateRestricted Gate = "restricted"
	// GateUnrestricted leaves the interpreter's import machinery intact.
	// Only grader namespaces get this.
	GateUnrestricted Gate = "unrestricted"
)

// Namespace specifies one execution environment. Submission and grader
// namespaces are always distinct values and share nothing; a grader observes
// a submission's bindings only by receiving them as an explicit argument to
// its entrypoint.
type Namespace struct {
	Role       Role                   `json:"role"`
	Primitives []string               `json:"primitives"`
	ImportGate Gate                   `json:"import_gate"`
	Modules    []string               `json:"modules,omitempty"`
	Seed       map[string]interface{} `json:"seed,omitempty"`
}

// hostilePrimitives are names that would hand the environment a path back to
// the host process. No namespace may ever list them, regardless of role.
var hostilePrimitives = map[string]bool{
	"open": true, "exec": true, "eval": true, "compile": true,
	"input": true, "__import__": true, "globals": true, "locals": true,
	"breakpoint": true, "help": true, "exit": true, "quit": true,
	"memoryview": true,
}

// Factory builds namespaces from an immutable policy.
type Factory struct {
	policy *policy.Policy
}

// NewFactory creates a namespace factory bound to a policy.
func NewFactory(p *policy.Policy) *Factory {
	return &Factory{policy: p}
}

// Build returns a fresh Namespace for the role. Every call returns a new
// value; concurrent grading calls never share one.
func (f *Factory) Build(role Role) Namespace {
	switch role {
	case RoleGrader:
		primitives := f.policy.SubmissionPrimitives()
		primitives = append(primitives, f.policy.GraderExtras()...)
		return Namespace{
			Role:       RoleGrader,
			Primitives: primitives,
			ImportGate: GateUnrestricted,
			Modules:    []string{"inspect"},
		}
	default:
		return Namespace{
			Role:       RoleSubmission,
			Primitives: f.policy.SubmissionPrimitives(),
			ImportGate: GateRestricted,
		}
	}
}

// BuildWithSeed returns a Namespace pre-populated with bindings. Seed values
// must be JSON-serializable; they cross the harness boundary as data, never
// as live objects.
func (f *Factory) BuildWithSeed(role Role, seed map[string]interface{}) Namespace {
	ns := f.Build(role)
	if len(seed) > 0 {
		ns.Seed = make(map[string]interface{}, len(seed))
		for k, v := range seed {
			ns.Seed[k] = v
		}
	}
	return ns
}

// Check verifies the namespace upholds the containment rule: no primitive
// that reaches back into the host environment may be listed.
func (n Namespace) Check() error {
	for _, name := range n.Primitives {
		if hostilePrimitives[name] {
			return fmt.Errorf("namespace %s exposes hostile primitive %q", n.Role, name)
		}
	}
	if n.Role == RoleSubmission && n.ImportGate != GateRestricted {
		return fmt.Errorf("submission namespace must use the restricted import gate")
	}
	return nil
}
