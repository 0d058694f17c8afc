package engine

import (
	"encoding/json"

	"skillbuilder/internal/grading/namespace"
	"skillbuilder/internal/grading/policy"
)

// Phase identifies which stage of a run a response refers to.
type Phase string

const (
	PhaseValidate   Phase = "validate"
	PhaseSubmission Phase = "submission"
	PhaseGrader     Phase = "grader"
	PhaseInvoke     Phase = "invoke"
	PhaseDone       Phase = "done"
)

// FailureKind classifies a harness-reported failure.
type FailureKind string

const (
	FailSyntax    FailureKind = "syntax_invalid"
	FailPolicy    FailureKind = "policy_violation"
	FailExecution FailureKind = "execution_error"
	FailTimeout   FailureKind = "timeout_exceeded"
	FailContract  FailureKind = "contract_violation"
	FailSandbox   FailureKind = "sandbox_error"
)

// Request is the serialized run the harness executes. It is immutable and
// single-use: every grading call builds a fresh one.
type Request struct {
	Submission   string              `json:"submission"`
	Grader       string              `json:"grader"`
	Entrypoint   string              `json:"entrypoint"`
	SubmissionNS namespace.Namespace `json:"submission_ns"`
	GraderNS     namespace.Namespace `json:"grader_ns"`
	// AllowedImports mirrors the policy's import table; a nil symbol list
	// is the all-symbols sentinel. The harness enforces the same table at
	// parse time and again inside the runtime import gate, so static and
	// dynamic checks can never drift apart.
	AllowedImports      map[string][]string `json:"allowed_imports"`
	DisallowedNodes     []string            `json:"disallowed_nodes"`
	SubmissionTimeoutMs int64               `json:"submission_timeout_ms"`
	GraderTimeoutMs     int64               `json:"grader_timeout_ms"`
	MemoryLimitMB       int64               `json:"memory_limit_mb"`
	OutputLimitBytes    int64               `json:"output_limit_bytes"`
	Probe               bool                `json:"probe"`
}

// astNodeNames maps policy constructs to the interpreter's syntax-tree node
// names the harness checks against.
var astNodeNames = map[policy.Construct]string{
	policy.ConstructGlobal:    "Global",
	policy.ConstructNonlocal:  "Nonlocal",
	policy.ConstructWith:      "With",
	policy.ConstructAsyncWith: "AsyncWith",
}

// DisallowedNodeNames returns the harness-side names of every construct the
// policy forbids.
func DisallowedNodeNames(p *policy.Policy) []string {
	var names []string
	for construct, name := range astNodeNames {
		if p.ConstructDisallowed(construct) {
			names = append(names, name)
		}
	}
	return names
}

// RunError describes a failure inside the interpreter.
type RunError struct {
	Kind FailureKind `json:"kind"`
	// ExcType is the interpreter-side exception type, when one applies.
	ExcType string `json:"exc_type,omitempty"`
	Message string `json:"message"`
	// Module or construct names the offending policy subject.
	Module    string `json:"module,omitempty"`
	Construct string `json:"construct,omitempty"`
}

// ProbeFunction is the diagnostic record for one top-level callable in the
// submission namespace: the first probe input that produced a presentable
// value, plus the serialized result.
type ProbeFunction struct {
	Name        string          `json:"name"`
	Arguments   []interface{}   `json:"arguments,omitempty"`
	ReturnValue json.RawMessage `json:"return_value,omitempty"`
	ReturnType  string          `json:"return_type,omitempty"`
	// ExpectedResults is filled in by the grading layer from its
	// best-effort scan of the grader source.
	ExpectedResults [][]interface{} `json:"expected_results,omitempty"`
}

// ProbeClass records a class defined by the submission.
type ProbeClass struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
}

// ProbeVariable records a non-callable top-level binding.
type ProbeVariable struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Diagnostics is the harness's best-effort snapshot of the submission
// namespace, used for display only. It never influences the score.
type Diagnostics struct {
	Functions map[string]ProbeFunction `json:"functions,omitempty"`
	Classes   map[string]ProbeClass    `json:"classes,omitempty"`
	Variables map[string]ProbeVariable `json:"variables,omitempty"`
}

// Response is the harness's single reply. Exactly one of Error or Raw is
// meaningful: a failed run names its phase and error, a completed run
// carries the grader entrypoint's raw result mapping.
type Response struct {
	OK           bool                   `json:"ok"`
	Phase        Phase                  `json:"phase"`
	Error        *RunError              `json:"error,omitempty"`
	Raw          map[string]interface{} `json:"raw,omitempty"`
	Stdout       string                 `json:"stdout"`
	Stderr       string                 `json:"stderr"`
	Diagnostics  *Diagnostics           `json:"diagnostics,omitempty"`
	SubmissionMs int64                  `json:"submission_ms"`
	GraderMs     int64                  `json:"grader_ms"`
}
