//go:build linux

package engine

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"testing"
	"time"

	"skillbuilder/internal/grading/namespace"
	"skillbuilder/internal/grading/policy"
)

func newHarnessEngine(t *testing.T) Engine {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	eng, err := NewEngine(Config{
		SubmissionTimeout: 5 * time.Second,
		GraderTimeout:     10 * time.Second,
	})
	if err != nil {
		t.Fatalf("create engine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func newRunRequest(submission, grader string) Request {
	pol := policy.Default()
	factory := namespace.NewFactory(pol)
	return Request{
		Submission:      submission,
		Grader:          grader,
		Entrypoint:      "grade",
		SubmissionNS:    factory.Build(namespace.RoleSubmission),
		GraderNS:        factory.Build(namespace.RoleGrader),
		AllowedImports:  pol.AllowedImports(),
		DisallowedNodes: DisallowedNodeNames(pol),
		Probe:           true,
	}
}

const passingGrader = `def grade(ns):
    fn = ns.get('even_squares')
    if fn is None:
        return {'score': 0, 'max_score': 100, 'feedback': 'even_squares missing'}
    if fn([1, 2, 3, 4, 5]) != [4, 16]:
        return {'score': 0, 'max_score': 100, 'feedback': 'wrong result'}
    return {'score': 100, 'max_score': 100, 'feedback': 'correct'}
`

func TestHarnessGradesSubmission(t *testing.T) {
	eng := newHarnessEngine(t)

	submission := "def even_squares(numbers):\n" +
		"    return [n * n for n in numbers if n % 2 == 0]\n" +
		"print('ready')\n"

	resp, err := eng.Run(context.Background(), newRunRequest(submission, passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resp.OK || resp.Phase != PhaseDone || resp.Error != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if score, _ := resp.Raw["score"].(float64); score != 100 {
		t.Errorf("score = %v, want 100", resp.Raw["score"])
	}
	if !strings.Contains(resp.Stdout, "ready") {
		t.Errorf("submission stdout lost: %q", resp.Stdout)
	}

	fn, ok := resp.Diagnostics.Functions["even_squares"]
	if !ok {
		t.Fatal("probe record for even_squares missing")
	}
	var value []int
	if err := json.Unmarshal(fn.ReturnValue, &value); err != nil {
		t.Fatalf("probe return value %s: %v", fn.ReturnValue, err)
	}
	// The battery stops at the first non-empty sequence: [1,2,3,4,5].
	if len(value) != 2 || value[0] != 4 || value[1] != 16 {
		t.Errorf("probe return value = %v", value)
	}
	if fn.ReturnType != "list" {
		t.Errorf("probe return type = %q", fn.ReturnType)
	}
}

func TestHarnessRefusesStaticImport(t *testing.T) {
	eng := newHarnessEngine(t)

	resp, err := eng.Run(context.Background(), newRunRequest("import os\n", passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailPolicy {
		t.Fatalf("expected policy failure, got %+v", resp)
	}
	if resp.Phase != PhaseValidate || resp.Error.Module != "os" {
		t.Errorf("phase=%q module=%q", resp.Phase, resp.Error.Module)
	}
}

func TestHarnessImportGateIgnoresFromlist(t *testing.T) {
	eng := newHarnessEngine(t)

	// Naming an allowed module in the fromlist must not admit a denied one.
	submission := "mod = __import__('os', fromlist=['time'])\n" +
		"leak = mod.getcwd()\n"
	resp, err := eng.Run(context.Background(), newRunRequest(submission, passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailExecution {
		t.Fatalf("expected the import to be refused, got %+v", resp)
	}
	if resp.Error.ExcType != "ImportError" {
		t.Errorf("exc type = %q, want ImportError", resp.Error.ExcType)
	}
	if resp.Phase != PhaseSubmission {
		t.Errorf("phase = %q", resp.Phase)
	}
}

func TestHarnessImportGateSymbolSet(t *testing.T) {
	eng := newHarnessEngine(t)

	// A fromlist entry outside the module's symbol set is refused even
	// though the module itself is allowed.
	resp, err := eng.Run(context.Background(),
		newRunRequest("mod = __import__('functools', fromlist=['reduce'])\n", passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailExecution || resp.Error.ExcType != "ImportError" {
		t.Fatalf("expected ImportError for denied symbol, got %+v", resp)
	}

	// The listed symbol passes.
	submission := "mod = __import__('functools', fromlist=['wraps'])\n" +
		"w = getattr(mod, 'wraps')\n" +
		"def even_squares(numbers):\n" +
		"    return [n * n for n in numbers if n % 2 == 0]\n"
	resp, err = eng.Run(context.Background(), newRunRequest(submission, passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resp.OK {
		t.Fatalf("allowed symbol import failed: %+v", resp)
	}
}

func TestHarnessSyntaxError(t *testing.T) {
	eng := newHarnessEngine(t)

	resp, err := eng.Run(context.Background(), newRunRequest("def broken(:\n", passingGrader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailSyntax || resp.Phase != PhaseValidate {
		t.Fatalf("expected syntax failure in validate phase, got %+v", resp)
	}
}

func TestHarnessSubmissionTimeout(t *testing.T) {
	eng := newHarnessEngine(t)

	req := newRunRequest("while True:\n    pass\n", passingGrader)
	req.SubmissionTimeoutMs = 300
	req.GraderTimeoutMs = 1000

	resp, err := eng.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailTimeout {
		t.Fatalf("expected timeout, got %+v", resp)
	}
	if resp.Phase != PhaseSubmission {
		t.Errorf("timeout attributed to phase %q", resp.Phase)
	}
}

func TestHarnessContractViolation(t *testing.T) {
	eng := newHarnessEngine(t)

	resp, err := eng.Run(context.Background(), newRunRequest("x = 1\n", "threshold = 10\n"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if resp.Error == nil || resp.Error.Kind != FailContract || resp.Phase != PhaseInvoke {
		t.Fatalf("expected contract violation in invoke phase, got %+v", resp)
	}
}

func TestHarnessProbeIsolation(t *testing.T) {
	eng := newHarnessEngine(t)

	// A callable that rejects every probe input must not break the run or
	// the rest of the snapshot.
	submission := "def explode(x):\n" +
		"    raise ValueError('no')\n" +
		"limit = 10\n"
	grader := "def grade(ns):\n" +
		"    return {'score': 100, 'max_score': 100}\n"

	resp, err := eng.Run(context.Background(), newRunRequest(submission, grader))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !resp.OK {
		t.Fatalf("run failed: %+v", resp)
	}
	if _, ok := resp.Diagnostics.Functions["explode"]; !ok {
		t.Error("hostile callable missing from snapshot")
	}
	if v, ok := resp.Diagnostics.Variables["limit"]; !ok || v.Value != "10" {
		t.Errorf("variable snapshot: %+v", resp.Diagnostics.Variables)
	}
}
