package engine

import (
	"encoding/json"
	"sort"
	"testing"

	"skillbuilder/internal/grading/policy"
)

func TestDisallowedNodeNames(t *testing.T) {
	t.Parallel()

	names := DisallowedNodeNames(policy.Default())
	sort.Strings(names)
	want := []string{"AsyncWith", "Global", "Nonlocal", "With"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got %v, want %v", names, want)
		}
	}
}

func TestRequestSerializesAllSymbolsSentinel(t *testing.T) {
	t.Parallel()

	req := Request{
		AllowedImports: map[string][]string{
			"numpy": nil,
			"time":  {"sleep"},
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	imports := decoded["allowed_imports"].(map[string]interface{})
	if imports["numpy"] != nil {
		t.Errorf("numpy sentinel must serialize to null, got %v", imports["numpy"])
	}
	if imports["time"] == nil {
		t.Error("restrictive symbol list must not be null")
	}
}

func TestResponseDecodesHarnessPayload(t *testing.T) {
	t.Parallel()

	payload := `{
		"ok": false,
		"phase": "submission",
		"stdout": "partial",
		"stderr": "",
		"submission_ms": 12,
		"grader_ms": 0,
		"error": {"kind": "execution_error", "exc_type": "ValueError", "message": "bad input"}
	}`
	var resp Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Phase != PhaseSubmission {
		t.Errorf("phase: got %q", resp.Phase)
	}
	if resp.Error == nil || resp.Error.Kind != FailExecution || resp.Error.ExcType != "ValueError" {
		t.Errorf("error not decoded: %+v", resp.Error)
	}
	if resp.Stdout != "partial" {
		t.Error("partial output lost")
	}
}

func TestResponseDecodesDiagnostics(t *testing.T) {
	t.Parallel()

	payload := `{
		"ok": true,
		"phase": "done",
		"stdout": "",
		"stderr": "",
		"raw": {"score": 100, "max_score": 100},
		"diagnostics": {
			"functions": {
				"even_squares": {
					"name": "even_squares",
					"arguments": [[1, 2, 3, 4, 5]],
					"return_value": [4, 16],
					"return_type": "list"
				}
			},
			"classes": {"Box": {"name": "Box", "methods": ["get"]}},
			"variables": {"limit": {"name": "limit", "type": "int", "value": "10"}}
		}
	}`
	var resp Response
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	fn, ok := resp.Diagnostics.Functions["even_squares"]
	if !ok {
		t.Fatal("function diagnostics missing")
	}
	if fn.ReturnType != "list" {
		t.Errorf("return type: got %q", fn.ReturnType)
	}
	if len(resp.Diagnostics.Classes["Box"].Methods) != 1 {
		t.Error("class diagnostics missing methods")
	}
}
