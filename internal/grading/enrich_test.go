package grading

import (
	"reflect"
	"testing"
)

func TestExtractExpected(t *testing.T) {
	t.Parallel()

	grader := `def grade(ns):
    if 'fizzbuzz' not in ns:
        return {'score': 0, 'feedback': 'missing'}
    expected = ['1', '2', 'Fizz', '4', 'Buzz']
    result = ns['fizzbuzz'](5)
    if result != ['1', '2', 'Fizz', '4', 'Buzz']:
        return {'score': 40}
    return {'score': 100}
`
	got := extractExpected(grader)
	values, ok := got["fizzbuzz"]
	if !ok {
		t.Fatalf("expected values under 'fizzbuzz', got %v", got)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 extracted lists, got %d", len(values))
	}
	want := []interface{}{"1", "2", "Fizz", "4", "Buzz"}
	if !reflect.DeepEqual(values[0], want) {
		t.Errorf("extracted %v, want %v", values[0], want)
	}
}

func TestExtractExpectedNoMatches(t *testing.T) {
	t.Parallel()

	if got := extractExpected("def grade(ns):\n    return {'score': 100}\n"); got != nil {
		t.Errorf("expected nil for a grader with no literals, got %v", got)
	}
}

func TestExtractExpectedSkipsUnparsable(t *testing.T) {
	t.Parallel()

	grader := "def grade(ns):\n    if 'f' not in ns:\n        return {}\n    expected = [some_call()]\n    return {}\n"
	if got := extractExpected(grader); got != nil {
		t.Errorf("unparsable literal must be skipped, got %v", got)
	}
}

func TestParseListLiteral(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want []interface{}
		ok   bool
	}{
		{"[]", []interface{}{}, true},
		{"[1, 2, 3]", []interface{}{1, 2, 3}, true},
		{"[-1, 2.5]", []interface{}{-1, 2.5}, true},
		{"['a', \"b\"]", []interface{}{"a", "b"}, true},
		{"[True, False, None]", []interface{}{true, false, nil}, true},
		{"[[1, 2], [3]]", []interface{}{[]interface{}{1, 2}, []interface{}{3}}, true},
		{"[(1, 2)]", []interface{}{[]interface{}{1, 2}}, true},
		{"['it\\'s']", []interface{}{"it's"}, true},
		{"[1, 2", nil, false},
		{"[foo()]", nil, false},
		{"{1: 2}", nil, false},
		{"[1] extra", nil, false},
	}
	for _, tc := range cases {
		got, ok := parseListLiteral(tc.in)
		if ok != tc.ok {
			t.Errorf("parseListLiteral(%q): ok=%v, want %v", tc.in, ok, tc.ok)
			continue
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Errorf("parseListLiteral(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
