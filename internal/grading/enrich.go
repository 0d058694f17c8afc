package grading

import (
	"regexp"
	"strconv"
	"strings"
)

// Enrichment is advisory pattern matching over grader source text, not a
// parser of the grader's logic. It pulls out literal expected values so the
// UI can show a hint next to a failing function. Known limitation: when one
// grader checks several callables, every extracted value is attributed to
// the first subject name found.
var (
	subjectPattern    = regexp.MustCompile(`if\s+'(\w+)'\s+not\s+in\s+ns`)
	expectedPattern   = regexp.MustCompile(`expected\s*=\s*(\[.*?\])`)
	comparisonPattern = regexp.MustCompile(`if\s+result\d*\s*!=\s*(\[.*?\])`)
)

// extractExpected scans grader source for expected-value literals. Its
// output is display-only; any value it cannot parse is simply skipped.
func extractExpected(graderSource string) map[string][][]interface{} {
	name := "unknown"
	if m := subjectPattern.FindStringSubmatch(graderSource); m != nil {
		name = m[1]
	}

	var values [][]interface{}
	for _, pattern := range []*regexp.Regexp{expectedPattern, comparisonPattern} {
		for _, m := range pattern.FindAllStringSubmatch(graderSource, -1) {
			if list, ok := parseListLiteral(m[1]); ok {
				values = append(values, list)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	return map[string][][]interface{}{name: values}
}

// parseListLiteral evaluates a Python list literal containing numbers,
// strings, booleans, None and nested lists/tuples. Anything else fails.
func parseListLiteral(s string) ([]interface{}, bool) {
	p := &literalParser{src: s}
	p.skipSpace()
	v, ok := p.parseValue()
	if !ok {
		return nil, false
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, false
	}
	list, isList := v.([]interface{})
	return list, isList
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) parseValue() (interface{}, bool) {
	if p.pos >= len(p.src) {
		return nil, false
	}
	switch c := p.src[p.pos]; {
	case c == '[':
		return p.parseSequence('[', ']')
	case c == '(':
		return p.parseSequence('(', ')')
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *literalParser) parseSequence(open, close byte) (interface{}, bool) {
	p.pos++ // consume open
	items := []interface{}{}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, false
		}
		if p.src[p.pos] == close {
			p.pos++
			return items, true
		}
		v, ok := p.parseValue()
		if !ok {
			return nil, false
		}
		items = append(items, v)
		p.skipSpace()
		if p.pos < len(p.src) && p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.pos < len(p.src) && p.src[p.pos] == close {
			p.pos++
			return items, true
		}
		return nil, false
	}
}

func (p *literalParser) parseString() (interface{}, bool) {
	quote := p.src[p.pos]
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), true
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, false
			}
			p.pos++
			switch esc := p.src[p.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(esc)
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return nil, false
}

func (p *literalParser) parseNumber() (interface{}, bool) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.pos++
			continue
		}
		if (c == '+' || c == '-') && isFloat {
			prev := p.src[p.pos-1]
			if prev == 'e' || prev == 'E' {
				p.pos++
				continue
			}
		}
		break
	}
	text := p.src[start:p.pos]
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		return f, err == nil
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, false
	}
	return int(n), true
}

func (p *literalParser) parseKeyword() (interface{}, bool) {
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "True"):
		p.pos += 4
		return true, true
	case strings.HasPrefix(rest, "False"):
		p.pos += 5
		return false, true
	case strings.HasPrefix(rest, "None"):
		p.pos += 4
		return nil, true
	}
	return nil, false
}
