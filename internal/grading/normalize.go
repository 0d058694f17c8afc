package grading

const defaultMaxScore = 100

// normalize converts the grader entrypoint's raw mapping into the bounded
// score fields. Missing keys fall back to zero/100/"" and the score is
// clamped into [0, max_score] no matter what the grader returned.
func normalize(raw map[string]interface{}) (score, maxScore int, feedback string) {
	maxScore = defaultMaxScore
	if v, ok := rawInt(raw["max_score"]); ok {
		maxScore = v
	}
	if v, ok := rawInt(raw["score"]); ok {
		score = v
	}
	if maxScore < 0 {
		maxScore = 0
	}
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	if v, ok := raw["feedback"].(string); ok {
		feedback = v
	}
	return score, maxScore, feedback
}

// rawInt accepts the numeric shapes a JSON round-trip can produce.
func rawInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
