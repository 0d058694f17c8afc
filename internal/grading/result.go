package grading

import "skillbuilder/internal/grading/engine"

// GradeResult is the normalized outcome of one grading call.
// Score always satisfies 0 <= Score <= MaxScore.
type GradeResult struct {
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Feedback string `json:"feedback"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	// Diagnostics is display-only probe data; it never affects the score.
	Diagnostics  *engine.Diagnostics `json:"diagnostics,omitempty"`
	SubmissionMs int64               `json:"submission_ms"`
	GraderMs     int64               `json:"grader_ms"`
}

// Perfect reports whether the submission earned full marks.
func (r *GradeResult) Perfect() bool {
	return r.Score >= r.MaxScore
}
