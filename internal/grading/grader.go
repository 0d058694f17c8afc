// Package grading implements the grading protocol: validate the submission,
// execute it and the grader in isolated namespaces, invoke the grader's
// entrypoint against the submission state, then normalize and enrich the
// result. Every call builds fresh state and discards it; nothing persists
// between calls.
package grading

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"skillbuilder/internal/grading/engine"
	"skillbuilder/internal/grading/namespace"
	"skillbuilder/internal/grading/policy"
	"skillbuilder/pkg/errors"
	"skillbuilder/pkg/utils/logger"
)

// Entrypoint is the callable every grader must define. It receives the
// submission namespace as its sole argument and returns a result mapping.
const Entrypoint = "grade"

// Protocol orchestrates one grading call end to end.
type Protocol struct {
	policy    *policy.Policy
	validator *policy.Validator
	factory   *namespace.Factory
	engine    engine.Engine
}

// NewProtocol builds a grading protocol over an immutable policy and an
// execution engine. The protocol is safe for concurrent use: each Grade
// call owns its namespaces and interpreter process outright.
func NewProtocol(p *policy.Policy, eng engine.Engine) *Protocol {
	return &Protocol{
		policy:    p,
		validator: policy.NewValidator(p),
		factory:   namespace.NewFactory(p),
		engine:    eng,
	}
}

// Grade validates and runs the submission against the grader source.
// Failures come back as coded errors: learner-attributable ones
// (SyntaxInvalid, PolicyViolation, ExecutionError, TimeoutExceeded) and
// operator-attributable ones (ContractViolation for a grader missing its
// entrypoint, SandboxError for infrastructure faults).
func (g *Protocol) Grade(ctx context.Context, submission, grader string) (*GradeResult, error) {
	if strings.TrimSpace(grader) == "" {
		return nil, errors.New(errors.GraderSourceEmpty)
	}

	// Static gate first: a disallowed import or construct fails here,
	// before anything runs.
	if err := g.validator.Validate(submission); err != nil {
		return nil, err
	}

	req := engine.Request{
		Submission:      submission,
		Grader:          grader,
		Entrypoint:      Entrypoint,
		SubmissionNS:    g.factory.Build(namespace.RoleSubmission),
		GraderNS:        g.factory.Build(namespace.RoleGrader),
		AllowedImports:  g.policy.AllowedImports(),
		DisallowedNodes: engine.DisallowedNodeNames(g.policy),
		Probe:           true,
	}

	resp, err := g.engine.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, runErrorToError(resp)
	}

	score, maxScore, feedback := normalize(resp.Raw)
	result := &GradeResult{
		Score:        score,
		MaxScore:     maxScore,
		Feedback:     feedback,
		Stdout:       resp.Stdout,
		Stderr:       resp.Stderr,
		Diagnostics:  resp.Diagnostics,
		SubmissionMs: resp.SubmissionMs,
		GraderMs:     resp.GraderMs,
	}

	// Expected-value hints are shown only on imperfect scores, so a
	// correct submission never leaks the grader's literals.
	if score < maxScore {
		attachExpected(result.Diagnostics, extractExpected(grader))
	}

	logger.Debug(ctx, "grading completed",
		zap.Int("score", result.Score),
		zap.Int("max_score", result.MaxScore),
		zap.Int64("submission_ms", result.SubmissionMs),
		zap.Int64("grader_ms", result.GraderMs))
	return result, nil
}

// attachExpected copies extracted expected values onto the matching probe
// records. Names the heuristic got wrong simply find no match.
func attachExpected(diag *engine.Diagnostics, expected map[string][][]interface{}) {
	if diag == nil || len(expected) == 0 {
		return
	}
	for name, values := range expected {
		if fn, ok := diag.Functions[name]; ok {
			fn.ExpectedResults = values
			diag.Functions[name] = fn
		}
	}
}

func runErrorToError(resp engine.Response) error {
	re := resp.Error
	var err *errors.Error
	switch re.Kind {
	case engine.FailSyntax:
		err = errors.New(errors.SyntaxInvalid).WithMessage(re.Message)
	case engine.FailPolicy:
		err = errors.New(errors.PolicyViolation).WithMessage(re.Message)
		if re.Module != "" {
			err = err.WithDetail("module", re.Module)
		}
		if re.Construct != "" {
			err = err.WithDetail("construct", re.Construct)
		}
	case engine.FailTimeout:
		err = errors.New(errors.TimeoutExceeded).WithMessage(re.Message)
	case engine.FailExecution:
		err = errors.New(errors.ExecutionError).WithMessage(re.Message)
		if re.ExcType != "" {
			err = err.WithDetail("exc_type", re.ExcType)
		}
	case engine.FailContract:
		err = errors.New(errors.ContractViolation).WithMessage(re.Message)
	default:
		err = errors.New(errors.SandboxError).WithMessage(re.Message)
	}
	err = err.WithDetail("phase", string(resp.Phase))
	// Partial output survives the failure for display.
	if resp.Stdout != "" {
		err = err.WithDetail("stdout", resp.Stdout)
	}
	if resp.Stderr != "" {
		err = err.WithDetail("stderr", resp.Stderr)
	}
	return err
}
