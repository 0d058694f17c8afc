// Package engine runs submission and grader code inside an isolated Python
// interpreter subprocess. The host process never evaluates untrusted code:
// it serializes a run request onto the interpreter's stdin, lets the
// embedded harness materialize the namespaces and execute both phases, and
// reads a single JSON response back. Process termination is the cancellation
// primitive, so a hostile busy-loop can always be reclaimed.
package engine

import (
	"context"
	"time"

	"github.com/google/shlex"

	"skillbuilder/pkg/errors"
)

const (
	defaultInterpreterCmd       = "python3 -I"
	defaultSubmissionTimeout    = 5 * time.Second
	defaultGraderTimeout        = 30 * time.Second
	defaultKillGrace            = 2 * time.Second
	defaultStdoutStderrMaxBytes = 64 * 1024
	defaultMemoryLimitMB        = 256
	defaultMaxConcurrentRuns    = 4
)

// Engine executes one grading run in an isolated interpreter.
type Engine interface {
	Run(ctx context.Context, req Request) (Response, error)
	Close() error
}

// Config controls interpreter engine behavior.
type Config struct {
	// InterpreterCmd is the interpreter command line, split shell-style.
	// The harness path is appended as the final argument.
	InterpreterCmd string `yaml:"interpreter_cmd"`
	// SubmissionTimeout bounds submission execution wall time.
	SubmissionTimeout time.Duration `yaml:"submission_timeout"`
	// GraderTimeout bounds grader execution and entrypoint invocation.
	GraderTimeout time.Duration `yaml:"grader_timeout"`
	// KillGrace is added to the phase budgets before the host kills the
	// whole process group. The in-process alarm fires first under normal
	// conditions so the failure keeps its phase attribution; the group
	// kill is the backstop for runs that stop listening to signals.
	KillGrace            time.Duration `yaml:"kill_grace"`
	StdoutStderrMaxBytes int64         `yaml:"stdout_stderr_max_bytes"`
	MemoryLimitMB        int64         `yaml:"memory_limit_mb"`
	// MaxConcurrentRuns caps simultaneous interpreter subprocesses. Runs
	// beyond the cap queue until a slot frees or their context ends.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`
	// EnableNamespaces places the interpreter in fresh Linux namespaces.
	EnableNamespaces bool `yaml:"enable_namespaces"`
	// DisableNetwork additionally unshares the network namespace.
	DisableNetwork bool `yaml:"disable_network"`
}

func (c *Config) applyDefaults() {
	if c.InterpreterCmd == "" {
		c.InterpreterCmd = defaultInterpreterCmd
	}
	if c.SubmissionTimeout <= 0 {
		c.SubmissionTimeout = defaultSubmissionTimeout
	}
	if c.GraderTimeout <= 0 {
		c.GraderTimeout = defaultGraderTimeout
	}
	if c.KillGrace <= 0 {
		c.KillGrace = defaultKillGrace
	}
	if c.StdoutStderrMaxBytes <= 0 {
		c.StdoutStderrMaxBytes = defaultStdoutStderrMaxBytes
	}
	if c.MemoryLimitMB <= 0 {
		c.MemoryLimitMB = defaultMemoryLimitMB
	}
	if c.MaxConcurrentRuns <= 0 {
		c.MaxConcurrentRuns = defaultMaxConcurrentRuns
	}
}

// interpreterArgv splits InterpreterCmd into an argv prefix.
func (c Config) interpreterArgv() ([]string, error) {
	argv, err := shlex.Split(c.InterpreterCmd)
	if err != nil {
		return nil, errors.Wrapf(err, errors.SandboxError, "parse interpreter command %q", c.InterpreterCmd)
	}
	if len(argv) == 0 {
		return nil, errors.New(errors.SandboxError).WithMessage("interpreter command is empty")
	}
	return argv, nil
}
