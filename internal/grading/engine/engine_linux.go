//go:build linux

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"skillbuilder/pkg/errors"
	"skillbuilder/pkg/utils/logger"
)

// harnessStdoutMaxBytes bounds the harness's own stdout. The harness keeps
// the real stdout descriptor for itself and emits exactly one JSON response
// on it, so anything near this limit means the harness is broken.
const harnessStdoutMaxBytes = 4 * 1024 * 1024

type linuxEngine struct {
	cfg     Config
	argv    []string
	workDir string
	limiter *tokenLimiter
}

// NewEngine creates a Linux interpreter engine. The embedded harness is
// written into a private temp directory owned by the engine; Close removes
// it.
func NewEngine(cfg Config) (Engine, error) {
	cfg.applyDefaults()
	argv, err := cfg.interpreterArgv()
	if err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp("", "grader-harness-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.SandboxError).WithMessage("create harness dir")
	}
	harnessPath, err := materializeHarness(workDir)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return &linuxEngine{
		cfg:     cfg,
		argv:    append(argv, harnessPath),
		workDir: workDir,
		limiter: newTokenLimiter(cfg.MaxConcurrentRuns),
	}, nil
}

func (e *linuxEngine) Run(ctx context.Context, req Request) (Response, error) {
	if err := e.limiter.acquire(ctx); err != nil {
		return Response{}, errors.Wrap(err, errors.SandboxError).WithMessage("waiting for an interpreter slot")
	}
	defer e.limiter.release()

	e.fillLimits(&req)

	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, errors.Wrap(err, errors.SandboxError).WithMessage("encode run request")
	}

	cmd := exec.CommandContext(ctx, e.argv[0], e.argv[1:]...)
	cmd.Dir = e.workDir
	cmd.Stdin = bytes.NewReader(payload)
	cmd.SysProcAttr = buildSysProcAttr(e.cfg)

	stdout := &limitedBuffer{max: harnessStdoutMaxBytes}
	stderr := &limitedBuffer{max: e.cfg.StdoutStderrMaxBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Response{}, errors.Wrap(err, errors.SandboxError).WithMessage("start interpreter")
	}

	// The harness attributes its own timeouts per phase via an in-process
	// alarm. The watchdog is the backstop: it fires only when the
	// interpreter blew straight through its combined budget, and reclaims
	// the whole process group so nothing is left running.
	var timedOut atomic.Bool
	wall := time.Duration(req.SubmissionTimeoutMs+req.GraderTimeoutMs)*time.Millisecond + e.cfg.KillGrace
	done := make(chan struct{})
	go func() {
		select {
		case <-time.After(wall):
			timedOut.Store(true)
			killProcessGroup(cmd.Process.Pid)
		case <-ctx.Done():
			killProcessGroup(cmd.Process.Pid)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err == nil && resp.Phase != "" {
		return resp, nil
	}

	if timedOut.Load() {
		return Response{
			Phase: PhaseSubmission,
			Error: &RunError{
				Kind:    FailTimeout,
				Message: "execution exceeded the wall-clock limit and was killed",
			},
		}, nil
	}
	if ctx.Err() != nil {
		return Response{}, errors.Wrap(ctx.Err(), errors.SandboxError).WithMessage("run cancelled")
	}

	if waitErr != nil {
		logger.Warn(ctx, "interpreter harness failed",
			zap.Error(waitErr),
			zap.String("stderr", stderr.String()))
	}
	return Response{}, errors.New(errors.SandboxError).
		WithMessage("harness produced no response").
		WithDetail("stderr", stderr.String())
}

func (e *linuxEngine) Close() error {
	return os.RemoveAll(e.workDir)
}

func (e *linuxEngine) fillLimits(req *Request) {
	if req.SubmissionTimeoutMs <= 0 {
		req.SubmissionTimeoutMs = e.cfg.SubmissionTimeout.Milliseconds()
	}
	if req.GraderTimeoutMs <= 0 {
		req.GraderTimeoutMs = e.cfg.GraderTimeout.Milliseconds()
	}
	if req.MemoryLimitMB <= 0 {
		req.MemoryLimitMB = e.cfg.MemoryLimitMB
	}
	if req.OutputLimitBytes <= 0 {
		req.OutputLimitBytes = e.cfg.StdoutStderrMaxBytes
	}
}

func killProcessGroup(pid int) {
	if pid <= 0 {
		return
	}
	_ = unix.Kill(-pid, unix.SIGKILL)
}

// buildSysProcAttr places the interpreter in its own process group so the
// watchdog can kill everything it spawns, and optionally in fresh Linux
// namespaces.
func buildSysProcAttr(cfg Config) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if !cfg.EnableNamespaces {
		return attr
	}

	cloneFlags := uintptr(syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC)
	if cfg.DisableNetwork {
		cloneFlags |= syscall.CLONE_NEWNET
	}
	cloneFlags |= syscall.CLONE_NEWUSER

	attr.Cloneflags = cloneFlags
	attr.GidMappingsEnableSetgroups = false
	attr.UidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getuid(),
		Size:        1,
	}}
	attr.GidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getgid(),
		Size:        1,
	}}
	return attr
}

// limitedBuffer accepts every write but retains at most max bytes.
type limitedBuffer struct {
	buf bytes.Buffer
	max int64
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if remain := b.max - int64(b.buf.Len()); remain > 0 {
		if int64(len(p)) > remain {
			p = p[:remain]
		}
		b.buf.Write(p)
	}
	return n, nil
}

func (b *limitedBuffer) Bytes() []byte  { return b.buf.Bytes() }
func (b *limitedBuffer) String() string { return b.buf.String() }
