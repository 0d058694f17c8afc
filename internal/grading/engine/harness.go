package engine

import (
	_ "embed"
	"os"
	"path/filepath"

	"skillbuilder/pkg/errors"
)

// harnessSource is the trusted interpreter-side half of the engine. It is
// embedded so the binary is self-contained; the engine materializes it into
// a private temp directory at construction time.
//
//go:embed harness.py
var harnessSource []byte

func materializeHarness(dir string) (string, error) {
	path := filepath.Join(dir, "harness.py")
	if err := os.WriteFile(path, harnessSource, 0o644); err != nil {
		return "", errors.Wrap(err, errors.SandboxError).WithMessage("write harness")
	}
	return path, nil
}
