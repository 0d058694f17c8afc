//go:build !linux

package engine

import (
	"context"

	"skillbuilder/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, req Request) (Response, error) {
	return Response{}, errors.New(errors.SandboxError).WithMessage("interpreter engine is only supported on linux")
}

func (s *stubEngine) Close() error { return nil }
