package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"skillbuilder/internal/common/cache"
	"skillbuilder/internal/content"
	"skillbuilder/internal/grading"
	appErr "skillbuilder/pkg/errors"
)

type fakeGrader struct {
	result *grading.GradeResult
	err    error
	calls  int
}

func (f *fakeGrader) Grade(ctx context.Context, submission, grader string) (*grading.GradeResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newContentDir(t *testing.T) *content.Repository {
	t.Helper()
	dir := t.TempDir()
	module := `{
		"id": "m1",
		"workshops": [
			{"id": "w1", "tests": "def grade(ns): return {'score': 10, 'max_score': 10}",
			 "visualizations": [{"type": "chart"}]}
		]
	}`
	if err := os.WriteFile(filepath.Join(dir, "m1.json"), []byte(module), 0o644); err != nil {
		t.Fatalf("write module: %v", err)
	}
	return content.NewRepository(dir)
}

func newRedisCache(t *testing.T) cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return c
}

func TestGradeRequiredFields(t *testing.T) {
	svc := NewGradeService(Config{Repo: newContentDir(t), Protocol: &fakeGrader{}})

	for _, in := range []GradeInput{
		{WorkshopID: "w1", Code: "x = 1"},
		{ModuleID: "m1", Code: "x = 1"},
		{ModuleID: "m1", WorkshopID: "w1"},
	} {
		if _, err := svc.Grade(context.Background(), in); !appErr.Is(err, appErr.RequiredFieldEmpty) {
			t.Errorf("input %+v: expected RequiredFieldEmpty, got %v", in, err)
		}
	}
}

func TestGradeTooLarge(t *testing.T) {
	svc := NewGradeService(Config{
		Repo:         newContentDir(t),
		Protocol:     &fakeGrader{},
		MaxCodeBytes: 8,
	})
	in := GradeInput{ModuleID: "m1", WorkshopID: "w1", Code: "x = 'way past the limit'"}
	if _, err := svc.Grade(context.Background(), in); !appErr.Is(err, appErr.SubmissionTooLarge) {
		t.Fatalf("expected SubmissionTooLarge, got %v", err)
	}
}

func TestGradeSuccess(t *testing.T) {
	fg := &fakeGrader{result: &grading.GradeResult{Score: 10, MaxScore: 10, Feedback: "ok"}}
	svc := NewGradeService(Config{Repo: newContentDir(t), Protocol: fg})

	out, err := svc.Grade(context.Background(), GradeInput{ModuleID: "m1", WorkshopID: "w1", Code: "x = 1"})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if out.Score != 10 || out.Cached {
		t.Errorf("unexpected output: %+v", out)
	}
	if len(out.Visualizations) != 1 {
		t.Errorf("expected workshop visualizations to be attached, got %d", len(out.Visualizations))
	}
}

func TestGradeCacheRoundTrip(t *testing.T) {
	fg := &fakeGrader{result: &grading.GradeResult{Score: 7, MaxScore: 10}}
	svc := NewGradeService(Config{
		Repo:      newContentDir(t),
		Protocol:  fg,
		Cache:     newRedisCache(t),
		ResultTTL: time.Minute,
	})
	in := GradeInput{ModuleID: "m1", WorkshopID: "w1", Code: "x = 1"}

	first, err := svc.Grade(context.Background(), in)
	if err != nil {
		t.Fatalf("first Grade: %v", err)
	}
	if first.Cached {
		t.Error("first run should not be cached")
	}

	second, err := svc.Grade(context.Background(), in)
	if err != nil {
		t.Fatalf("second Grade: %v", err)
	}
	if !second.Cached || second.Score != 7 {
		t.Errorf("expected cached replay, got %+v", second)
	}
	if fg.calls != 1 {
		t.Errorf("protocol called %d times, want 1", fg.calls)
	}

	// A different submission misses the cache.
	other := in
	other.Code = "x = 2"
	if _, err := svc.Grade(context.Background(), other); err != nil {
		t.Fatalf("other Grade: %v", err)
	}
	if fg.calls != 2 {
		t.Errorf("protocol called %d times, want 2", fg.calls)
	}
}

func TestGradeCacheFaultDegrades(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c, err := cache.NewRedisCacheWithClient(client)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	mr.Close() // every cache call now errors

	fg := &fakeGrader{result: &grading.GradeResult{Score: 5, MaxScore: 10}}
	svc := NewGradeService(Config{Repo: newContentDir(t), Protocol: fg, Cache: c})

	out, err := svc.Grade(context.Background(), GradeInput{ModuleID: "m1", WorkshopID: "w1", Code: "x = 1"})
	if err != nil {
		t.Fatalf("Grade should survive cache faults: %v", err)
	}
	if out.Score != 5 || fg.calls != 1 {
		t.Errorf("unexpected result after cache fault: %+v calls=%d", out, fg.calls)
	}
}

func TestGradeProtocolError(t *testing.T) {
	fg := &fakeGrader{err: appErr.New(appErr.PolicyViolation)}
	svc := NewGradeService(Config{Repo: newContentDir(t), Protocol: fg})

	_, err := svc.Grade(context.Background(), GradeInput{ModuleID: "m1", WorkshopID: "w1", Code: "import os"})
	if !appErr.Is(err, appErr.PolicyViolation) {
		t.Fatalf("expected PolicyViolation, got %v", err)
	}
}

func TestGradeUnknownModule(t *testing.T) {
	svc := NewGradeService(Config{Repo: newContentDir(t), Protocol: &fakeGrader{}})

	_, err := svc.Grade(context.Background(), GradeInput{ModuleID: "nope", WorkshopID: "w1", Code: "x = 1"})
	if !appErr.Is(err, appErr.ModuleNotFound) {
		t.Fatalf("expected ModuleNotFound, got %v", err)
	}
}
