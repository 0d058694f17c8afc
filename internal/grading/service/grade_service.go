package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"skillbuilder/internal/common/cache"
	"skillbuilder/internal/content"
	"skillbuilder/internal/grading"
	"skillbuilder/pkg/errors"
	"skillbuilder/pkg/utils/logger"
)

const (
	resultKeyPrefix     = "grade:result:"
	defaultMaxCodeBytes = 64 * 1024
	defaultResultTTL    = 10 * time.Minute
)

// Grader runs one grading call. *grading.Protocol is the production
// implementation.
type Grader interface {
	Grade(ctx context.Context, submission, grader string) (*grading.GradeResult, error)
}

// Config holds grade service dependencies and settings.
type Config struct {
	Repo     *content.Repository
	Protocol Grader
	// Cache is optional. When set, identical submission/grader pairs are
	// served from the cached result.
	Cache        cache.Cache
	ResultTTL    time.Duration
	MaxCodeBytes int
}

// GradeService resolves workshop content and runs the grading protocol.
type GradeService struct {
	repo         *content.Repository
	protocol     Grader
	cache        cache.Cache
	resultTTL    time.Duration
	maxCodeBytes int
}

// NewGradeService creates a grade service.
func NewGradeService(cfg Config) *GradeService {
	if cfg.MaxCodeBytes <= 0 {
		cfg.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = defaultResultTTL
	}
	return &GradeService{
		repo:         cfg.Repo,
		protocol:     cfg.Protocol,
		cache:        cfg.Cache,
		resultTTL:    cfg.ResultTTL,
		maxCodeBytes: cfg.MaxCodeBytes,
	}
}

// GradeInput describes one grading request.
type GradeInput struct {
	ModuleID   string
	WorkshopID string
	ApproachID string
	Code       string
}

// GradeOutput is the grade plus workshop presentation data.
type GradeOutput struct {
	*grading.GradeResult
	ElapsedMs      int64             `json:"elapsed_ms"`
	Visualizations []json.RawMessage `json:"visualizations,omitempty"`
	Cached         bool              `json:"cached,omitempty"`
}

// Grade resolves the workshop's grader and grades the submission. Results
// for identical submission/grader pairs are cached; cache faults degrade to
// a fresh run, never to a failed call.
func (s *GradeService) Grade(ctx context.Context, in GradeInput) (*GradeOutput, error) {
	if in.ModuleID == "" || in.WorkshopID == "" || in.Code == "" {
		return nil, errors.New(errors.RequiredFieldEmpty).
			WithMessage("moduleId, workshopId and code are required")
	}
	if len(in.Code) > s.maxCodeBytes {
		return nil, errors.New(errors.SubmissionTooLarge).
			WithDetail("max_bytes", s.maxCodeBytes)
	}

	graderSrc, ws, err := s.repo.GraderSource(in.ModuleID, in.WorkshopID, in.ApproachID)
	if err != nil {
		return nil, err
	}

	key := resultKey(in.Code, graderSrc)
	if cached := s.lookupResult(ctx, key); cached != nil {
		cached.Cached = true
		cached.Visualizations = ws.Visualizations
		return cached, nil
	}

	started := time.Now()
	result, err := s.protocol.Grade(ctx, in.Code, graderSrc)
	if err != nil {
		return nil, err
	}

	out := &GradeOutput{
		GradeResult:    result,
		ElapsedMs:      time.Since(started).Milliseconds(),
		Visualizations: ws.Visualizations,
	}
	s.storeResult(ctx, key, out)
	return out, nil
}

// ListModules returns the raw module catalog.
func (s *GradeService) ListModules(ctx context.Context) (json.RawMessage, error) {
	return s.repo.Index()
}

// GetModule returns one module file verbatim.
func (s *GradeService) GetModule(ctx context.Context, moduleID string) (json.RawMessage, error) {
	return s.repo.Raw(moduleID)
}

func resultKey(code, graderSrc string) string {
	h := sha256.New()
	h.Write([]byte(code))
	h.Write([]byte{0})
	h.Write([]byte(graderSrc))
	return resultKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (s *GradeService) lookupResult(ctx context.Context, key string) *GradeOutput {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn(ctx, "result cache get failed", zap.Error(err))
		return nil
	}
	if raw == "" {
		return nil
	}
	var out GradeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		logger.Warn(ctx, "result cache entry invalid", zap.Error(err))
		return nil
	}
	return &out
}

func (s *GradeService) storeResult(ctx context.Context, key string, out *GradeOutput) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.resultTTL); err != nil {
		logger.Warn(ctx, "result cache set failed", zap.Error(err))
	}
}
