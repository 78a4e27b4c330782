package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/vectorprep/session-service/internal/cache"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
	"github.com/vectorprep/session-service/internal/selector"
	"github.com/vectorprep/session-service/internal/validator"
)

const (
	activeCatalogCacheKey = "catalog:active"
	activeCatalogCacheTTL = 5 * time.Minute
)

type sessionService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewSessionService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, v *validator.Validator) SessionService {
	return &sessionService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

func (s *sessionService) StartDiagnostic(ctx context.Context, req *StartDiagnosticRequest) (*StartSessionResponse, error) {
	s.logger.Info("Starting diagnostic session", "lead_id", req.LeadID, "quota_total", req.Quota.Total)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := s.repo.Lead().GetByID(ctx, req.LeadID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	items, err := s.activeCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load item catalog: %w", err)
	}

	result, err := selector.Select(items, req.Quota, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if len(result.QuestionIDs) == 0 {
		return nil, ErrNoQuestionsAvailable
	}
	if result.Short() {
		s.logger.Warn("Selection fell short of quota",
			"requested", result.Requested,
			"selected", len(result.QuestionIDs),
			"shortfall", result.Shortfall)
	}

	token, err := newReportToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report token: %w", err)
	}

	attempt := &models.Attempt{
		LeadID:          req.LeadID,
		Kind:            models.AttemptKindDiagnostic,
		Status:          models.AttemptInProgress,
		StartedAt:       s.now(),
		ReportToken:     token,
		UnansweredCount: len(result.QuestionIDs),
	}
	if err := attempt.SetQuestionSequence(result.QuestionIDs); err != nil {
		return nil, fmt.Errorf("failed to encode question sequence: %w", err)
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Diagnostic session started",
		"attempt_id", attempt.ID,
		"lead_id", req.LeadID,
		"questions", len(result.QuestionIDs))

	return &StartSessionResponse{
		AttemptID:      attempt.ID,
		Kind:           models.AttemptKindDiagnostic,
		TotalQuestions: len(result.QuestionIDs),
		Shortfall:      result.Shortfall,
		StartedAt:      attempt.StartedAt,
	}, nil
}

func (s *sessionService) StartMock(ctx context.Context, req *StartMockRequest) (*StartSessionResponse, error) {
	s.logger.Info("Starting mock test session", "lead_id", req.LeadID, "mock_test_id", req.MockTestID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if _, err := s.repo.Lead().GetByID(ctx, req.LeadID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}

	test, err := s.repo.MockTest().GetByID(ctx, req.MockTestID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMockTestNotFound
		}
		return nil, fmt.Errorf("failed to get mock test: %w", err)
	}
	if !test.IsActive {
		return nil, ErrMockTestNotFound
	}

	questionIDs, err := test.AllQuestionIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to decode test partitions: %w", err)
	}
	if len(questionIDs) == 0 {
		return nil, ErrNoQuestionsAvailable
	}

	token, err := newReportToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report token: %w", err)
	}

	attempt := &models.Attempt{
		LeadID:          req.LeadID,
		Kind:            models.AttemptKindMock,
		MockTestID:      &test.ID,
		Status:          models.AttemptInProgress,
		StartedAt:       s.now(),
		DurationSeconds: test.DurationSeconds,
		ReportToken:     token,
		UnansweredCount: len(questionIDs),
	}
	if err := attempt.SetQuestionSequence(questionIDs); err != nil {
		return nil, fmt.Errorf("failed to encode question sequence: %w", err)
	}
	if err := attempt.SetVisited(nil); err != nil {
		return nil, fmt.Errorf("failed to encode visited set: %w", err)
	}
	if err := attempt.SetMarked(nil); err != nil {
		return nil, fmt.Errorf("failed to encode marked set: %w", err)
	}

	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.logger.Info("Mock test session started",
		"attempt_id", attempt.ID,
		"mock_test_id", test.ID,
		"duration_seconds", test.DurationSeconds)

	return &StartSessionResponse{
		AttemptID:       attempt.ID,
		Kind:            models.AttemptKindMock,
		TotalQuestions:  len(questionIDs),
		DurationSeconds: test.DurationSeconds,
		StartedAt:       attempt.StartedAt,
	}, nil
}

// activeCatalog loads the selectable item pool, preferring the redis copy.
// The cache is purely an optimization; failures fall back to postgres.
func (s *sessionService) activeCatalog(ctx context.Context) ([]models.Question, error) {
	var items []models.Question
	if s.cache != nil {
		if err := s.cache.Get(ctx, activeCatalogCacheKey, &items); err == nil && len(items) > 0 {
			return items, nil
		}
	}

	items, err := s.repo.Question().ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && len(items) > 0 {
		if err := s.cache.Set(ctx, activeCatalogCacheKey, items, activeCatalogCacheTTL); err != nil {
			s.logger.Warn("Failed to cache item catalog", "error", err)
		}
	}
	return items, nil
}

// newReportToken returns a 256-bit hex token. The token is the sole
// credential for fetching a finished report, so it comes straight from the
// CSPRNG rather than any sequential source.
func newReportToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
