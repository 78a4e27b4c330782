package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vectorprep/session-service/internal/cache"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
)

const reportCacheTTL = time.Hour

type reportService struct {
	repo   repositories.Repository
	cache  cache.CacheService
	logger *slog.Logger
}

func NewReportService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger) ReportService {
	return &reportService{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
	}
}

// GetReport resolves a finished attempt by its report token. The token is
// the sole credential; there is no secondary lookup by attempt ID.
func (s *reportService) GetReport(ctx context.Context, token string) (*ReportResponse, error) {
	if token == "" {
		return nil, ErrReportNotFound
	}

	cacheKey := "report:" + token
	if s.cache != nil {
		var cached ReportResponse
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil && cached.AttemptID != 0 {
			return &cached, nil
		}
	}

	attempt, err := s.repo.Attempt().GetByReportToken(ctx, token)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get attempt by token: %w", err)
	}
	if attempt.Status != models.AttemptCompleted {
		return nil, ErrReportNotReady
	}

	sequence, err := attempt.QuestionSequence()
	if err != nil {
		s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attempt.ID, "error", err)
		return nil, ErrAttemptCorrupted
	}

	byID, err := s.repo.Question().GetByIDs(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	entryByQuestion := make(map[uint]*models.AnswerEntry, len(attempt.Answers))
	for i := range attempt.Answers {
		entry := &attempt.Answers[i]
		entryByQuestion[entry.QuestionID] = entry
	}

	recomputeTallies(attempt, entriesOf(attempt), len(sequence))

	outcomes := make([]QuestionOutcome, 0, len(sequence))
	for _, id := range sequence {
		question, ok := byID[id]
		if !ok {
			s.logger.Error("Attempt references missing question", "attempt_id", attempt.ID, "question_id", id)
			return nil, ErrAttemptCorrupted
		}
		outcome := QuestionOutcome{
			QuestionID:    id,
			Subject:       question.Subject,
			Difficulty:    question.Difficulty,
			Concept:       question.Concept,
			CorrectAnswer: question.CorrectAnswer,
			Solution:      question.Solution,
		}
		if entry := entryByQuestion[id]; entry != nil {
			outcome.Answer = entry.Answer
			outcome.IsCorrect = entry.IsCorrect
			outcome.IsSkipped = entry.IsSkipped
			outcome.TimeSpent = entry.TimeSpent
		}
		outcomes = append(outcomes, outcome)
	}

	resp := &ReportResponse{
		AttemptID:      attempt.ID,
		Kind:           attempt.Kind,
		CompletedAt:    *attempt.CompletedAt,
		TotalQuestions: len(sequence),
		CorrectCount:   attempt.CorrectCount,
		IncorrectCount: attempt.IncorrectCount,
		SkippedCount:   attempt.SkippedCount,
		TotalTimeSpent: attempt.TotalTimeSpent,
		Outcomes:       outcomes,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, resp, reportCacheTTL); err != nil {
			s.logger.Warn("Failed to cache report", "attempt_id", attempt.ID, "error", err)
		}
	}
	return resp, nil
}

func entriesOf(attempt *models.Attempt) []*models.AnswerEntry {
	entries := make([]*models.AnswerEntry, 0, len(attempt.Answers))
	for i := range attempt.Answers {
		entries = append(entries, &attempt.Answers[i])
	}
	return entries
}
