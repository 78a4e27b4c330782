package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/vectorprep/session-service/internal/events"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
)

// ===== SHARED HELPERS =====

func (s *attemptService) getAttempt(ctx context.Context, attemptID uint) (*models.Attempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// mergeAnswerEntry upserts the single entry for (attempt, question). Time
// always accumulates; the answer value, correctness and skip flag always
// reflect the latest submission. This is what makes autosave replay safe:
// a repeated batch adds its disjoint time delta but cannot double-create
// an entry or lose previously recorded time.
func (s *attemptService) mergeAnswerEntry(ctx context.Context, repo repositories.Repository, attemptID, questionID uint, answer *string, isCorrect, skipped bool, timeDelta int) error {
	entry, err := repo.Answer().GetByAttemptAndQuestion(ctx, attemptID, questionID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get answer entry: %w", err)
		}
		entry = &models.AnswerEntry{
			AttemptID:  attemptID,
			QuestionID: questionID,
		}
	}

	entry.TimeSpent += timeDelta
	entry.Answer = answer
	entry.IsCorrect = isCorrect
	entry.IsSkipped = skipped
	entry.LastSaved = s.now()

	if entry.ID == 0 {
		if err := repo.Answer().Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create answer entry: %w", err)
		}
		return nil
	}
	if err := repo.Answer().Update(ctx, entry); err != nil {
		return fmt.Errorf("failed to update answer entry: %w", err)
	}
	return nil
}

// recomputeTallies rebuilds the attempt's derived counters from the answer
// entries. The entry map is the source of truth; the counters are a cache
// rebuilt on every write so they can never drift from a partial update.
func recomputeTallies(attempt *models.Attempt, entries []*models.AnswerEntry, totalQuestions int) {
	correct, incorrect, skipped, answered, totalTime := 0, 0, 0, 0, 0
	for _, entry := range entries {
		totalTime += entry.TimeSpent
		switch {
		case entry.IsSkipped:
			skipped++
		case entry.HasAnswer():
			answered++
			if entry.IsCorrect {
				correct++
			} else {
				incorrect++
			}
		}
	}

	attempt.CorrectCount = correct
	attempt.IncorrectCount = incorrect
	attempt.SkippedCount = skipped
	attempt.UnansweredCount = totalQuestions - answered
	if attempt.Status == models.AttemptInProgress {
		attempt.TotalTimeSpent = totalTime
	}
}

func sumTimeSpent(entries []*models.AnswerEntry) int {
	total := 0
	for _, entry := range entries {
		total += entry.TimeSpent
	}
	return total
}

// finalize moves the attempt to its terminal completed state. CompletedAt
// is stamped exactly once here.
func (s *attemptService) finalize(attempt *models.Attempt, totalTimeSpent int) {
	now := s.now()
	attempt.Status = models.AttemptCompleted
	attempt.CompletedAt = &now
	attempt.TotalTimeSpent = totalTimeSpent
}

func (s *attemptService) publishCompleted(ctx context.Context, attempt *models.Attempt, totalQuestions int) {
	if s.publisher == nil {
		return
	}
	event := &events.AttemptCompletedEvent{
		AttemptID:      attempt.ID,
		LeadID:         attempt.LeadID,
		Kind:           attempt.Kind,
		ReportToken:    attempt.ReportToken,
		TotalQuestions: totalQuestions,
		CorrectCount:   attempt.CorrectCount,
		IncorrectCount: attempt.IncorrectCount,
		SkippedCount:   attempt.SkippedCount,
		TotalTimeSpent: attempt.TotalTimeSpent,
		CompletedAt:    *attempt.CompletedAt,
	}
	if err := s.publisher.PublishAttemptCompleted(ctx, event); err != nil {
		// The attempt is already durably completed; a failed publish must
		// not fail the transition.
		s.logger.Error("Failed to publish attempt completed event", "attempt_id", attempt.ID, "error", err)
	}
}

// gradeAnswer compares the submitted value against the canonical answer,
// ignoring case and surrounding whitespace.
func gradeAnswer(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

// answerValue maps an empty submission to nil so a cleared answer counts
// as unanswered again.
func answerValue(answer string) *string {
	if strings.TrimSpace(answer) == "" {
		return nil
	}
	return &answer
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
