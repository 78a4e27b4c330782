package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
)

// ===== TIMED MOCK-TEST TRANSITIONS =====

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID uint, req *SaveAnswerRequest) (*SaveAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var resp *SaveAnswerResponse
	err := s.locks.WithLock(attemptID, func() error {
		attempt, sequence, err := s.activeMockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}

		if !containsID(sequence, req.QuestionID) {
			return ErrUnknownQuestion
		}

		question, err := s.repo.Question().GetByID(ctx, req.QuestionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				s.logger.Error("Attempt references missing question", "attempt_id", attemptID, "question_id", req.QuestionID)
				return ErrAttemptCorrupted
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		answer := answerValue(req.Answer)
		isCorrect := answer != nil && gradeAnswer(*answer, question.CorrectAnswer)
		savedAt := s.now()

		err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			if err := s.mergeAnswerEntry(ctx, tx, attempt.ID, req.QuestionID, answer, isCorrect, false, req.TimeSpentSeconds); err != nil {
				return err
			}
			entries, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load answer entries: %w", err)
			}
			recomputeTallies(attempt, entries, len(sequence))
			return tx.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			return err
		}

		resp = &SaveAnswerResponse{
			SavedAt:          savedAt,
			RemainingSeconds: int(Remaining(attempt, s.now()).Seconds()),
			UnansweredCount:  attempt.UnansweredCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *attemptService) Autosave(ctx context.Context, attemptID uint, req *AutosaveRequest) (*AutosaveResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var resp *AutosaveResponse
	err := s.locks.WithLock(attemptID, func() error {
		attempt, sequence, err := s.activeMockAttempt(ctx, attemptID)
		if err != nil {
			return err
		}

		for _, answer := range req.Answers {
			if !containsID(sequence, answer.QuestionID) {
				return ErrUnknownQuestion
			}
		}

		questionIDs := make([]uint, 0, len(req.Answers))
		for _, answer := range req.Answers {
			questionIDs = append(questionIDs, answer.QuestionID)
		}
		byID, err := s.repo.Question().GetByIDs(ctx, questionIDs)
		if err != nil {
			return fmt.Errorf("failed to get questions: %w", err)
		}

		savedAt := s.now()

		err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			for _, item := range req.Answers {
				question, ok := byID[item.QuestionID]
				if !ok {
					s.logger.Error("Attempt references missing question", "attempt_id", attemptID, "question_id", item.QuestionID)
					return ErrAttemptCorrupted
				}
				answer := answerValue(item.Answer)
				isCorrect := answer != nil && gradeAnswer(*answer, question.CorrectAnswer)
				if err := s.mergeAnswerEntry(ctx, tx, attempt.ID, item.QuestionID, answer, isCorrect, false, item.TimeSpentSeconds); err != nil {
					return err
				}
			}

			// Navigation state is caller-authoritative: replace wholesale.
			if err := attempt.SetVisited(req.VisitedIDs); err != nil {
				return fmt.Errorf("failed to encode visited set: %w", err)
			}
			if err := attempt.SetMarked(req.MarkedIDs); err != nil {
				return fmt.Errorf("failed to encode marked set: %w", err)
			}

			entries, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load answer entries: %w", err)
			}
			recomputeTallies(attempt, entries, len(sequence))
			return tx.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			return err
		}

		resp = &AutosaveResponse{
			SavedAt:          savedAt,
			RemainingSeconds: int(Remaining(attempt, s.now()).Seconds()),
			UnansweredCount:  attempt.UnansweredCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *attemptService) ForceComplete(ctx context.Context, attemptID uint) (*ForceCompleteResponse, error) {
	var resp *ForceCompleteResponse
	err := s.locks.WithLock(attemptID, func() error {
		attempt, err := s.getAttempt(ctx, attemptID)
		if err != nil {
			return err
		}

		// Idempotent: a repeat call just returns the existing token.
		if attempt.Status == models.AttemptCompleted {
			resp = &ForceCompleteResponse{
				ReportToken: attempt.ReportToken,
				CompletedAt: *attempt.CompletedAt,
			}
			return nil
		}
		if attempt.Status == models.AttemptAbandoned {
			return ErrAttemptAbandoned
		}
		if attempt.Kind != models.AttemptKindMock {
			return ErrWrongAttemptKind
		}

		sequence, err := attempt.QuestionSequence()
		if err != nil {
			s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attemptID, "error", err)
			return ErrAttemptCorrupted
		}

		// On expiry the subject is assumed to have used the whole window;
		// an early client-initiated completion records the real elapsed time.
		now := s.now()
		totalTime := attempt.DurationSeconds
		if !Expired(attempt, now) {
			totalTime = int(Elapsed(attempt, now).Seconds())
		}

		err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			entries, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load answer entries: %w", err)
			}
			recomputeTallies(attempt, entries, len(sequence))
			s.finalize(attempt, totalTime)
			return tx.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			return err
		}

		s.publishCompleted(ctx, attempt, len(sequence))

		resp = &ForceCompleteResponse{
			ReportToken: attempt.ReportToken,
			CompletedAt: *attempt.CompletedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *attemptService) GetTimeRemaining(ctx context.Context, attemptID uint) (*TimeRemainingResponse, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Kind != models.AttemptKindMock {
		return nil, ErrWrongAttemptKind
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	remaining := Remaining(attempt, s.now())
	return &TimeRemainingResponse{
		RemainingSeconds: int(remaining.Seconds()),
		WarningSeconds:   int(ActiveWarning(remaining).Seconds()),
	}, nil
}

// MarkAbandoned sweeps long-idle in-progress attempts. No scheduler drives
// attempts forward; this is the optional periodic cleanup on top of the
// lazy expiry checks.
func (s *attemptService) MarkAbandoned(ctx context.Context, idleFor time.Duration, limit int) (int, error) {
	cutoff := s.now().Add(-idleFor)
	idle, err := s.repo.Attempt().GetIdleInProgress(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list idle attempts: %w", err)
	}

	swept := 0
	for _, candidate := range idle {
		attemptID := candidate.ID
		err := s.locks.WithLock(attemptID, func() error {
			attempt, err := s.getAttempt(ctx, attemptID)
			if err != nil {
				return err
			}
			if attempt.Status != models.AttemptInProgress {
				return nil
			}
			attempt.Status = models.AttemptAbandoned
			return s.repo.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			s.logger.Error("Failed to mark attempt abandoned", "attempt_id", attemptID, "error", err)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("Swept idle attempts", "count", swept)
	}
	return swept, nil
}

// activeMockAttempt loads the attempt and applies the shared timed-flow
// gates: mock kind, in-progress status, and an unexpired budget. The expiry
// check runs inside the caller's critical section so no late write can
// slip past the deadline.
func (s *attemptService) activeMockAttempt(ctx context.Context, attemptID uint) (*models.Attempt, []uint, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.Kind != models.AttemptKindMock {
		return nil, nil, ErrWrongAttemptKind
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, nil, ErrAttemptNotActive
	}
	if Expired(attempt, s.now()) {
		return nil, nil, ErrAttemptExpired
	}

	sequence, err := attempt.QuestionSequence()
	if err != nil {
		s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attemptID, "error", err)
		return nil, nil, ErrAttemptCorrupted
	}
	return attempt, sequence, nil
}
