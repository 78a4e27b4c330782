package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vectorprep/session-service/internal/events"
	"github.com/vectorprep/session-service/internal/locks"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
	"github.com/vectorprep/session-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	locks     *locks.KeyedMutex
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
	now       func() time.Time
}

func NewAttemptService(
	repo repositories.Repository,
	keyedLocks *locks.KeyedMutex,
	publisher events.EventPublisher,
	logger *slog.Logger,
	v *validator.Validator,
) AttemptService {
	return &attemptService{
		repo:      repo,
		locks:     keyedLocks,
		publisher: publisher,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

// ===== READ OPERATIONS =====

func (s *attemptService) GetCurrent(ctx context.Context, attemptID uint) (*CurrentQuestionResponse, error) {
	attempt, err := s.getAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.Answer().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer entries: %w", err)
	}

	sequence, err := attempt.QuestionSequence()
	if err != nil {
		s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attemptID, "error", err)
		return nil, ErrAttemptCorrupted
	}

	// Tallies are derived data; rebuild them from the entry map on every
	// read instead of trusting the stored counters.
	recomputeTallies(attempt, entries, len(sequence))

	resp := &CurrentQuestionResponse{
		Status: attempt.Status,
		Kind:   attempt.Kind,
		Progress: ProgressSummary{
			CurrentIndex:    attempt.CurrentIndex,
			TotalQuestions:  len(sequence),
			CorrectCount:    attempt.CorrectCount,
			IncorrectCount:  attempt.IncorrectCount,
			SkippedCount:    attempt.SkippedCount,
			UnansweredCount: attempt.UnansweredCount,
		},
	}

	switch attempt.Status {
	case models.AttemptCompleted:
		resp.ReportToken = attempt.ReportToken
		return resp, nil
	case models.AttemptAbandoned:
		return nil, ErrAttemptAbandoned
	}

	if attempt.Kind == models.AttemptKindMock {
		return s.buildMockCurrent(ctx, attempt, sequence, resp)
	}

	if attempt.CurrentIndex >= len(sequence) {
		s.logger.Error("Attempt index past sequence end without completion",
			"attempt_id", attemptID,
			"current_index", attempt.CurrentIndex,
			"sequence_len", len(sequence))
		return nil, ErrAttemptCorrupted
	}

	question, err := s.repo.Question().GetByID(ctx, sequence[attempt.CurrentIndex])
	if err != nil {
		if repositories.IsNotFoundError(err) {
			s.logger.Error("Attempt references missing question",
				"attempt_id", attemptID,
				"question_id", sequence[attempt.CurrentIndex])
			return nil, ErrAttemptCorrupted
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	client := question.ForClient()
	resp.Question = &client
	return resp, nil
}

func (s *attemptService) buildMockCurrent(ctx context.Context, attempt *models.Attempt, sequence []uint, resp *CurrentQuestionResponse) (*CurrentQuestionResponse, error) {
	byID, err := s.repo.Question().GetByIDs(ctx, sequence)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	questions := make([]models.ClientQuestion, 0, len(sequence))
	for _, id := range sequence {
		question, ok := byID[id]
		if !ok {
			s.logger.Error("Attempt references missing question", "attempt_id", attempt.ID, "question_id", id)
			return nil, ErrAttemptCorrupted
		}
		questions = append(questions, question.ForClient())
	}

	visited, err := attempt.VisitedSet()
	if err != nil {
		return nil, ErrAttemptCorrupted
	}
	marked, err := attempt.MarkedSet()
	if err != nil {
		return nil, ErrAttemptCorrupted
	}

	resp.Questions = questions
	resp.VisitedIDs = visited
	resp.MarkedIDs = marked
	resp.RemainingSeconds = int(Remaining(attempt, s.now()).Seconds())
	return resp, nil
}

// ===== DIAGNOSTIC TRANSITIONS =====

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	var resp *SubmitAnswerResponse
	err := s.locks.WithLock(attemptID, func() error {
		attempt, err := s.getAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Kind != models.AttemptKindDiagnostic {
			return ErrWrongAttemptKind
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		sequence, err := attempt.QuestionSequence()
		if err != nil {
			s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attemptID, "error", err)
			return ErrAttemptCorrupted
		}
		if attempt.CurrentIndex >= len(sequence) {
			s.logger.Error("Attempt index past sequence end without completion", "attempt_id", attemptID)
			return ErrAttemptCorrupted
		}

		// The client must be answering the question the server considers
		// current; anything else is a stale or replayed payload.
		currentID := sequence[attempt.CurrentIndex]
		if currentID != req.QuestionID {
			return ErrQuestionMismatch
		}

		question, err := s.repo.Question().GetByID(ctx, currentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				s.logger.Error("Attempt references missing question", "attempt_id", attemptID, "question_id", currentID)
				return ErrAttemptCorrupted
			}
			return fmt.Errorf("failed to get question: %w", err)
		}

		isCorrect := gradeAnswer(req.Answer, question.CorrectAnswer)
		answer := req.Answer
		completed := false

		err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			if err := s.mergeAnswerEntry(ctx, tx, attempt.ID, currentID, &answer, isCorrect, false, req.TimeSeconds); err != nil {
				return err
			}

			attempt.CurrentIndex++
			completed = attempt.CurrentIndex >= len(sequence)

			entries, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load answer entries: %w", err)
			}
			recomputeTallies(attempt, entries, len(sequence))

			if completed {
				s.finalize(attempt, sumTimeSpent(entries))
			}
			return tx.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			return err
		}

		if completed {
			s.publishCompleted(ctx, attempt, len(sequence))
		}

		resp = &SubmitAnswerResponse{
			IsCorrect:     isCorrect,
			CorrectAnswer: question.CorrectAnswer,
			Solution:      question.Solution,
			NextIndex:     attempt.CurrentIndex,
			Completed:     completed,
		}
		if completed {
			resp.ReportToken = attempt.ReportToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *attemptService) Skip(ctx context.Context, attemptID uint) (*SkipResponse, error) {
	var resp *SkipResponse
	err := s.locks.WithLock(attemptID, func() error {
		attempt, err := s.getAttempt(ctx, attemptID)
		if err != nil {
			return err
		}
		if attempt.Kind != models.AttemptKindDiagnostic {
			return ErrWrongAttemptKind
		}
		if attempt.Status != models.AttemptInProgress {
			return ErrAttemptNotActive
		}

		sequence, err := attempt.QuestionSequence()
		if err != nil {
			s.logger.Error("Attempt has undecodable question sequence", "attempt_id", attemptID, "error", err)
			return ErrAttemptCorrupted
		}
		if attempt.CurrentIndex >= len(sequence) {
			s.logger.Error("Attempt index past sequence end without completion", "attempt_id", attemptID)
			return ErrAttemptCorrupted
		}

		currentID := sequence[attempt.CurrentIndex]
		completed := false

		err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
			if err := s.mergeAnswerEntry(ctx, tx, attempt.ID, currentID, nil, false, true, 0); err != nil {
				return err
			}

			attempt.CurrentIndex++
			completed = attempt.CurrentIndex >= len(sequence)

			entries, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
			if err != nil {
				return fmt.Errorf("failed to load answer entries: %w", err)
			}
			recomputeTallies(attempt, entries, len(sequence))

			if completed {
				s.finalize(attempt, sumTimeSpent(entries))
			}
			return tx.Attempt().Update(ctx, attempt)
		})
		if err != nil {
			return err
		}

		if completed {
			s.publishCompleted(ctx, attempt, len(sequence))
		}

		resp = &SkipResponse{
			NextIndex: attempt.CurrentIndex,
			Completed: completed,
		}
		if completed {
			resp.ReportToken = attempt.ReportToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
