package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorprep/session-service/internal/events"
	"github.com/vectorprep/session-service/internal/locks"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAttemptServiceForTest(repo *fakeRepository) (*attemptService, *events.MockEventPublisher) {
	logger := testLogger()
	publisher := events.NewMockEventPublisher(logger)
	svc := NewAttemptService(repo, locks.NewKeyedMutex(time.Second), publisher, logger, validator.New()).(*attemptService)
	return svc, publisher
}

func seedQuestion(repo *fakeRepository, id uint, concept, correctAnswer string) {
	repo.addQuestion(models.Question{
		ID:            id,
		Text:          fmt.Sprintf("question %d", id),
		Subject:       models.SubjectPhysics,
		Difficulty:    models.DifficultyMedium,
		Concept:       concept,
		CorrectAnswer: correctAnswer,
		Solution:      "because",
		IsActive:      true,
	})
}

func seedDiagnostic(t *testing.T, repo *fakeRepository, questionIDs []uint) *models.Attempt {
	t.Helper()
	for _, id := range questionIDs {
		seedQuestion(repo, id, fmt.Sprintf("concept-%d", id), "A")
	}
	attempt := &models.Attempt{
		LeadID:          1,
		Kind:            models.AttemptKindDiagnostic,
		Status:          models.AttemptInProgress,
		StartedAt:       time.Now(),
		ReportToken:     fmt.Sprintf("token-%d", time.Now().UnixNano()),
		UnansweredCount: len(questionIDs),
	}
	require.NoError(t, attempt.SetQuestionSequence(questionIDs))
	require.NoError(t, repo.Attempt().Create(context.Background(), attempt))
	return attempt
}

func TestSubmitAnswer_AdvancesThroughSequence(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20, 30})
	ctx := context.Background()

	resp, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
		QuestionID:  10,
		Answer:      "a", // grading ignores case
		TimeSeconds: 30,
	})
	require.NoError(t, err)

	assert.True(t, resp.IsCorrect)
	assert.Equal(t, "A", resp.CorrectAnswer)
	assert.Equal(t, "because", resp.Solution)
	assert.Equal(t, 1, resp.NextIndex)
	assert.False(t, resp.Completed)
	assert.Empty(t, resp.ReportToken)

	stored := repo.storedAttempt(attempt.ID)
	assert.Equal(t, 1, stored.CurrentIndex)
	assert.Equal(t, 1, stored.CorrectCount)
	assert.Equal(t, 2, stored.UnansweredCount)
}

func TestSubmitAnswer_RejectsNonCurrentQuestion(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20, 30})
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{
		QuestionID:  20,
		Answer:      "A",
		TimeSeconds: 5,
	})
	assert.ErrorIs(t, err, ErrQuestionMismatch)
	assert.True(t, IsInvalidState(err))

	// A rejected submission must not move the attempt.
	stored := repo.storedAttempt(attempt.ID)
	assert.Equal(t, 0, stored.CurrentIndex)
	assert.Empty(t, repo.attemptEntries(attempt.ID))
}

func TestSkip_RecordsSkippedEntry(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20})
	ctx := context.Background()

	resp, err := svc.Skip(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.NextIndex)
	assert.False(t, resp.Completed)

	entries := repo.attemptEntries(attempt.ID)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].IsSkipped)
	assert.Nil(t, entries[0].Answer)

	stored := repo.storedAttempt(attempt.ID)
	assert.Equal(t, 1, stored.SkippedCount)
}

func TestDiagnostic_MonotonicIndex(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20, 30, 40})
	ctx := context.Background()

	sequence := []uint{10, 20, 30}
	accepted := 0
	for i, id := range sequence {
		if i%2 == 0 {
			_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: id, Answer: "A", TimeSeconds: 1})
			require.NoError(t, err)
		} else {
			_, err := svc.Skip(ctx, attempt.ID)
			require.NoError(t, err)
		}
		accepted++
		assert.Equal(t, accepted, repo.storedAttempt(attempt.ID).CurrentIndex)
	}
}

func TestDiagnostic_CompletesOnLastTransition(t *testing.T) {
	repo := newFakeRepository()
	svc, publisher := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20, 30})
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 10, Answer: "A", TimeSeconds: 10})
	require.NoError(t, err)
	_, err = svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 20, Answer: "wrong", TimeSeconds: 20})
	require.NoError(t, err)

	resp, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 30, Answer: "A", TimeSeconds: 30})
	require.NoError(t, err)
	assert.True(t, resp.Completed)
	assert.Equal(t, attempt.ReportToken, resp.ReportToken)

	stored := repo.storedAttempt(attempt.ID)
	assert.Equal(t, models.AttemptCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, 2, stored.CorrectCount)
	assert.Equal(t, 1, stored.IncorrectCount)
	assert.Equal(t, 0, stored.UnansweredCount)
	assert.Equal(t, 60, stored.TotalTimeSpent)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventAttemptCompleted, published[0].Type)
}

func TestSubmitAnswer_AfterCompletionIsRejected(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10})
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 10, Answer: "A", TimeSeconds: 5})
	require.NoError(t, err)

	_, err = svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 10, Answer: "A", TimeSeconds: 5})
	assert.ErrorIs(t, err, ErrAttemptNotActive)

	_, err = svc.Skip(ctx, attempt.ID)
	assert.ErrorIs(t, err, ErrAttemptNotActive)
}

func TestSubmitAnswer_WrongKind(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedMockAttempt(t, repo, []uint{10, 20}, 600, time.Now())
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 10, Answer: "A", TimeSeconds: 5})
	assert.ErrorIs(t, err, ErrWrongAttemptKind)
}

func TestSubmitAnswer_UnknownAttempt(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)

	_, err := svc.SubmitAnswer(context.Background(), 999, &SubmitAnswerRequest{QuestionID: 1, Answer: "A", TimeSeconds: 1})
	assert.ErrorIs(t, err, ErrAttemptNotFound)
	assert.True(t, IsNotFound(err))
}

func TestGetCurrent_Diagnostic(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10, 20})
	ctx := context.Background()

	resp, err := svc.GetCurrent(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptInProgress, resp.Status)
	assert.Equal(t, models.AttemptKindDiagnostic, resp.Kind)
	require.NotNil(t, resp.Question)
	assert.Equal(t, uint(10), resp.Question.ID)
	assert.Equal(t, 0, resp.Progress.CurrentIndex)
	assert.Equal(t, 2, resp.Progress.TotalQuestions)
	assert.Empty(t, resp.Questions)
	assert.Empty(t, resp.ReportToken)
}

func TestGetCurrent_CompletedReturnsToken(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10})
	ctx := context.Background()

	_, err := svc.SubmitAnswer(ctx, attempt.ID, &SubmitAnswerRequest{QuestionID: 10, Answer: "A", TimeSeconds: 5})
	require.NoError(t, err)

	resp, err := svc.GetCurrent(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCompleted, resp.Status)
	assert.Equal(t, attempt.ReportToken, resp.ReportToken)
	assert.Nil(t, resp.Question)
}

func TestGetCurrent_Abandoned(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	attempt := seedDiagnostic(t, repo, []uint{10})
	ctx := context.Background()

	stored := repo.storedAttempt(attempt.ID)
	stored.Status = models.AttemptAbandoned
	require.NoError(t, repo.Attempt().Update(ctx, stored))

	_, err := svc.GetCurrent(ctx, attempt.ID)
	assert.ErrorIs(t, err, ErrAttemptAbandoned)
}

func TestMarkAbandoned_SweepsIdleAttempts(t *testing.T) {
	repo := newFakeRepository()
	svc, _ := newAttemptServiceForTest(repo)
	ctx := context.Background()

	idle := seedDiagnostic(t, repo, []uint{10})
	fresh := seedDiagnostic(t, repo, []uint{20})

	// Backdate only the idle attempt.
	stored := repo.storedAttempt(idle.ID)
	stored.UpdatedAt = time.Now().Add(-48 * time.Hour)
	repo.mu.Lock()
	repo.attempts[idle.ID] = stored
	repo.mu.Unlock()

	swept, err := svc.MarkAbandoned(ctx, 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	assert.Equal(t, models.AttemptAbandoned, repo.storedAttempt(idle.ID).Status)
	assert.Equal(t, models.AttemptInProgress, repo.storedAttempt(fresh.ID).Status)
}
