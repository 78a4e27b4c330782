package services

import (
	"context"
	"time"

	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/selector"
)

// ===== SESSION BOOTSTRAP =====

type StartDiagnosticRequest struct {
	LeadID uint           `json:"lead_id" validate:"required"`
	Quota  selector.Quota `json:"quota" validate:"required"`
}

type StartMockRequest struct {
	LeadID     uint `json:"lead_id" validate:"required"`
	MockTestID uint `json:"mock_test_id" validate:"required"`
}

type StartSessionResponse struct {
	AttemptID      uint               `json:"attempt_id"`
	Kind           models.AttemptKind `json:"kind"`
	TotalQuestions int                `json:"total_questions"`
	// Shortfall is non-zero when the item store could not fully meet the
	// requested quota; the session still starts with what was available.
	Shortfall       int       `json:"shortfall,omitempty"`
	DurationSeconds int       `json:"duration_seconds,omitempty"`
	StartedAt       time.Time `json:"started_at"`
}

type SessionService interface {
	StartDiagnostic(ctx context.Context, req *StartDiagnosticRequest) (*StartSessionResponse, error)
	StartMock(ctx context.Context, req *StartMockRequest) (*StartSessionResponse, error)
}

// ===== ATTEMPT TRANSITIONS =====

type SubmitAnswerRequest struct {
	QuestionID  uint   `json:"question_id" validate:"required"`
	Answer      string `json:"answer" validate:"required"`
	TimeSeconds int    `json:"time_seconds" validate:"min=0"`
}

type SubmitAnswerResponse struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer string `json:"correct_answer"`
	Solution      string `json:"solution"`
	NextIndex     int    `json:"next_index"`
	Completed     bool   `json:"completed"`
	ReportToken   string `json:"report_token,omitempty"`
}

type SkipResponse struct {
	NextIndex   int    `json:"next_index"`
	Completed   bool   `json:"completed"`
	ReportToken string `json:"report_token,omitempty"`
}

type ProgressSummary struct {
	CurrentIndex    int `json:"current_index"`
	TotalQuestions  int `json:"total_questions"`
	CorrectCount    int `json:"correct_count"`
	IncorrectCount  int `json:"incorrect_count"`
	SkippedCount    int `json:"skipped_count"`
	UnansweredCount int `json:"unanswered_count"`
}

type CurrentQuestionResponse struct {
	Status   models.AttemptStatus   `json:"status"`
	Kind     models.AttemptKind     `json:"kind"`
	Progress ProgressSummary        `json:"progress"`
	Question *models.ClientQuestion `json:"question,omitempty"`
	// Mock attempts return the full client-safe set so a reloaded client
	// can rebuild its palette, plus its own navigation state.
	Questions        []models.ClientQuestion `json:"questions,omitempty"`
	VisitedIDs       []uint                  `json:"visited_ids,omitempty"`
	MarkedIDs        []uint                  `json:"marked_ids,omitempty"`
	RemainingSeconds int                     `json:"remaining_seconds,omitempty"`
	ReportToken      string                  `json:"report_token,omitempty"`
}

type SaveAnswerRequest struct {
	QuestionID       uint   `json:"question_id" validate:"required"`
	Answer           string `json:"answer"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0"`
}

type SaveAnswerResponse struct {
	SavedAt          time.Time `json:"saved_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
	UnansweredCount  int       `json:"unanswered_count"`
}

type AutosaveAnswer struct {
	QuestionID       uint   `json:"question_id" validate:"required"`
	Answer           string `json:"answer"`
	TimeSpentSeconds int    `json:"time_spent_seconds" validate:"min=0"`
}

type AutosaveRequest struct {
	Answers    []AutosaveAnswer `json:"answers" validate:"dive"`
	VisitedIDs []uint           `json:"visited_ids"`
	MarkedIDs  []uint           `json:"marked_ids"`
}

type AutosaveResponse struct {
	SavedAt          time.Time `json:"saved_at"`
	RemainingSeconds int       `json:"remaining_seconds"`
	UnansweredCount  int       `json:"unanswered_count"`
}

type ForceCompleteResponse struct {
	ReportToken string    `json:"report_token"`
	CompletedAt time.Time `json:"completed_at"`
}

type TimeRemainingResponse struct {
	RemainingSeconds int `json:"remaining_seconds"`
	// WarningSeconds is the tightest informational threshold crossed
	// (e.g. 1800, 600, 300) or 0. It never gates anything.
	WarningSeconds int `json:"warning_seconds,omitempty"`
}

type AttemptService interface {
	GetCurrent(ctx context.Context, attemptID uint) (*CurrentQuestionResponse, error)
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest) (*SubmitAnswerResponse, error)
	Skip(ctx context.Context, attemptID uint) (*SkipResponse, error)
	SaveAnswer(ctx context.Context, attemptID uint, req *SaveAnswerRequest) (*SaveAnswerResponse, error)
	Autosave(ctx context.Context, attemptID uint, req *AutosaveRequest) (*AutosaveResponse, error)
	ForceComplete(ctx context.Context, attemptID uint) (*ForceCompleteResponse, error)
	GetTimeRemaining(ctx context.Context, attemptID uint) (*TimeRemainingResponse, error)
	// MarkAbandoned sweeps in-progress attempts idle for longer than
	// idleFor into the abandoned state. Returns how many were swept.
	MarkAbandoned(ctx context.Context, idleFor time.Duration, limit int) (int, error)
}

// ===== REPORTS =====

type QuestionOutcome struct {
	QuestionID    uint                   `json:"question_id"`
	Subject       models.Subject         `json:"subject"`
	Difficulty    models.DifficultyLevel `json:"difficulty"`
	Concept       string                 `json:"concept"`
	Answer        *string                `json:"answer"`
	CorrectAnswer string                 `json:"correct_answer"`
	Solution      string                 `json:"solution"`
	IsCorrect     bool                   `json:"is_correct"`
	IsSkipped     bool                   `json:"is_skipped"`
	TimeSpent     int                    `json:"time_spent"`
}

type ReportResponse struct {
	AttemptID      uint               `json:"attempt_id"`
	Kind           models.AttemptKind `json:"kind"`
	CompletedAt    time.Time          `json:"completed_at"`
	TotalQuestions int                `json:"total_questions"`
	CorrectCount   int                `json:"correct_count"`
	IncorrectCount int                `json:"incorrect_count"`
	SkippedCount   int                `json:"skipped_count"`
	TotalTimeSpent int                `json:"total_time_spent"`
	Outcomes       []QuestionOutcome  `json:"outcomes"`
}

type ReportService interface {
	GetReport(ctx context.Context, token string) (*ReportResponse, error)
}

// ServiceManager bundles the engine's services for handler wiring.
type ServiceManager interface {
	Session() SessionService
	Attempt() AttemptService
	Report() ReportService
}
