package events

import (
	"time"

	"github.com/vectorprep/session-service/internal/models"
)

const (
	// TopicAttemptCompleted carries completed-attempt notifications for the
	// external report generator.
	TopicAttemptCompleted = "assessment.attempt.completed"

	EventAttemptCompleted = "attempt.completed"

	eventSource  = "session-service"
	eventVersion = "1.0"
)

// Event is the envelope published to Kafka.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// AttemptCompletedEvent signals that an attempt reached the completed state
// and its report can be generated. The report token is included because it
// is the only credential the report pipeline needs.
type AttemptCompletedEvent struct {
	AttemptID      uint               `json:"attempt_id"`
	LeadID         uint               `json:"lead_id"`
	Kind           models.AttemptKind `json:"kind"`
	ReportToken    string             `json:"report_token"`
	TotalQuestions int                `json:"total_questions"`
	CorrectCount   int                `json:"correct_count"`
	IncorrectCount int                `json:"incorrect_count"`
	SkippedCount   int                `json:"skipped_count"`
	TotalTimeSpent int                `json:"total_time_spent"`
	CompletedAt    time.Time          `json:"completed_at"`
}
