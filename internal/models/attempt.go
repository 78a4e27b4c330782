package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

type AttemptKind string

const (
	AttemptKindDiagnostic AttemptKind = "diagnostic"
	AttemptKindMock       AttemptKind = "mock"
)

// Attempt is the durable state of one assessment session. The question
// sequence is fixed at creation; everything else mutates only through the
// attempt service transitions until the status turns terminal.
type Attempt struct {
	ID     uint        `json:"id" gorm:"primaryKey"`
	LeadID uint        `json:"lead_id" gorm:"not null;index"`
	Kind   AttemptKind `json:"kind" gorm:"not null;size:20;index"`

	// Mock attempts reference their test definition; diagnostic attempts
	// carry a selector-built sequence instead.
	MockTestID *uint `json:"mock_test_id" gorm:"index"`

	// Ordered question IDs, JSON-encoded []uint. Immutable after create.
	QuestionIDs  datatypes.JSON `json:"question_ids" gorm:"type:jsonb;not null"`
	CurrentIndex int            `json:"current_index" gorm:"default:0"`

	Status AttemptStatus `json:"status" gorm:"default:in_progress;index"`

	// Derived tallies, rebuilt from answer entries on every write.
	CorrectCount    int `json:"correct_count" gorm:"default:0"`
	IncorrectCount  int `json:"incorrect_count" gorm:"default:0"`
	SkippedCount    int `json:"skipped_count" gorm:"default:0"`
	UnansweredCount int `json:"unanswered_count" gorm:"default:0"`
	TotalTimeSpent  int `json:"total_time_spent" gorm:"default:0"` // seconds

	// Timing
	StartedAt       time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt     *time.Time `json:"completed_at"`
	DurationSeconds int        `json:"duration_seconds" gorm:"default:0"` // 0 for untimed diagnostics

	// Mock-test navigation state, caller-authoritative JSON []uint sets.
	VisitedIDs datatypes.JSON `json:"visited_ids" gorm:"type:jsonb"`
	MarkedIDs  datatypes.JSON `json:"marked_ids" gorm:"type:jsonb"`

	// Sole credential for fetching the finished report.
	ReportToken string `json:"-" gorm:"uniqueIndex;not null;size:64"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Lead     Lead          `json:"-" gorm:"foreignKey:LeadID"`
	MockTest *MockTest     `json:"-" gorm:"foreignKey:MockTestID"`
	Answers  []AnswerEntry `json:"answers,omitempty" gorm:"foreignKey:AttemptID"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) IsTerminal() bool {
	return a.Status == AttemptCompleted || a.Status == AttemptAbandoned
}

// QuestionSequence decodes the fixed question order.
func (a *Attempt) QuestionSequence() ([]uint, error) {
	return decodeIDList(a.QuestionIDs)
}

func (a *Attempt) SetQuestionSequence(ids []uint) error {
	raw, err := encodeIDList(ids)
	if err != nil {
		return err
	}
	a.QuestionIDs = raw
	return nil
}

func (a *Attempt) VisitedSet() ([]uint, error) {
	return decodeIDList(a.VisitedIDs)
}

func (a *Attempt) SetVisited(ids []uint) error {
	raw, err := encodeIDList(ids)
	if err != nil {
		return err
	}
	a.VisitedIDs = raw
	return nil
}

func (a *Attempt) MarkedSet() ([]uint, error) {
	return decodeIDList(a.MarkedIDs)
}

func (a *Attempt) SetMarked(ids []uint) error {
	raw, err := encodeIDList(ids)
	if err != nil {
		return err
	}
	a.MarkedIDs = raw
	return nil
}

func encodeIDList(ids []uint) (datatypes.JSON, error) {
	if ids == nil {
		ids = []uint{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeIDList(raw datatypes.JSON) ([]uint, error) {
	if len(raw) == 0 {
		return []uint{}, nil
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// AnswerEntry is the single record for one question within one attempt.
// The (attempt_id, question_id) pair is unique; re-submission merges time
// additively and replaces the answer value.
type AnswerEntry struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;index;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`

	Answer    *string `json:"answer" gorm:"size:500"` // nil when skipped or unanswered
	IsCorrect bool    `json:"is_correct" gorm:"default:false"`
	IsSkipped bool    `json:"is_skipped" gorm:"default:false"`

	TimeSpent int       `json:"time_spent" gorm:"default:0"` // seconds, accumulates
	LastSaved time.Time `json:"last_saved"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnswerEntry) TableName() string {
	return "answer_entries"
}

// HasAnswer reports whether the entry carries a real submitted value, which
// is what the unanswered-count cache counts against.
func (e *AnswerEntry) HasAnswer() bool {
	return e.Answer != nil && *e.Answer != ""
}
