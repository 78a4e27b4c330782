package models

import (
	"time"

	"gorm.io/gorm"
)

type Subject string

const (
	SubjectPhysics     Subject = "physics"
	SubjectChemistry   Subject = "chemistry"
	SubjectMathematics Subject = "mathematics"
)

// SubjectOrder is the fixed iteration order used by the selector so that
// quota reconciliation is deterministic across runs.
var SubjectOrder = []Subject{SubjectPhysics, SubjectChemistry, SubjectMathematics}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

var DifficultyOrder = []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Question is one item of the read-only catalog. The session engine never
// writes to it; rows are maintained by the item loader tooling.
type Question struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	Text       string          `json:"text" gorm:"type:text;not null" validate:"required"`
	Options    *string         `json:"options" gorm:"type:text"`
	Subject    Subject         `json:"subject" gorm:"not null;index;size:20" validate:"required,subject"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"not null;index;size:10" validate:"required,difficulty_level"`
	Concept    string          `json:"concept" gorm:"not null;size:200;index" validate:"required,max=200"`

	CorrectAnswer string `json:"-" gorm:"not null;size:500"`
	Solution      string `json:"-" gorm:"type:text"`

	IsActive        bool `json:"is_active" gorm:"default:true;index"`
	FrequencyWeight int  `json:"frequency_weight" gorm:"default:0"`
	PriorityScore   int  `json:"priority_score" gorm:"default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// ClientQuestion is the subset of Question fields that may be shown to a
// test-taker while an attempt is in progress. CorrectAnswer and Solution
// must never leave the server before the item is answered.
type ClientQuestion struct {
	ID         uint            `json:"id"`
	Text       string          `json:"text"`
	Options    *string         `json:"options"`
	Subject    Subject         `json:"subject"`
	Difficulty DifficultyLevel `json:"difficulty"`
}

func (q *Question) ForClient() ClientQuestion {
	return ClientQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Subject:    q.Subject,
		Difficulty: q.Difficulty,
	}
}
