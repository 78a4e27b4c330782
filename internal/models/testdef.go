package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
)

// MockTest is a fixed, timed test definition: a hard duration budget and a
// per-subject partition of question IDs. The union of the partitions is the
// attempt's full question set.
type MockTest struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	DurationSeconds int    `json:"duration_seconds" gorm:"not null" validate:"required,min=60"`

	// subject -> []questionID, JSON-encoded.
	Partitions datatypes.JSON `json:"partitions" gorm:"type:jsonb;not null"`

	IsActive  bool      `json:"is_active" gorm:"default:true;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (MockTest) TableName() string {
	return "mock_tests"
}

func (t *MockTest) SubjectPartitions() (map[Subject][]uint, error) {
	if len(t.Partitions) == 0 {
		return map[Subject][]uint{}, nil
	}
	var parts map[Subject][]uint
	if err := json.Unmarshal(t.Partitions, &parts); err != nil {
		return nil, err
	}
	return parts, nil
}

func (t *MockTest) SetSubjectPartitions(parts map[Subject][]uint) error {
	raw, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	t.Partitions = datatypes.JSON(raw)
	return nil
}

// AllQuestionIDs flattens the partitions in the fixed subject order so the
// resulting sequence is stable for a given definition.
func (t *MockTest) AllQuestionIDs() ([]uint, error) {
	parts, err := t.SubjectPartitions()
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, subject := range SubjectOrder {
		ids = append(ids, parts[subject]...)
	}
	// Partitions may name subjects outside the fixed set; keep them too.
	var extra []string
	for subject := range parts {
		if subject != SubjectPhysics && subject != SubjectChemistry && subject != SubjectMathematics {
			extra = append(extra, string(subject))
		}
	}
	sort.Strings(extra)
	for _, subject := range extra {
		ids = append(ids, parts[Subject(subject)]...)
	}
	return ids, nil
}
