package selector

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorprep/session-service/internal/models"
)

func standardQuota() Quota {
	return Quota{
		Total: 12,
		Subjects: map[models.Subject]int{
			models.SubjectPhysics:     4,
			models.SubjectChemistry:   4,
			models.SubjectMathematics: 4,
		},
		Difficulties: map[models.DifficultyLevel]int{
			models.DifficultyEasy:   3,
			models.DifficultyMedium: 6,
			models.DifficultyHard:   3,
		},
	}
}

// catalog builds perBucket active items in every (subject, difficulty)
// bucket, each with a distinct concept.
func catalog(perBucket int) []models.Question {
	var items []models.Question
	id := uint(0)
	for _, subject := range models.SubjectOrder {
		for _, difficulty := range models.DifficultyOrder {
			for i := 0; i < perBucket; i++ {
				id++
				items = append(items, models.Question{
					ID:         id,
					Subject:    subject,
					Difficulty: difficulty,
					Concept:    fmt.Sprintf("%s-%s-%d", subject, difficulty, i),
					IsActive:   true,
				})
			}
		}
	}
	return items
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func questionByID(items []models.Question) map[uint]models.Question {
	byID := make(map[uint]models.Question, len(items))
	for _, q := range items {
		byID[q.ID] = q
	}
	return byID
}

func TestSelect_MeetsQuotaExactly(t *testing.T) {
	items := catalog(4)
	result, err := Select(items, standardQuota(), testRNG())
	require.NoError(t, err)

	assert.Len(t, result.QuestionIDs, 12)
	assert.Equal(t, 12, result.Requested)
	assert.Zero(t, result.Shortfall)
	assert.False(t, result.Short())

	// No duplicates, no shared concepts, subject quota honored.
	byID := questionByID(items)
	seenIDs := make(map[uint]bool)
	seenConcepts := make(map[string]bool)
	subjectCounts := make(map[models.Subject]int)
	for _, id := range result.QuestionIDs {
		q, ok := byID[id]
		require.True(t, ok)
		assert.False(t, seenIDs[id], "duplicate question %d", id)
		assert.False(t, seenConcepts[q.Concept], "duplicate concept %s", q.Concept)
		seenIDs[id] = true
		seenConcepts[q.Concept] = true
		subjectCounts[q.Subject]++
	}
	assert.Equal(t, 4, subjectCounts[models.SubjectPhysics])
	assert.Equal(t, 4, subjectCounts[models.SubjectChemistry])
	assert.Equal(t, 4, subjectCounts[models.SubjectMathematics])
}

func TestSelect_IgnoresInactiveItems(t *testing.T) {
	items := catalog(4)
	for i := range items {
		items[i].IsActive = false
	}
	result, err := Select(items, standardQuota(), testRNG())
	require.NoError(t, err)
	assert.Empty(t, result.QuestionIDs)
	assert.Equal(t, 12, result.Shortfall)
}

func TestSelect_PrefersHigherFrequencyWeight(t *testing.T) {
	quota := Quota{
		Total:        1,
		Subjects:     map[models.Subject]int{models.SubjectPhysics: 1},
		Difficulties: map[models.DifficultyLevel]int{models.DifficultyEasy: 1},
	}
	items := []models.Question{
		{ID: 1, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "a", IsActive: true, FrequencyWeight: 1},
		{ID: 2, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "b", IsActive: true, FrequencyWeight: 9},
		{ID: 3, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "c", IsActive: true, FrequencyWeight: 9, PriorityScore: 5},
	}

	result, err := Select(items, quota, testRNG())
	require.NoError(t, err)
	require.Len(t, result.QuestionIDs, 1)
	// Ties on frequency weight break on priority score.
	assert.Equal(t, uint(3), result.QuestionIDs[0])
}

func TestSelect_BackfillsWithinSubject(t *testing.T) {
	// No hard physics items at all; the subject target must still be met
	// from the remaining buckets.
	quota := Quota{
		Total:    4,
		Subjects: map[models.Subject]int{models.SubjectPhysics: 4},
		Difficulties: map[models.DifficultyLevel]int{
			models.DifficultyEasy:   1,
			models.DifficultyMedium: 1,
			models.DifficultyHard:   2,
		},
	}
	var items []models.Question
	for i := 0; i < 4; i++ {
		items = append(items, models.Question{
			ID:         uint(i + 1),
			Subject:    models.SubjectPhysics,
			Difficulty: models.DifficultyEasy,
			Concept:    fmt.Sprintf("easy-%d", i),
			IsActive:   true,
		})
	}

	result, err := Select(items, quota, testRNG())
	require.NoError(t, err)
	assert.Len(t, result.QuestionIDs, 4)
	assert.Zero(t, result.Shortfall)
}

func TestSelect_ConceptDiversityLimitsSelection(t *testing.T) {
	quota := Quota{
		Total:        3,
		Subjects:     map[models.Subject]int{models.SubjectPhysics: 3},
		Difficulties: map[models.DifficultyLevel]int{models.DifficultyEasy: 3},
	}
	// Five items but only two distinct concepts.
	items := []models.Question{
		{ID: 1, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "kinematics", IsActive: true},
		{ID: 2, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "kinematics", IsActive: true},
		{ID: 3, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "kinematics", IsActive: true},
		{ID: 4, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "optics", IsActive: true},
		{ID: 5, Subject: models.SubjectPhysics, Difficulty: models.DifficultyEasy, Concept: "optics", IsActive: true},
	}

	result, err := Select(items, quota, testRNG())
	require.NoError(t, err)
	assert.Len(t, result.QuestionIDs, 2)
	assert.Equal(t, 1, result.Shortfall)
	assert.True(t, result.Short())
}

func TestSelect_ShortStoreDegradesGracefully(t *testing.T) {
	items := catalog(1) // 9 items for a 12-item quota
	result, err := Select(items, standardQuota(), testRNG())
	require.NoError(t, err)
	assert.Len(t, result.QuestionIDs, 9)
	assert.Equal(t, 3, result.Shortfall)
}

func TestSelect_ShufflesOutput(t *testing.T) {
	items := catalog(4)
	quota := standardQuota()

	first, err := Select(items, quota, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	second, err := Select(items, quota, rand.New(rand.NewSource(2)))
	require.NoError(t, err)

	require.Len(t, first.QuestionIDs, 12)
	require.Len(t, second.QuestionIDs, 12)
	assert.NotEqual(t, first.QuestionIDs, second.QuestionIDs)
}

func TestQuotaValidate(t *testing.T) {
	quota := standardQuota()
	assert.NoError(t, quota.Validate())

	bad := standardQuota()
	bad.Subjects[models.SubjectPhysics] = 5
	assert.Error(t, bad.Validate())

	bad = standardQuota()
	bad.Difficulties[models.DifficultyHard] = 0
	assert.Error(t, bad.Validate())

	bad = standardQuota()
	bad.Total = 0
	assert.Error(t, bad.Validate())

	_, err := Select(nil, bad, testRNG())
	assert.Error(t, err)
}
