package selector

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/vectorprep/session-service/internal/models"
)

// Quota is the target composition of a diagnostic selection: a hard total
// and two independent partitions of it, by subject and by difficulty.
type Quota struct {
	Total        int                            `json:"total" validate:"required,min=1"`
	Subjects     map[models.Subject]int         `json:"subjects" validate:"required"`
	Difficulties map[models.DifficultyLevel]int `json:"difficulties" validate:"required"`
}

// Validate checks that both partitions sum to the total. The two partitions
// are reconciled proportionally per subject during selection, so they only
// need to agree on the total.
func (q Quota) Validate() error {
	if q.Total <= 0 {
		return fmt.Errorf("quota total must be positive, got %d", q.Total)
	}
	subjectSum := 0
	for _, n := range q.Subjects {
		if n < 0 {
			return fmt.Errorf("negative subject quota")
		}
		subjectSum += n
	}
	if subjectSum != q.Total {
		return fmt.Errorf("subject quotas sum to %d, want total %d", subjectSum, q.Total)
	}
	diffSum := 0
	for _, n := range q.Difficulties {
		if n < 0 {
			return fmt.Errorf("negative difficulty quota")
		}
		diffSum += n
	}
	if diffSum != q.Total {
		return fmt.Errorf("difficulty quotas sum to %d, want total %d", diffSum, q.Total)
	}
	return nil
}

// Result is the ordered selection plus an explicit shortfall so callers
// never have to infer an under-target condition from slice length alone.
type Result struct {
	QuestionIDs []uint `json:"question_ids"`
	Requested   int    `json:"requested"`
	Shortfall   int    `json:"shortfall"`
}

func (r Result) Short() bool { return r.Shortfall > 0 }

// Select builds a balanced, concept-diverse question sequence from the
// given items under the quota. Items are preferred by descending frequency
// weight, then descending priority score; no two selected items share a
// concept tag. The published order is a uniform random permutation so the
// client cannot recover the subject/difficulty grouping.
//
// Inactive items are ignored. When a bucket cannot supply its target the
// subject total is backfilled from the subject's other buckets; when the
// whole store runs short the result is simply shorter than requested, with
// the shortfall reported on the Result.
func Select(items []models.Question, quota Quota, rng *rand.Rand) (Result, error) {
	if err := quota.Validate(); err != nil {
		return Result{}, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	candidates := make([]models.Question, 0, len(items))
	for _, q := range items {
		if q.IsActive {
			candidates = append(candidates, q)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FrequencyWeight != candidates[j].FrequencyWeight {
			return candidates[i].FrequencyWeight > candidates[j].FrequencyWeight
		}
		return candidates[i].PriorityScore > candidates[j].PriorityScore
	})

	// Bucket by (subject, difficulty), preserving the preference order.
	type bucketKey struct {
		subject    models.Subject
		difficulty models.DifficultyLevel
	}
	buckets := make(map[bucketKey][]models.Question)
	for _, q := range candidates {
		k := bucketKey{q.Subject, q.Difficulty}
		buckets[k] = append(buckets[k], q)
	}

	usedConcepts := make(map[string]bool)
	selectedSet := make(map[uint]bool)
	selected := make([]uint, 0, quota.Total)

	take := func(q models.Question) {
		selected = append(selected, q.ID)
		selectedSet[q.ID] = true
		usedConcepts[q.Concept] = true
	}
	eligible := func(q models.Question) bool {
		return !selectedSet[q.ID] && !usedConcepts[q.Concept]
	}

	for _, subject := range models.SubjectOrder {
		subjectTarget := quota.Subjects[subject]
		if subjectTarget == 0 {
			continue
		}
		taken := 0

		// Proportional per-difficulty targets; the subject target stays
		// authoritative when rounding drifts by one.
		for _, difficulty := range models.DifficultyOrder {
			diffTarget := int(math.Round(float64(quota.Difficulties[difficulty]) / float64(quota.Total) * float64(subjectTarget)))
			bucketTaken := 0
			for _, q := range buckets[bucketKey{subject, difficulty}] {
				if taken >= subjectTarget || bucketTaken >= diffTarget {
					break
				}
				if !eligible(q) {
					continue
				}
				take(q)
				taken++
				bucketTaken++
			}
		}

		// Backfill: bucket exhaustion or concept exclusions may leave the
		// subject short; sweep every difficulty again until the subject
		// target is met or nothing eligible remains.
		if taken < subjectTarget {
			for _, difficulty := range models.DifficultyOrder {
				for _, q := range buckets[bucketKey{subject, difficulty}] {
					if taken >= subjectTarget {
						break
					}
					if !eligible(q) {
						continue
					}
					take(q)
					taken++
				}
			}
		}
	}

	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	return Result{
		QuestionIDs: selected,
		Requested:   quota.Total,
		Shortfall:   quota.Total - len(selected),
	}, nil
}
