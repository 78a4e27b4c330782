package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vectorprep/session-service/internal/cache"
	"github.com/vectorprep/session-service/internal/models"
	"github.com/vectorprep/session-service/internal/repositories"
)

// fakeRepository is an in-memory repositories.Repository. It mirrors the
// storage contract the services rely on: reads return copies, missing rows
// surface gorm.ErrRecordNotFound, and preloading lookups attach answer
// entries the way the postgres implementation does.
type fakeRepository struct {
	mu sync.Mutex

	questions map[uint]*models.Question
	attempts  map[uint]*models.Attempt
	answers   map[uint]*models.AnswerEntry
	mockTests map[uint]*models.MockTest
	leads     map[uint]*models.Lead

	nextAttemptID uint
	nextAnswerID  uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		questions:     make(map[uint]*models.Question),
		attempts:      make(map[uint]*models.Attempt),
		answers:       make(map[uint]*models.AnswerEntry),
		mockTests:     make(map[uint]*models.MockTest),
		leads:         make(map[uint]*models.Lead),
		nextAttemptID: 1,
		nextAnswerID:  1,
	}
}

func (f *fakeRepository) Question() repositories.QuestionRepository { return (*fakeQuestionRepo)(f) }
func (f *fakeRepository) Attempt() repositories.AttemptRepository   { return (*fakeAttemptRepo)(f) }
func (f *fakeRepository) Answer() repositories.AnswerRepository     { return (*fakeAnswerRepo)(f) }
func (f *fakeRepository) MockTest() repositories.MockTestRepository { return (*fakeMockTestRepo)(f) }
func (f *fakeRepository) Lead() repositories.LeadRepository         { return (*fakeLeadRepo)(f) }

func (f *fakeRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

// --- seeding helpers ---

func (f *fakeRepository) addQuestion(q models.Question) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := q
	f.questions[q.ID] = &copied
}

func (f *fakeRepository) addLead(id uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[id] = &models.Lead{ID: id}
}

func (f *fakeRepository) addMockTest(t models.MockTest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := t
	f.mockTests[t.ID] = &copied
}

func (f *fakeRepository) storedAttempt(id uint) *models.Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

func (f *fakeRepository) attemptEntries(attemptID uint) []*models.AnswerEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []*models.AnswerEntry
	for _, entry := range f.answers {
		if entry.AttemptID == attemptID {
			copied := *entry
			entries = append(entries, &copied)
		}
	}
	return entries
}

// --- questions ---

type fakeQuestionRepo fakeRepository

func (f *fakeQuestionRepo) GetByID(_ context.Context, id uint) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *q
	return &copied, nil
}

func (f *fakeQuestionRepo) GetByIDs(_ context.Context, ids []uint) (map[uint]*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[uint]*models.Question, len(ids))
	for _, id := range ids {
		if q, ok := f.questions[id]; ok {
			copied := *q
			out[id] = &copied
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) ListActive(_ context.Context) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Question
	for _, q := range f.questions {
		if q.IsActive {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) CreateBatch(_ context.Context, questions []*models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range questions {
		copied := *q
		f.questions[q.ID] = &copied
	}
	return nil
}

// --- attempts ---

type fakeAttemptRepo fakeRepository

func (f *fakeAttemptRepo) Create(_ context.Context, attempt *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.ID = f.nextAttemptID
	f.nextAttemptID++
	attempt.UpdatedAt = time.Now()
	copied := *attempt
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) GetByID(_ context.Context, id uint) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (f *fakeAttemptRepo) GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error) {
	attempt, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.attachAnswers(attempt)
	return attempt, nil
}

func (f *fakeAttemptRepo) GetByReportToken(_ context.Context, token string) (*models.Attempt, error) {
	f.mu.Lock()
	var found *models.Attempt
	for _, attempt := range f.attempts {
		if attempt.ReportToken == token {
			copied := *attempt
			found = &copied
			break
		}
	}
	f.mu.Unlock()
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	f.attachAnswers(found)
	return found, nil
}

func (f *fakeAttemptRepo) attachAnswers(attempt *models.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt.Answers = nil
	for _, entry := range f.answers {
		if entry.AttemptID == attempt.ID {
			attempt.Answers = append(attempt.Answers, *entry)
		}
	}
}

func (f *fakeAttemptRepo) Update(_ context.Context, attempt *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.attempts[attempt.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	attempt.UpdatedAt = time.Now()
	copied := *attempt
	copied.Answers = nil
	f.attempts[attempt.ID] = &copied
	return nil
}

func (f *fakeAttemptRepo) GetIdleInProgress(_ context.Context, cutoff time.Time, limit int) ([]*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Attempt
	for _, attempt := range f.attempts {
		if len(out) >= limit {
			break
		}
		if attempt.Status == models.AttemptInProgress && attempt.UpdatedAt.Before(cutoff) {
			copied := *attempt
			out = append(out, &copied)
		}
	}
	return out, nil
}

// --- answer entries ---

type fakeAnswerRepo fakeRepository

func (f *fakeAnswerRepo) Create(_ context.Context, entry *models.AnswerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = f.nextAnswerID
	f.nextAnswerID++
	copied := *entry
	f.answers[entry.ID] = &copied
	return nil
}

func (f *fakeAnswerRepo) Update(_ context.Context, entry *models.AnswerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.answers[entry.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *entry
	f.answers[entry.ID] = &copied
	return nil
}

func (f *fakeAnswerRepo) GetByAttempt(_ context.Context, attemptID uint) ([]*models.AnswerEntry, error) {
	return (*fakeRepository)(f).attemptEntries(attemptID), nil
}

func (f *fakeAnswerRepo) GetByAttemptAndQuestion(_ context.Context, attemptID, questionID uint) (*models.AnswerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.answers {
		if entry.AttemptID == attemptID && entry.QuestionID == questionID {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// --- mock tests ---

type fakeMockTestRepo fakeRepository

func (f *fakeMockTestRepo) GetByID(_ context.Context, id uint) (*models.MockTest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	test, ok := f.mockTests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *test
	return &copied, nil
}

func (f *fakeMockTestRepo) Create(_ context.Context, test *models.MockTest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *test
	f.mockTests[test.ID] = &copied
	return nil
}

// --- leads ---

type fakeLeadRepo fakeRepository

func (f *fakeLeadRepo) GetByID(_ context.Context, id uint) (*models.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *lead
	return &copied, nil
}

func (f *fakeLeadRepo) Create(_ context.Context, lead *models.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *lead
	f.leads[lead.ID] = &copied
	return nil
}

// fakeCache is a map-backed CacheService for tests.
type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = payload
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.items[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}
