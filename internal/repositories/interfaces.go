package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/vectorprep/session-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository reads the item catalog. The session engine never
// mutates questions; writes happen only through the loader tooling.
type QuestionRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Question, error)
	// ListActive returns active items pre-sorted by descending frequency
	// weight, then descending priority score.
	ListActive(ctx context.Context) ([]models.Question, error)
	CreateBatch(ctx context.Context, questions []*models.Question) error
}

type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id uint) (*models.Attempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.Attempt, error)
	GetByReportToken(ctx context.Context, token string) (*models.Attempt, error)
	Update(ctx context.Context, attempt *models.Attempt) error
	// GetIdleInProgress returns in-progress attempts untouched since the
	// cutoff, for the abandonment sweep.
	GetIdleInProgress(ctx context.Context, cutoff time.Time, limit int) ([]*models.Attempt, error)
}

type AnswerRepository interface {
	Create(ctx context.Context, entry *models.AnswerEntry) error
	Update(ctx context.Context, entry *models.AnswerEntry) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AnswerEntry, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AnswerEntry, error)
}

type MockTestRepository interface {
	GetByID(ctx context.Context, id uint) (*models.MockTest, error)
	Create(ctx context.Context, test *models.MockTest) error
}

type LeadRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
}

// Repository aggregates the per-entity repositories behind one handle so
// services depend on a single constructor-injected value.
type Repository interface {
	Question() QuestionRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	MockTest() MockTestRepository
	Lead() LeadRepository

	// WithTx runs fn against a repository bound to a single transaction.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// IsNotFoundError reports whether err is the storage layer's missing-row
// condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
