package postgres

import (
	"context"

	"github.com/vectorprep/session-service/internal/repositories"
	"gorm.io/gorm"
)

type gormRepository struct {
	db       *gorm.DB
	question *QuestionPostgreSQL
	attempt  *AttemptPostgreSQL
	answer   *AnswerPostgreSQL
	mockTest *MockTestPostgreSQL
	lead     *LeadPostgreSQL
}

func NewRepository(db *gorm.DB) repositories.Repository {
	return &gormRepository{
		db:       db,
		question: NewQuestionPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
		mockTest: NewMockTestPostgreSQL(db),
		lead:     NewLeadPostgreSQL(db),
	}
}

func (r *gormRepository) Question() repositories.QuestionRepository { return r.question }
func (r *gormRepository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *gormRepository) Answer() repositories.AnswerRepository     { return r.answer }
func (r *gormRepository) MockTest() repositories.MockTestRepository { return r.mockTest }
func (r *gormRepository) Lead() repositories.LeadRepository         { return r.lead }

func (r *gormRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
