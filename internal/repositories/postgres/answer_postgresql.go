package postgres

import (
	"context"

	"github.com/vectorprep/session-service/internal/models"
	"gorm.io/gorm"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) *AnswerPostgreSQL {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) Create(ctx context.Context, entry *models.AnswerEntry) error {
	return a.db.WithContext(ctx).Create(entry).Error
}

func (a *AnswerPostgreSQL) Update(ctx context.Context, entry *models.AnswerEntry) error {
	return a.db.WithContext(ctx).Save(entry).Error
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AnswerEntry, error) {
	var entries []*models.AnswerEntry
	err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AnswerEntry, error) {
	var entry models.AnswerEntry
	err := a.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
