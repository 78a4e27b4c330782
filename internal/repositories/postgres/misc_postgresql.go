package postgres

import (
	"context"

	"github.com/vectorprep/session-service/internal/models"
	"gorm.io/gorm"
)

type MockTestPostgreSQL struct {
	db *gorm.DB
}

func NewMockTestPostgreSQL(db *gorm.DB) *MockTestPostgreSQL {
	return &MockTestPostgreSQL{db: db}
}

func (m *MockTestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.MockTest, error) {
	var test models.MockTest
	if err := m.db.WithContext(ctx).First(&test, id).Error; err != nil {
		return nil, err
	}
	return &test, nil
}

func (m *MockTestPostgreSQL) Create(ctx context.Context, test *models.MockTest) error {
	return m.db.WithContext(ctx).Create(test).Error
}

type LeadPostgreSQL struct {
	db *gorm.DB
}

func NewLeadPostgreSQL(db *gorm.DB) *LeadPostgreSQL {
	return &LeadPostgreSQL{db: db}
}

func (l *LeadPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := l.db.WithContext(ctx).First(&lead, id).Error; err != nil {
		return nil, err
	}
	return &lead, nil
}

func (l *LeadPostgreSQL) Create(ctx context.Context, lead *models.Lead) error {
	return l.db.WithContext(ctx).Create(lead).Error
}
