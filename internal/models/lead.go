package models

import (
	"time"

	"gorm.io/gorm"
)

// Lead is the anonymous visitor an attempt belongs to. Contact-data
// management lives in a separate service; this table only anchors the
// attempt foreign key.
type Lead struct {
	ID    uint    `json:"id" gorm:"primaryKey"`
	Name  *string `json:"name" gorm:"size:100"`
	Phone *string `json:"phone" gorm:"size:20;index"`
	Email *string `json:"email" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Lead) TableName() string {
	return "leads"
}
