package services

import (
	"context"

	"github.com/Conceptual-Machines/yiyun-api/internal/models"
	"gorm.io/gorm"
)

const defaultHistoryLimit = 50

type HistoryService struct {
	db *gorm.DB
}

func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Record stores one completed generation
func (s *HistoryService) Record(ctx context.Context, record *models.GenerationRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// ListForUser returns the user's generations, newest first
func (s *HistoryService) ListForUser(ctx context.Context, userID uint, limit int) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	if err := historyQuery(s.db.WithContext(ctx), userID, limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func historyQuery(tx *gorm.DB, userID uint, limit int) *gorm.DB {
	if limit <= 0 || limit > defaultHistoryLimit {
		limit = defaultHistoryLimit
	}
	return tx.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit)
}
