package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"SignalForge/pkg/model"
)

// DefaultHistoryLimit rows returned when no limit is given
const DefaultHistoryLimit = 50

type SignalDB struct {
	db *gorm.DB
}

func (d *DB) Signals() *SignalDB {
	return &SignalDB{db: d.db}
}

// Save stores one analysis as a signals row
func (s *SignalDB) Save(ctx context.Context, analysis model.Analysis) (*model.SignalRecord, error) {
	record := model.NewSignalRecord(analysis)
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("save signal: %w", err)
	}
	return record, nil
}

// List newest first; an empty address lists every wallet
func (s *SignalDB) List(ctx context.Context, address string, limit int) ([]model.SignalRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := s.db.WithContext(ctx).Model(&model.SignalRecord{})
	if address != "" {
		query = query.Where("address = ?", address)
	}

	var records []model.SignalRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	return records, nil
}

// CountByRecommendation totals per recommendation for one wallet or all
func (s *SignalDB) CountByRecommendation(ctx context.Context, address string) (map[string]int64, error) {
	type row struct {
		Recommendation string
		Total          int64
	}

	query := s.db.WithContext(ctx).Model(&model.SignalRecord{})
	if address != "" {
		query = query.Where("address = ?", address)
	}

	var rows []row
	if err := query.Select("recommendation, count(*) as total").Group("recommendation").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count signals: %w", err)
	}

	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Recommendation] = r.Total
	}
	return out, nil
}
