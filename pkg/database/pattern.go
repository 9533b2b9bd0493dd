package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"SignalForge/pkg/model"
	"SignalForge/pkg/repository"
)

// PatternDB repository.PatternStore backed by the patterns table
type PatternDB struct {
	db *gorm.DB
}

var _ repository.PatternStore = (*PatternDB)(nil)

func (d *DB) Patterns() *PatternDB {
	return &PatternDB{db: d.db}
}

// Add validates and inserts a pattern
func (p *PatternDB) Add(ctx context.Context, rule model.PatternRule) error {
	normalized, err := repository.NormalizeRule(rule)
	if err != nil {
		return err
	}
	conditions, err := json.Marshal(normalized.Conditions)
	if err != nil {
		return fmt.Errorf("encode conditions: %w", err)
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PatternRecord{}).
			Where("name_key = ?", strings.ToLower(normalized.Name)).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check pattern: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", model.ErrPatternExists, normalized.Name)
		}

		var last int64
		if err := tx.Model(&model.PatternRecord{}).
			Select("COALESCE(MAX(position), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("read pattern position: %w", err)
		}

		record := &model.PatternRecord{
			Name:        normalized.Name,
			Description: normalized.Description,
			Conditions:  string(conditions),
			Position:    last + 1,
		}
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("save pattern: %w", err)
		}
		return nil
	})
}

// List in insertion order
func (p *PatternDB) List(ctx context.Context) ([]model.PatternRule, error) {
	var records []model.PatternRecord
	if err := p.db.WithContext(ctx).Order("position ASC").Order("created_at ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query patterns: %w", err)
	}

	rules := make([]model.PatternRule, 0, len(records))
	for _, r := range records {
		rule := model.PatternRule{Name: r.Name, Description: r.Description}
		if r.Conditions != "" {
			if err := json.Unmarshal([]byte(r.Conditions), &rule.Conditions); err != nil {
				return nil, fmt.Errorf("decode conditions of %q: %w", r.Name, err)
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Delete by name, ignoring case
func (p *PatternDB) Delete(ctx context.Context, name string) error {
	res := p.db.WithContext(ctx).
		Where("name_key = ?", strings.ToLower(strings.TrimSpace(name))).
		Delete(&model.PatternRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete pattern: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrPatternNotFound, name)
	}
	return nil
}

// Clear removes every pattern
func (p *PatternDB) Clear(ctx context.Context) error {
	err := p.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.PatternRecord{}).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("clear patterns: %w", err)
	}
	return nil
}
