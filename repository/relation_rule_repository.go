package repository

import (
	"fmt"

	"github.com/camden-git/vanshavalibackend/models"
	"gorm.io/gorm"
)

// RelationRuleRepository handles database operations for the label rule table
type RelationRuleRepository struct {
	DB *gorm.DB
}

func NewRelationRuleRepository(db *gorm.DB) *RelationRuleRepository {
	return &RelationRuleRepository{DB: db}
}

// ListAll returns the rules in table order
func (r *RelationRuleRepository) ListAll() ([]models.RelationRule, error) {
	var rules []models.RelationRule
	err := r.DB.Order("position ASC").Order("id ASC").Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list relation rules: %w", err)
	}
	return rules, nil
}

// ReplaceAll swaps the whole table in one transaction. Positions are
// renumbered in slice order.
func (r *RelationRuleRepository) ReplaceAll(rules []models.RelationRule) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.RelationRule{}).Error; err != nil {
			return fmt.Errorf("failed to clear relation rules: %w", err)
		}
		if len(rules) == 0 {
			return nil
		}
		rows := make([]models.RelationRule, len(rules))
		for i, rule := range rules {
			rule.ID = 0
			rule.Position = i
			rows[i] = rule
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert relation rules: %w", err)
		}
		return nil
	})
}

func (r *RelationRuleRepository) Count() (int64, error) {
	var n int64
	if err := r.DB.Model(&models.RelationRule{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count relation rules: %w", err)
	}
	return n, nil
}
