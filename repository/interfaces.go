package repository

import (
	"github.com/camden-git/vanshavalibackend/models"
)

// MemberRepositoryInterface defines the methods for member data operations
type MemberRepositoryInterface interface {
	Create(member *models.Member) error
	GetBySerNo(serNo int64) (*models.Member, error)
	ListAll() ([]models.Member, error)
	ListByLevel(level int) ([]models.Member, error)
	Search(query string, limit int) ([]models.Member, error)
	Update(member *models.Member) error
	Delete(serNo int64) error
}

// RelationRuleRepositoryInterface defines the methods for label rule operations
type RelationRuleRepositoryInterface interface {
	ListAll() ([]models.RelationRule, error)
	ReplaceAll(rules []models.RelationRule) error
	Count() (int64, error)
}
