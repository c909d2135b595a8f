package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camden-git/vanshavalibackend/models"
	"gorm.io/gorm"
)

// MemberRepository handles database operations for family members
type MemberRepository struct {
	DB *gorm.DB
}

// NewMemberRepository creates a new instance of MemberRepository
func NewMemberRepository(db *gorm.DB) *MemberRepository {
	return &MemberRepository{DB: db}
}

// Create inserts a member under its own serNo
func (r *MemberRepository) Create(member *models.Member) error {
	now := time.Now().Unix()
	if member.CreatedAt == 0 {
		member.CreatedAt = now
	}
	if member.UpdatedAt == 0 {
		member.UpdatedAt = now
	}

	err := r.DB.Create(member).Error
	if err != nil {
		return fmt.Errorf("failed to create member %d: %w", member.SerNo, err)
	}
	return nil
}

// GetBySerNo retrieves a member by serial number
func (r *MemberRepository) GetBySerNo(serNo int64) (*models.Member, error) {
	var member models.Member
	err := r.DB.First(&member, "ser_no = ?", serNo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get member by serNo %d: %w", serNo, err)
	}
	return &member, nil
}

// ListAll retrieves every member ordered by serNo
func (r *MemberRepository) ListAll() ([]models.Member, error) {
	var members []models.Member
	err := r.DB.Order("ser_no ASC").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// ListByLevel retrieves the members of one generation level ordered by serNo
func (r *MemberRepository) ListByLevel(level int) ([]models.Member, error) {
	var members []models.Member
	err := r.DB.Where("level = ?", level).Order("ser_no ASC").Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list members of level %d: %w", level, err)
	}
	return members, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search finds members whose first, middle or last name contains query,
// case-insensitively for ASCII
func (r *MemberRepository) Search(query string, limit int) ([]models.Member, error) {
	var members []models.Member
	pattern := "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
	err := r.DB.
		Where(`first_name LIKE ? ESCAPE '\' OR middle_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\'`, pattern, pattern, pattern).
		Order("ser_no ASC").
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search members for %q: %w", query, err)
	}
	return members, nil
}

// Update overwrites every editable column of an existing member, including
// links that were cleared to null
func (r *MemberRepository) Update(member *models.Member) error {
	member.UpdatedAt = time.Now().Unix()
	result := r.DB.Model(&models.Member{SerNo: member.SerNo}).
		Select("FirstName", "MiddleName", "LastName", "Vansh", "Gender", "FatherSerNo", "MotherSerNo",
			"SpouseSerNo", "ChildrenSerNos", "Level", "IsAlive", "UpdatedAt").
		Updates(member)

	if result.Error != nil {
		return fmt.Errorf("failed to update member %d: %w", member.SerNo, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes a member by serial number
func (r *MemberRepository) Delete(serNo int64) error {
	result := r.DB.Delete(&models.Member{}, "ser_no = ?", serNo)

	if result.Error != nil {
		return fmt.Errorf("failed to delete member %d: %w", serNo, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
