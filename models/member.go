package models

import "github.com/camden-git/vanshavalibackend/kinship"

// Member is one person of the family tree. It corresponds to the 'members' table.
type Member struct {
	SerNo          int64   `gorm:"primaryKey;autoIncrement:false" json:"serNo"`
	FirstName      string  `gorm:"not null" json:"firstName"`
	MiddleName     *string `json:"middleName"`
	LastName       string  `gorm:"not null;index" json:"lastName"`
	Vansh          string  `json:"vansh,omitempty"`
	Gender         string  `gorm:"size:16" json:"gender"` // Male, Female, anything else is unknown
	FatherSerNo    *int64  `gorm:"index" json:"fatherSerNo"`
	MotherSerNo    *int64  `gorm:"index" json:"motherSerNo"`
	SpouseSerNo    *int64  `json:"spouseSerNo"`
	ChildrenSerNos []int64 `gorm:"serializer:json" json:"childrenSerNos"`
	Level          int     `json:"level"`
	IsAlive        bool    `gorm:"not null" json:"isAlive"` // missing in a request means alive
	CreatedAt      int64   `gorm:"not null" json:"createdAt"` // Unix timestamp
	UpdatedAt      int64   `gorm:"not null" json:"updatedAt"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Member) TableName() string {
	return "members"
}

// ToKinship projects the stored row onto the engine's member type.
func (m *Member) ToKinship() kinship.Member {
	km := kinship.Member{
		SerNo:       m.SerNo,
		FirstName:   m.FirstName,
		MiddleName:  m.MiddleName,
		LastName:    m.LastName,
		Gender:      kinship.ParseGender(m.Gender),
		FatherSerNo: m.FatherSerNo,
		MotherSerNo: m.MotherSerNo,
		SpouseSerNo: m.SpouseSerNo,
	}
	if len(m.ChildrenSerNos) > 0 {
		km.ChildrenSerNos = append([]int64(nil), m.ChildrenSerNos...)
	}
	return km
}
