package models

import "github.com/camden-git/vanshavalibackend/kinship"

// RelationRule is one row of the label table. It corresponds to the 'relation_rules' table.
// Position keeps the table order, which breaks ties between equally specific rules.
type RelationRule struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Position       int    `gorm:"not null;index" json:"position"`
	ShapeKey       string `gorm:"not null;index" json:"shapeKey"`
	Via            string `json:"via,omitempty"`
	TravelerGender string `json:"travelerGender,omitempty"`
	TargetGender   string `json:"targetGender,omitempty"`
	LabelEnglish   string `gorm:"not null" json:"labelEnglish"`
	LabelMarathi   string `json:"labelMarathi,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (RelationRule) TableName() string {
	return "relation_rules"
}

func (r *RelationRule) ToKinship() kinship.Rule {
	return kinship.Rule{
		ShapeKey:       kinship.ShapeKey(r.ShapeKey),
		Via:            r.Via,
		TravelerGender: r.TravelerGender,
		TargetGender:   r.TargetGender,
		LabelEnglish:   r.LabelEnglish,
		LabelMarathi:   r.LabelMarathi,
	}
}

// RelationRuleFromKinship builds the row stored at position pos.
func RelationRuleFromKinship(pos int, r kinship.Rule) RelationRule {
	return RelationRule{
		Position:       pos,
		ShapeKey:       string(r.ShapeKey),
		Via:            r.Via,
		TravelerGender: r.TravelerGender,
		TargetGender:   r.TargetGender,
		LabelEnglish:   r.LabelEnglish,
		LabelMarathi:   r.LabelMarathi,
	}
}
