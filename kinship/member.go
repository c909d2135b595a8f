// Package kinship derives family relationships that are never stored
// explicitly. It walks parent, child, sibling and spouse edges outward from a
// member, reduces every walk to a canonical shape and labels the shape from a
// bilingual rule table.
//
// The engine holds no state between calls. A Graph and a RuleTable are
// read-only snapshots and may be shared by concurrent Compute calls.
package kinship

import (
	"strings"
)

type Gender uint8

const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// ParseGender accepts the stored spellings ("Male", "female", "M", ...).
// Anything unrecognised is GenderUnknown.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m":
		return GenderMale
	case "female", "f":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return "Unknown"
	}
}

func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

func (g *Gender) UnmarshalText(text []byte) error {
	*g = ParseGender(string(text))
	return nil
}

// Code is the single letter form used in rule "via" qualifiers.
func (g Gender) Code() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	default:
		return "U"
	}
}

// Member is a node of the family graph as the engine sees it.
type Member struct {
	SerNo          int64
	FirstName      string
	MiddleName     *string
	LastName       string
	Gender         Gender
	FatherSerNo    *int64
	MotherSerNo    *int64
	SpouseSerNo    *int64
	ChildrenSerNos []int64
}

// MemberRef is the public-safe projection of a member.
type MemberRef struct {
	SerNo      int64   `json:"serNo"`
	FirstName  string  `json:"firstName"`
	MiddleName *string `json:"middleName"`
	LastName   string  `json:"lastName"`
}

func (m *Member) Ref() MemberRef {
	ref := MemberRef{
		SerNo:     m.SerNo,
		FirstName: m.FirstName,
		LastName:  m.LastName,
	}
	if m.MiddleName != nil && strings.TrimSpace(*m.MiddleName) != "" {
		middle := *m.MiddleName
		ref.MiddleName = &middle
	}
	return ref
}

// ComputedRelation is one derived relationship from the source member to Related.
type ComputedRelation struct {
	RelationEnglish string    `json:"relationEnglish"`
	RelationMarathi *string   `json:"relationMarathi"`
	Related         MemberRef `json:"related"`
	ShapeKey        ShapeKey  `json:"shapeKey"`
	Generation      int       `json:"generation"`
	Kind            Kind      `json:"kind"`
}
