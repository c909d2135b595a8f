package database

import (
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/camden-git/vanshavalibackend/models"
)

const (
	SortSerNoAsc = "serno_asc"
	SortNameAsc  = "name_asc"
	SortNameNat  = "name_nat"
)

const DefaultSortOrder = SortSerNoAsc

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortSerNoAsc, SortNameAsc, SortNameNat:
		return true
	default:
		return false
	}
}

func displayName(m *models.Member) string {
	parts := []string{m.FirstName}
	if m.MiddleName != nil && *m.MiddleName != "" {
		parts = append(parts, *m.MiddleName)
	}
	parts = append(parts, m.LastName)
	return strings.ToLower(strings.Join(parts, " "))
}

// SortMembers orders members in place. serNo always breaks ties.
func SortMembers(members []models.Member, order string) {
	var less func(a, b *models.Member) bool
	switch order {
	case SortNameAsc:
		less = func(a, b *models.Member) bool { return displayName(a) < displayName(b) }
	case SortNameNat:
		less = func(a, b *models.Member) bool { return natsort.Compare(displayName(a), displayName(b)) }
	default:
		less = func(a, b *models.Member) bool { return false }
	}
	sort.SliceStable(members, func(i, j int) bool {
		a, b := &members[i], &members[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.SerNo < b.SerNo
	})
}

// SortLabels orders relationship labels naturally, so "Ancestor (10 generations up)"
// follows "Ancestor (9 generations up)".
func SortLabels(labels []string) {
	natsort.Sort(labels)
}
