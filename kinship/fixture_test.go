package kinship_test

import (
	"testing"

	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/rules"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func person(serNo int64, name string, g kinship.Gender) kinship.Member {
	return kinship.Member{SerNo: serNo, FirstName: name, LastName: "Deshpande", Gender: g}
}

// familyFixture is three generations around Arjun (7):
//
//	Ramchandra(1) = Sita(2)            Hari(8) = Radha(9)          Shankar(15)
//	  ├─ Vishnu(3) = Laxmi(4) ─────────── ┤ ├─ Madhav(10)             ├─ Meera(11)
//	  │    ├─ Arjun(7) = Meera(11)                                     └─ Gauri(16)
//	  │    │    └─ Aarav(14)
//	  │    └─ Priya(12)
//	  └─ Kamala(5) = Govind(6)
//	       └─ Kiran(13)
func familyFixture() []kinship.Member {
	m := map[int64]kinship.Member{}
	add := func(p kinship.Member) { m[p.SerNo] = p }

	add(person(1, "Ramchandra", kinship.GenderMale))
	add(person(2, "Sita", kinship.GenderFemale))
	add(person(3, "Vishnu", kinship.GenderMale))
	add(person(4, "Laxmi", kinship.GenderFemale))
	add(person(5, "Kamala", kinship.GenderFemale))
	add(person(6, "Govind", kinship.GenderMale))
	add(person(7, "Arjun", kinship.GenderMale))
	add(person(8, "Hari", kinship.GenderMale))
	add(person(9, "Radha", kinship.GenderFemale))
	add(person(10, "Madhav", kinship.GenderMale))
	add(person(11, "Meera", kinship.GenderFemale))
	add(person(12, "Priya", kinship.GenderFemale))
	add(person(13, "Kiran", kinship.GenderMale))
	add(person(14, "Aarav", kinship.GenderMale))
	add(person(15, "Shankar", kinship.GenderMale))
	add(person(16, "Gauri", kinship.GenderFemale))

	link := func(child, father, mother int64) {
		c := m[child]
		if father != 0 {
			c.FatherSerNo = ptr(father)
		}
		if mother != 0 {
			c.MotherSerNo = ptr(mother)
		}
		m[child] = c
	}
	marry := func(a, b int64) {
		x, y := m[a], m[b]
		x.SpouseSerNo, y.SpouseSerNo = ptr(b), ptr(a)
		m[a], m[b] = x, y
	}

	marry(1, 2)
	marry(3, 4)
	marry(8, 9)
	marry(7, 11)
	link(3, 1, 2)
	link(5, 1, 2)
	link(4, 8, 9)
	link(10, 8, 9)
	link(7, 3, 4)
	link(12, 3, 4)
	link(13, 5, 6)
	link(11, 15, 0)
	link(16, 15, 0)

	// only one side records this marriage
	govind := m[6]
	govind.SpouseSerNo = ptr(5)
	m[6] = govind

	// Aarav is only known through his father's children list
	arjun := m[7]
	arjun.ChildrenSerNos = []int64{14}
	m[7] = arjun

	out := make([]kinship.Member, 0, len(m))
	for i := int64(1); i <= 16; i++ {
		out = append(out, m[i])
	}
	return out
}

func defaultTable(t *testing.T) *kinship.RuleTable {
	t.Helper()
	rs, err := rules.Default()
	require.NoError(t, err)
	table, err := kinship.NewRuleTable(rs)
	require.NoError(t, err)
	return table
}

func labelsBySerNo(rels []kinship.ComputedRelation) map[int64]string {
	out := make(map[int64]string, len(rels))
	for _, r := range rels {
		out[r.Related.SerNo] = r.RelationEnglish
	}
	return out
}
