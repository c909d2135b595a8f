package kinship

import (
	"sort"
)

// Graph is an immutable, indexed snapshot of the member store. Every lookup
// is defensive: references to unknown members were dropped while indexing and
// reported as anomalies instead.
type Graph struct {
	members   map[int64]*Member
	order     []int64
	parents   map[int64][]int64
	children  map[int64][]int64
	spouses   map[int64][]int64
	anomalies []*InconsistentGraphError
}

// NewGraph indexes members. Father/mother links and childrenSerNos are
// reconciled into one symmetric parent/child relation; spouse links are made
// symmetric even if the store only records one direction.
func NewGraph(members []Member) *Graph {
	g := &Graph{
		members:  make(map[int64]*Member, len(members)),
		parents:  make(map[int64][]int64),
		children: make(map[int64][]int64),
		spouses:  make(map[int64][]int64),
	}

	for i := range members {
		m := members[i]
		if m.SerNo <= 0 {
			g.flag(m.SerNo, 0, "non-positive serNo, member skipped")
			continue
		}
		if _, dup := g.members[m.SerNo]; dup {
			g.flag(m.SerNo, 0, "duplicate serNo, later record skipped")
			continue
		}
		g.members[m.SerNo] = &m
		g.order = append(g.order, m.SerNo)
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })

	for _, id := range g.order {
		m := g.members[id]
		for _, ref := range []*int64{m.FatherSerNo, m.MotherSerNo} {
			if p, ok := g.resolve(id, ref, "parent"); ok {
				g.parents[id] = appendUnique(g.parents[id], p)
			}
		}
	}

	// childrenSerNos is the inverse of father/mother. A child claimed by a
	// member it does not name as parent is adopted as long as it still has a
	// free parent slot.
	for _, id := range g.order {
		for _, c := range g.members[id].ChildrenSerNos {
			child, ok := g.resolve(id, &c, "child")
			if !ok || contains(g.parents[child], id) {
				continue
			}
			if len(g.parents[child]) >= 2 {
				g.flag(id, child, "listed as child but child already has two other parents, edge skipped")
				continue
			}
			g.flag(id, child, "child does not link back to this parent, reconciled")
			g.parents[child] = append(g.parents[child], id)
		}
	}

	for _, id := range g.order {
		for _, p := range g.parents[id] {
			g.children[p] = append(g.children[p], id)
		}
	}

	for _, id := range g.order {
		m := g.members[id]
		sp, ok := g.resolve(id, m.SpouseSerNo, "spouse")
		if !ok {
			continue
		}
		other := g.members[sp]
		if other.SpouseSerNo == nil || *other.SpouseSerNo != id {
			g.flag(id, sp, "spouse link is not reciprocated")
		}
		g.spouses[id] = appendUnique(g.spouses[id], sp)
		g.spouses[sp] = appendUnique(g.spouses[sp], id)
	}

	for _, idx := range []map[int64][]int64{g.children, g.spouses} {
		for k := range idx {
			sortIDs(idx[k])
		}
	}
	return g
}

func (g *Graph) resolve(from int64, ref *int64, role string) (int64, bool) {
	if ref == nil || *ref == 0 {
		return 0, false
	}
	id := *ref
	if id == from {
		g.flag(from, id, role+" link points at the member itself, edge skipped")
		return 0, false
	}
	if _, ok := g.members[id]; !ok {
		g.flag(from, id, role+" link references an unknown member, edge skipped")
		return 0, false
	}
	return id, true
}

func (g *Graph) flag(serNo, ref int64, reason string) {
	g.anomalies = append(g.anomalies, &InconsistentGraphError{SerNo: serNo, Ref: ref, Reason: reason})
}

func (g *Graph) Member(serNo int64) (*Member, bool) {
	m, ok := g.members[serNo]
	return m, ok
}

func (g *Graph) Len() int { return len(g.order) }

// SerNos returns every indexed serial number in ascending order.
func (g *Graph) SerNos() []int64 {
	out := make([]int64, len(g.order))
	copy(out, g.order)
	return out
}

// Anomalies are the inconsistencies found while indexing.
func (g *Graph) Anomalies() []*InconsistentGraphError {
	return g.anomalies
}

func (g *Graph) Parents(serNo int64) []int64 { return g.parents[serNo] }

func (g *Graph) Children(serNo int64) []int64 { return g.children[serNo] }

func (g *Graph) Spouses(serNo int64) []int64 { return g.spouses[serNo] }

// Siblings are derived from shared parents; at least one common parent is
// enough, so half-siblings are included.
func (g *Graph) Siblings(serNo int64) []int64 {
	var out []int64
	for _, p := range g.parents[serNo] {
		for _, c := range g.children[p] {
			if c != serNo {
				out = appendUnique(out, c)
			}
		}
	}
	sortIDs(out)
	return out
}

func (g *Graph) neighbors(serNo int64, e Edge) []int64 {
	switch e {
	case EdgeParent:
		return g.Parents(serNo)
	case EdgeChild:
		return g.Children(serNo)
	case EdgeSibling:
		return g.Siblings(serNo)
	case EdgeSpouse:
		return g.Spouses(serNo)
	default:
		return nil
	}
}

func (g *Graph) gender(serNo int64) Gender {
	if m, ok := g.members[serNo]; ok {
		return m.Gender
	}
	return GenderUnknown
}

func appendUnique(ids []int64, id int64) []int64 {
	if contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func contains(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
