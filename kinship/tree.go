package kinship

// TreeNode is one member of a descendant tree with its spouses and children.
type TreeNode struct {
	MemberRef
	Gender   Gender      `json:"gender"`
	Spouses  []MemberRef `json:"spouses"`
	Children []*TreeNode `json:"children"`
	// Truncated is set when the member has children beyond the depth limit.
	Truncated bool `json:"truncated,omitempty"`
}

// DefaultTreeDepth bounds DescendantTree when no depth is given.
const DefaultTreeDepth = 12

// DescendantTree builds the tree of root's descendants, at most depth
// generations deep. A member that is its own ancestor is cut where the
// chain closes and reported as an anomaly.
func DescendantTree(g *Graph, root int64, depth int) (*TreeNode, []error, error) {
	if _, ok := g.Member(root); !ok {
		return nil, nil, &NotFoundError{SerNo: root}
	}
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	b := treeBuilder{g: g, onPath: make(map[int64]bool)}
	return b.node(root, depth), b.anomalies, nil
}

type treeBuilder struct {
	g         *Graph
	onPath    map[int64]bool
	anomalies []error
}

func (b *treeBuilder) node(serNo int64, depth int) *TreeNode {
	m, _ := b.g.Member(serNo)
	n := &TreeNode{
		MemberRef: m.Ref(),
		Gender:    m.Gender,
		Spouses:   b.g.Refs(b.g.Spouses(serNo)),
		Children:  []*TreeNode{},
	}
	children := b.g.Children(serNo)
	if len(children) == 0 {
		return n
	}
	if depth == 0 {
		n.Truncated = true
		return n
	}

	b.onPath[serNo] = true
	defer delete(b.onPath, serNo)
	for _, c := range children {
		if b.onPath[c] {
			b.anomalies = append(b.anomalies, &InconsistentGraphError{
				SerNo: serNo, Ref: c, Reason: "descendant is also an ancestor, branch cut",
			})
			continue
		}
		n.Children = append(n.Children, b.node(c, depth-1))
	}
	return n
}

// Refs projects serNos onto member references, skipping unknown ones.
func (g *Graph) Refs(serNos []int64) []MemberRef {
	out := make([]MemberRef, 0, len(serNos))
	for _, id := range serNos {
		if m, ok := g.Member(id); ok {
			out = append(out, m.Ref())
		}
	}
	return out
}

// Parents of a member split by gender. Other holds parents whose gender is
// not recorded.
type ParentSet struct {
	Father *MemberRef  `json:"father"`
	Mother *MemberRef  `json:"mother"`
	Other  []MemberRef `json:"other"`
}

func (g *Graph) ParentSet(serNo int64) ParentSet {
	ps := ParentSet{Other: []MemberRef{}}
	for _, p := range g.Parents(serNo) {
		m, ok := g.Member(p)
		if !ok {
			continue
		}
		ref := m.Ref()
		switch {
		case m.Gender == GenderMale && ps.Father == nil:
			ps.Father = &ref
		case m.Gender == GenderFemale && ps.Mother == nil:
			ps.Mother = &ref
		default:
			ps.Other = append(ps.Other, ref)
		}
	}
	return ps
}
