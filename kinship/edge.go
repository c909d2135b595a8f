package kinship

import (
	"fmt"
	"strings"
)

// Edge is a primitive hop between two members.
type Edge uint8

const (
	EdgeParent Edge = iota
	EdgeChild
	EdgeSibling
	EdgeSpouse
)

var edgeNames = [...]string{
	EdgeParent:  "PARENT",
	EdgeChild:   "CHILD",
	EdgeSibling: "SIBLING",
	EdgeSpouse:  "SPOUSE",
}

func (e Edge) String() string {
	if int(e) < len(edgeNames) {
		return edgeNames[e]
	}
	return fmt.Sprintf("Edge(%d)", uint8(e))
}

func (e Edge) Reverse() Edge {
	switch e {
	case EdgeParent:
		return EdgeChild
	case EdgeChild:
		return EdgeParent
	default:
		return e
	}
}

// generation is the signed generation change of one hop; positive is younger.
func (e Edge) generation() int {
	switch e {
	case EdgeParent:
		return -1
	case EdgeChild:
		return 1
	default:
		return 0
	}
}

func parseEdge(s string) (Edge, error) {
	for i, name := range edgeNames {
		if name == s {
			return Edge(i), nil
		}
	}
	return 0, fmt.Errorf("unknown edge %q", s)
}

// Step is a hop along Edge arriving at SerNo.
type Step struct {
	Edge  Edge
	SerNo int64
}

// Path is an ordered walk away from a source member. The source itself is
// not part of the path.
type Path []Step

func (p Path) extend(e Edge, serNo int64) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Step{Edge: e, SerNo: serNo})
}

func (p Path) Edges() []Edge {
	edges := make([]Edge, len(p))
	for i, s := range p {
		edges[i] = s.Edge
	}
	return edges
}

func (p Path) Target() int64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1].SerNo
}

func (p Path) spouseHops() int {
	n := 0
	for _, s := range p {
		if s.Edge == EdgeSpouse {
			n++
		}
	}
	return n
}

func (p Path) onlyParents() bool {
	for _, s := range p {
		if s.Edge != EdgeParent {
			return false
		}
	}
	return len(p) > 0
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = fmt.Sprintf("%s(%d)", s.Edge, s.SerNo)
	}
	return strings.Join(parts, ".")
}

// ShapeKey is the canonical, name independent descriptor of a path, the
// primitive edges joined by dots in traversal order.
type ShapeKey string

const (
	ShapeParent              ShapeKey = "PARENT"
	ShapeChild               ShapeKey = "CHILD"
	ShapeSibling             ShapeKey = "SIBLING"
	ShapeSpouse              ShapeKey = "SPOUSE"
	ShapeGrandparent         ShapeKey = "PARENT.PARENT"
	ShapeGreatGrandparent    ShapeKey = "PARENT.PARENT.PARENT"
	ShapeGrandchild          ShapeKey = "CHILD.CHILD"
	ShapeGreatGrandchild     ShapeKey = "CHILD.CHILD.CHILD"
	ShapeParentSibling       ShapeKey = "PARENT.SIBLING"
	ShapeParentSiblingSpouse ShapeKey = "PARENT.SIBLING.SPOUSE"
	ShapeCousin              ShapeKey = "PARENT.SIBLING.CHILD"
	ShapeGrandparentSibling  ShapeKey = "PARENT.PARENT.SIBLING"
	ShapeSiblingChild        ShapeKey = "SIBLING.CHILD"
	ShapeSiblingSpouse       ShapeKey = "SIBLING.SPOUSE"
	ShapeChildSpouse         ShapeKey = "CHILD.SPOUSE"
	ShapeParentSpouse        ShapeKey = "PARENT.SPOUSE"
	ShapeStepSibling         ShapeKey = "PARENT.SPOUSE.CHILD"
	ShapeSpouseParent        ShapeKey = "SPOUSE.PARENT"
	ShapeSpouseSibling       ShapeKey = "SPOUSE.SIBLING"
	ShapeSpouseChild         ShapeKey = "SPOUSE.CHILD"
	ShapeSpouseSiblingSpouse ShapeKey = "SPOUSE.SIBLING.SPOUSE"
	ShapeChildSpouseParent   ShapeKey = "CHILD.SPOUSE.PARENT"
)

// NamedShapes lists every shape the engine knows a name for. The default
// rule table is expected to label each of them.
var NamedShapes = []ShapeKey{
	ShapeParent, ShapeChild, ShapeSibling, ShapeSpouse,
	ShapeGrandparent, ShapeGreatGrandparent, ShapeGrandchild, ShapeGreatGrandchild,
	ShapeParentSibling, ShapeParentSiblingSpouse, ShapeCousin, ShapeGrandparentSibling,
	ShapeSiblingChild, ShapeSiblingSpouse, ShapeChildSpouse, ShapeParentSpouse, ShapeStepSibling,
	ShapeSpouseParent, ShapeSpouseSibling, ShapeSpouseChild, ShapeSpouseSiblingSpouse,
	ShapeChildSpouseParent,
}

func NewShapeKey(edges []Edge) ShapeKey {
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = e.String()
	}
	return ShapeKey(strings.Join(parts, "."))
}

// Edges parses the key back into primitive edges.
func (k ShapeKey) Edges() ([]Edge, error) {
	if k == "" {
		return nil, fmt.Errorf("empty shape key")
	}
	parts := strings.Split(strings.ToUpper(string(k)), ".")
	edges := make([]Edge, 0, len(parts))
	for _, part := range parts {
		e, err := parseEdge(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", k, err)
		}
		edges = append(edges, e)
	}
	return edges, nil
}
