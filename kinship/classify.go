package kinship

import (
	"fmt"
	"strings"
)

// Kind separates blood relations from relations created by marriage.
type Kind uint8

const (
	KindBlood Kind = iota
	// KindMarital is a spouse, or a relative's spouse: the only SPOUSE hop is the last one.
	KindMarital
	// KindAffinal is an in-law: a SPOUSE hop occurs before the final hop.
	KindAffinal
)

func (k Kind) String() string {
	switch k {
	case KindMarital:
		return "marital"
	case KindAffinal:
		return "affinal"
	default:
		return "blood"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "blood":
		*k = KindBlood
	case "marital":
		*k = KindMarital
	case "affinal":
		*k = KindAffinal
	default:
		return fmt.Errorf("unknown relation kind %q", text)
	}
	return nil
}

// Classification is the canonical form of a path.
type Classification struct {
	Shape ShapeKey
	// Via holds the gender of every intermediate member, source and target
	// excluded, in traversal order.
	Via        []Gender
	Generation int
	Kind       Kind
	Path       Path
}

func (c Classification) ViaKey() string {
	codes := make([]string, len(c.Via))
	for i, g := range c.Via {
		codes[i] = g.Code()
	}
	return strings.Join(codes, ".")
}

// Normalize rewrites a raw path into canonical form until no rule applies:
//
//	PARENT p, CHILD c    -> SIBLING c   (or nothing when c is where we came from)
//	X a, reverse(X) b    -> nothing     when b is where we came from
//
// Paths that reach the same member through different search orders thus end
// up with the same shape. An empty result means the walk returned to source.
// Sibling chains are left alone: siblings share only one parent, so a
// sibling's parent, sibling or a child's sibling may be no relative at all.
func Normalize(source int64, raw Path) Path {
	p := make(Path, len(raw))
	copy(p, raw)
	for changed := true; changed; {
		changed = false
		for i := 0; i+1 < len(p); i++ {
			a, b := p[i], p[i+1]
			prev := source
			if i > 0 {
				prev = p[i-1].SerNo
			}
			var repl []Step
			switch {
			case b.Edge == a.Edge.Reverse() && b.SerNo == prev:
				repl = []Step{}
			case a.Edge == EdgeParent && b.Edge == EdgeChild:
				repl = []Step{{Edge: EdgeSibling, SerNo: b.SerNo}}
			default:
				continue
			}
			out := make(Path, 0, len(p)-2+len(repl))
			out = append(out, p[:i]...)
			out = append(out, repl...)
			out = append(out, p[i+2:]...)
			p = out
			changed = true
			break
		}
	}
	return p
}

// Classify normalizes raw and reduces it to a shape key, the genders of the
// members passed through and a signed generation delta.
func Classify(g *Graph, source int64, raw Path) Classification {
	p := Normalize(source, raw)
	c := Classification{
		Shape: NewShapeKey(p.Edges()),
		Path:  p,
	}
	spouseAt := -1
	for i, s := range p {
		c.Generation += s.Edge.generation()
		if i < len(p)-1 {
			c.Via = append(c.Via, g.gender(s.SerNo))
		}
		if s.Edge == EdgeSpouse && spouseAt < 0 {
			spouseAt = i
		}
	}
	switch {
	case spouseAt < 0:
		c.Kind = KindBlood
	case spouseAt == len(p)-1:
		c.Kind = KindMarital
	default:
		c.Kind = KindAffinal
	}
	return c
}
