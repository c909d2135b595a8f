package kinship

import (
	"sort"
)

const (
	DefaultMaxBloodHops  = 4
	DefaultMaxSpouseHops = 2
)

// Options bound the walk. MaxBloodHops counts PARENT, CHILD and SIBLING hops;
// MaxSpouseHops counts SPOUSE hops, which are never taken twice in a row.
type Options struct {
	MaxBloodHops  int
	MaxSpouseHops int
}

func DefaultOptions() Options {
	return Options{MaxBloodHops: DefaultMaxBloodHops, MaxSpouseHops: DefaultMaxSpouseHops}
}

type Engine struct {
	opts Options
}

func NewEngine(opts Options) *Engine {
	if opts.MaxBloodHops < 1 {
		opts.MaxBloodHops = DefaultMaxBloodHops
	}
	if opts.MaxSpouseHops < 0 {
		opts.MaxSpouseHops = 0
	}
	return &Engine{opts: opts}
}

func (e *Engine) Options() Options { return e.opts }

// Result holds the computed relations and everything that was recovered
// along the way (*InconsistentGraphError, *RuleNotFoundError).
type Result struct {
	Source    MemberRef
	Relations []ComputedRelation
	Anomalies []error
}

// Compute derives every relation of serNo in g. A nil rules table labels
// everything with the generation fallback. The only error is *NotFoundError.
func (e *Engine) Compute(g *Graph, rules *RuleTable, serNo int64) (*Result, error) {
	src, ok := g.Member(serNo)
	if !ok {
		return nil, &NotFoundError{SerNo: serNo}
	}

	best, anomalies := e.enumerate(g, serNo)
	res := &Result{
		Source:    src.Ref(),
		Relations: make([]ComputedRelation, 0, len(best)),
		Anomalies: anomalies,
	}

	for target, path := range best {
		related, ok := g.Member(target)
		if !ok {
			continue
		}
		c := Classify(g, serNo, path)
		if len(c.Path) == 0 {
			res.Anomalies = append(res.Anomalies, &InconsistentGraphError{
				SerNo: serNo, Ref: target, Reason: "path " + path.String() + " collapses onto the member itself",
			})
			continue
		}
		label, err := rules.Resolve(c, src.Gender, related.Gender)
		if err != nil {
			res.Anomalies = append(res.Anomalies, err)
		}
		rel := ComputedRelation{
			RelationEnglish: label.English,
			Related:         related.Ref(),
			ShapeKey:        c.Shape,
			Generation:      c.Generation,
			Kind:            c.Kind,
		}
		if label.Marathi != "" {
			mr := label.Marathi
			rel.RelationMarathi = &mr
		}
		res.Relations = append(res.Relations, rel)
	}

	sort.Slice(res.Relations, func(i, j int) bool {
		a, b := res.Relations[i], res.Relations[j]
		if a.Generation != b.Generation {
			return a.Generation < b.Generation
		}
		return a.Related.SerNo < b.Related.SerNo
	})
	// anomalies came from map iteration; keep them stable too
	sort.SliceStable(res.Anomalies, func(i, j int) bool {
		return res.Anomalies[i].Error() < res.Anomalies[j].Error()
	})
	return res, nil
}

// Between returns the relation of source to target, or a *NotFoundError when
// either member is unknown or target is not reachable.
func (e *Engine) Between(g *Graph, rules *RuleTable, source, target int64) (*ComputedRelation, error) {
	if _, ok := g.Member(target); !ok {
		return nil, &NotFoundError{SerNo: target}
	}
	res, err := e.Compute(g, rules, source)
	if err != nil {
		return nil, err
	}
	for i := range res.Relations {
		if res.Relations[i].Related.SerNo == target {
			return &res.Relations[i], nil
		}
	}
	return nil, &NotFoundError{SerNo: target}
}
