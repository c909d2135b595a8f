package kinship

// continuations lists the edges that may follow the previous hop. Walks that
// can only lead back to an already covered shape (a parent's child is a
// sibling, a child's parent is self or a spouse, ...) are not expanded.
var continuations = map[Edge][]Edge{
	EdgeParent:  {EdgeParent, EdgeSibling, EdgeSpouse},
	EdgeChild:   {EdgeChild, EdgeSpouse},
	EdgeSibling: {EdgeChild, EdgeSpouse},
	EdgeSpouse:  {EdgeParent, EdgeChild, EdgeSibling},
}

var firstHops = []Edge{EdgeParent, EdgeChild, EdgeSibling, EdgeSpouse}

type walk struct {
	serNo  int64
	path   Path
	blood  int
	spouse int
}

type visitKey struct {
	serNo  int64
	depth  int
	spouse int
	last   Edge
}

// enumerate walks breadth first from source and keeps the best path to every
// reachable member. The walk is bounded by the hop limits and by visited
// (serNo, depth) states, so cyclic data always terminates.
func (e *Engine) enumerate(g *Graph, source int64) (map[int64]Path, []error) {
	best := make(map[int64]Path)
	visited := make(map[visitKey]bool)
	var anomalies []error
	cycleReported := false

	frontier := []walk{{serNo: source}}
	for len(frontier) > 0 {
		var next []walk
		for _, w := range frontier {
			edges := firstHops
			if len(w.path) > 0 {
				edges = continuations[w.path[len(w.path)-1].Edge]
			}
			for _, edge := range edges {
				blood, spouse := w.blood, w.spouse
				if edge == EdgeSpouse {
					spouse++
				} else {
					blood++
				}
				if blood > e.opts.MaxBloodHops || spouse > e.opts.MaxSpouseHops {
					continue
				}
				for _, nb := range g.neighbors(w.serNo, edge) {
					path := w.path.extend(edge, nb)
					if nb == source {
						if !cycleReported && path.onlyParents() {
							anomalies = append(anomalies, &InconsistentGraphError{
								SerNo:  source,
								Ref:    w.serNo,
								Reason: "member is its own ancestor via " + path.String(),
							})
							cycleReported = true
						}
						continue
					}
					if cur, ok := best[nb]; !ok || betterPath(path, cur) {
						best[nb] = path
					}
					key := visitKey{serNo: nb, depth: len(path), spouse: spouse, last: edge}
					if visited[key] {
						continue
					}
					visited[key] = true
					next = append(next, walk{serNo: nb, path: path, blood: blood, spouse: spouse})
				}
			}
		}
		frontier = next
	}
	return best, anomalies
}

// betterPath orders candidate paths to the same member. Direct links win,
// then blood over marriage, then shorter walks; the rest is a stable
// lexical tie break so results never depend on map order.
func betterPath(a, b Path) bool {
	if ad, bd := len(a) == 1, len(b) == 1; ad != bd {
		return ad
	}
	if sa, sb := a.spouseHops(), b.spouseHops(); sa != sb {
		return sa < sb
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i].Edge != b[i].Edge {
			return a[i].Edge < b[i].Edge
		}
	}
	for i := range a {
		if a[i].SerNo != b[i].SerNo {
			return a[i].SerNo < b[i].SerNo
		}
	}
	return false
}
