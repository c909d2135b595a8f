package handlers

import (
	"database/sql"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/models"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/services"
)

const (
	maxTreeDepth       = 50
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// TreeHandler serves the family tree views built on the member graph.
type TreeHandler struct {
	Members repository.MemberRepositoryInterface
	Service *services.RelationService
	DB      *sql.DB
}

// GetTree handles GET /api/family/tree/{serNo}?depth=N
func (th *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	depth, ok := intQuery(w, r, "depth", 0, 1, maxTreeDepth)
	if !ok {
		return
	}
	tree, err := th.Service.Tree(r.Context(), chi.URLParam(r, "serNo"), depth)
	if err != nil {
		writeServiceError(w, "build family tree", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// GetChildren handles GET /api/family/members/{serNo}/children
func (th *TreeHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	children, err := th.Service.Children(r.Context(), chi.URLParam(r, "serNo"))
	if err != nil {
		writeServiceError(w, "list children", err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}

// GetParents handles GET /api/family/members/{serNo}/parents
func (th *TreeHandler) GetParents(w http.ResponseWriter, r *http.Request) {
	parents, err := th.Service.Parents(r.Context(), chi.URLParam(r, "serNo"))
	if err != nil {
		writeServiceError(w, "list parents", err)
		return
	}
	writeJSON(w, http.StatusOK, parents)
}

// MembersByLevel handles GET /api/family/members-by-level[?level=N]. Without
// a level every member is returned.
func (th *TreeHandler) MembersByLevel(w http.ResponseWriter, r *http.Request) {
	var (
		members []models.Member
		err     error
	)
	if r.URL.Query().Has("level") {
		level, convErr := strconv.Atoi(r.URL.Query().Get("level"))
		if convErr != nil || level < 0 {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "level must be a non-negative integer")
			return
		}
		members, err = th.Members.ListByLevel(level)
	} else {
		members, err = th.Members.ListAll()
	}
	if err != nil {
		writeServiceError(w, "list members by level", err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

type memberWithChildren struct {
	models.Member
	Children   []kinship.MemberRef `json:"children"`
	ChildCount int                 `json:"childCount"`
}

type completeTreeResponse struct {
	TotalMembers        int                     `json:"totalMembers"`
	TotalRelationships  int64                   `json:"totalRelationships"`
	Levels              []int                   `json:"levels"`
	MembersByLevel      map[int][]models.Member `json:"membersByLevel"`
	MembersWithChildren []memberWithChildren    `json:"membersWithChildren"`
}

// CompleteTree handles GET /api/family/complete-tree: every member grouped
// by level, each with its reconciled children.
func (th *TreeHandler) CompleteTree(w http.ResponseWriter, r *http.Request) {
	members, err := th.Members.ListAll()
	if err != nil {
		writeServiceError(w, "list members", err)
		return
	}
	graph, err := th.Service.Graph(r.Context())
	if err != nil {
		writeServiceError(w, "load member graph", err)
		return
	}
	total, err := database.CountRelationships(th.DB)
	if err != nil {
		writeServiceError(w, "count relationships", err)
		return
	}

	sort.SliceStable(members, func(i, j int) bool {
		if members[i].Level != members[j].Level {
			return members[i].Level < members[j].Level
		}
		return members[i].SerNo < members[j].SerNo
	})

	resp := completeTreeResponse{
		TotalMembers:        len(members),
		TotalRelationships:  total,
		Levels:              []int{},
		MembersByLevel:      make(map[int][]models.Member),
		MembersWithChildren: make([]memberWithChildren, 0, len(members)),
	}
	for _, m := range members {
		if _, seen := resp.MembersByLevel[m.Level]; !seen {
			resp.Levels = append(resp.Levels, m.Level)
		}
		resp.MembersByLevel[m.Level] = append(resp.MembersByLevel[m.Level], m)

		children := graph.Refs(graph.Children(m.SerNo))
		resp.MembersWithChildren = append(resp.MembersWithChildren, memberWithChildren{
			Member:     m,
			Children:   children,
			ChildCount: len(children),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// SearchMembers handles GET /api/family/search?query=...&limit=N
func (th *TreeHandler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit", defaultSearchLimit, 1, maxSearchLimit)
	if !ok {
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeJSON(w, http.StatusOK, []kinship.MemberRef{})
		return
	}

	members, err := th.Members.Search(query, limit)
	if err != nil {
		writeServiceError(w, "search members", err)
		return
	}
	out := make([]kinship.MemberRef, len(members))
	for i := range members {
		km := members[i].ToKinship()
		out[i] = km.Ref()
	}
	writeJSON(w, http.StatusOK, out)
}

// intQuery reads an optional integer query parameter within [lo, hi],
// writing a 400 and returning false when it is malformed.
func intQuery(w http.ResponseWriter, r *http.Request, key string, def, lo, hi int) (int, bool) {
	q := r.URL.Query()
	if !q.Has(key) {
		return def, true
	}
	n, err := strconv.Atoi(q.Get(key))
	if err != nil || n < lo || n > hi {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput,
			key+" must be an integer between "+strconv.Itoa(lo)+" and "+strconv.Itoa(hi))
		return 0, false
	}
	return n, true
}
