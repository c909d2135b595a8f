package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/models"
	"github.com/camden-git/vanshavalibackend/realtime"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/services"
	"github.com/camden-git/vanshavalibackend/workers"
)

type recordingHub struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHub) Broadcast(e realtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e.Type)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

type testServer struct {
	router  chi.Router
	members *repository.MemberRepository
	hub     *recordingHub
}

func ptr(v int64) *int64 { return &v }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "family.db")

	gdb, err := database.InitGormDB(path, "silent")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(gdb))
	sqlDB, err := database.InitDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	memberRepo := repository.NewMemberRepository(gdb)
	ruleRepo := repository.NewRelationRuleRepository(gdb)
	svc := services.NewRelationService(memberRepo, ruleRepo, nil, 0)
	hub := &recordingHub{}
	gen := workers.NewRelationGenerator(svc, sqlDB, hub, 10, 2)
	t.Cleanup(gen.Stop)

	for _, m := range []models.Member{
		{SerNo: 1, FirstName: "Ramchandra", LastName: "Deshmukh", Gender: "Male"},
		{SerNo: 3, FirstName: "Vishnu", LastName: "Deshmukh", Gender: "Male", FatherSerNo: ptr(1)},
		{SerNo: 5, FirstName: "Kamala", LastName: "Deshmukh", Gender: "Female", FatherSerNo: ptr(1)},
		{SerNo: 7, FirstName: "Arjun", LastName: "Deshmukh", Gender: "Male", FatherSerNo: ptr(3)},
	} {
		m := m
		require.NoError(t, memberRepo.Create(&m))
	}

	h := &Handlers{
		Relations: &RelationsHandler{Service: svc, Generator: gen, DB: sqlDB},
		Members:   &MemberHandler{Members: memberRepo, Service: svc, DB: sqlDB, Hub: hub},
		Rules:     &RulesHandler{Rules: ruleRepo, Service: svc, DB: sqlDB, Hub: hub},
		Tree:      &TreeHandler{Members: memberRepo, Service: svc, DB: sqlDB},
	}
	r := chi.NewRouter()
	h.Mount(r)
	return &testServer{router: r, members: memberRepo, hub: hub}
}

func (s *testServer) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIErrorDetail {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	return resp.Errors[0]
}

func TestGetDynamicRelations(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/dynamic-relations/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rels []struct {
		RelationEnglish string            `json:"relationEnglish"`
		RelationMarathi *string           `json:"relationMarathi"`
		Related         kinship.MemberRef `json:"related"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rels))
	require.Len(t, rels, 3)
	assert.Equal(t, "Father", rels[0].RelationEnglish)
	assert.Equal(t, int64(1), rels[0].Related.SerNo)
	assert.Equal(t, "Ramchandra", rels[0].Related.FirstName)
	assert.Nil(t, rels[0].Related.MiddleName)
	assert.Equal(t, "Sister", rels[1].RelationEnglish)
	assert.Equal(t, "Son", rels[2].RelationEnglish)
}

func TestGetDynamicRelations_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		status int
		code   string
	}{
		{"/api/family/dynamic-relations/abc", http.StatusBadRequest, CodeInvalidInput},
		{"/api/family/dynamic-relations/0", http.StatusBadRequest, CodeInvalidInput},
		{"/api/family/dynamic-relations/-4", http.StatusBadRequest, CodeInvalidInput},
		{"/api/family/dynamic-relations/999999", http.StatusNotFound, CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestGetRelationship(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/relationship/7/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rel kinship.ComputedRelation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rel))
	assert.Equal(t, "Aunt (Father’s sister)", rel.RelationEnglish)
	assert.Equal(t, kinship.ShapeParentSibling, rel.ShapeKey)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/relationship/7/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/family/relationship/7/70", nil).Code)
}

func TestGenerateRelations(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/family/generate-relations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp generateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "all", resp.Mode)
	assert.NotEmpty(t, resp.RunID)
	require.Len(t, resp.Details, 4)
	// 1: two children, one grandchild; 3: father, sister, son; 5: father, brother, nephew; 7: father, grandfather, aunt
	assert.Equal(t, 12, resp.TotalGenerated)

	rec = s.do(t, http.MethodGet, "/api/family/all-relationships?serNo=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []database.Relationship
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, resp.RunID, rows[0].RunID)

	rec = s.do(t, http.MethodGet, "/api/family/relationship-types", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var types []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &types))
	assert.Contains(t, types, "Grandson")
	assert.Contains(t, types, "Nephew (Brother’s son)")

	rec = s.do(t, http.MethodPost, "/api/family/generate-relations?serNo=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "single", resp.Mode)
	assert.Equal(t, 3, resp.TotalGenerated)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/family/generate-relations?serNo=99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/family/generate-relations?serNo=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/family/generate-relations?serNo=", nil).Code)
}

func TestMemberMutationInvalidates(t *testing.T) {
	s := newTestServer(t)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/family/generate-relations", nil).Code)

	rec := s.do(t, http.MethodPost, "/api/family/members", map[string]interface{}{
		"serNo": 9, "firstName": "Priya", "lastName": "Deshmukh", "gender": "Female", "fatherSerNo": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, s.hub.types(), realtime.EventMemberCreated)

	rec = s.do(t, http.MethodGet, "/api/family/all-relationships", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "materialized rows are dropped on write")

	rec = s.do(t, http.MethodGet, "/api/family/dynamic-relations/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Priya")

	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/family/members", map[string]interface{}{
		"serNo": 9, "firstName": "Again", "lastName": "Deshmukh",
	}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/family/members", map[string]interface{}{
		"serNo": 10, "lastName": "Deshmukh",
	}).Code)
}

func TestMemberCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/members?sort=name_asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []models.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 4)
	assert.Equal(t, "Arjun", members[0].FirstName)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/members?sort=date_desc", nil).Code)

	rec = s.do(t, http.MethodPut, "/api/family/members/5", map[string]interface{}{
		"firstName": "Kamalabai", "lastName": "Deshmukh", "gender": "Female", "fatherSerNo": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/family/members/5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var m models.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "Kamalabai", m.FirstName)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/api/family/members/55", map[string]interface{}{
		"firstName": "Nobody", "lastName": "Deshmukh",
	}).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/family/members/5", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/family/members/5", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/family/members/5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/members/abc", nil).Code)

	rec = s.do(t, http.MethodGet, "/api/family/dynamic-relations/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Kamala")
}

func TestRelationRules(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/relation-rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed rulesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, "default", listed.Source)
	assert.NotEmpty(t, listed.Rules)

	rec = s.do(t, http.MethodPut, "/api/family/relation-rules", []kinship.Rule{
		{ShapeKey: "PARENT.SIBLING", LabelEnglish: ""},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/family/relation-rules", []kinship.Rule{
		{ShapeKey: kinship.ShapeParent, TargetGender: "M", LabelEnglish: "Baba", LabelMarathi: "बाबा"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, s.hub.types(), realtime.EventRulesReplaced)

	rec = s.do(t, http.MethodGet, "/api/family/relationship/3/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"relationEnglish":"Baba"`)

	rec = s.do(t, http.MethodGet, "/api/family/relation-rules", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, "store", listed.Source)
	require.Len(t, listed.Rules, 1)
}

func TestCreateMemberKeepsIsAliveFalse(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/family/members", map[string]interface{}{
		"serNo": 40, "firstName": "Gopal", "lastName": "Deshmukh", "gender": "Male", "isAlive": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.IsAlive)

	rec = s.do(t, http.MethodGet, "/api/family/members/40", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, false, got["isAlive"])

	// a missing isAlive still means alive
	rec = s.do(t, http.MethodPost, "/api/family/members", map[string]interface{}{
		"serNo": 41, "firstName": "Sita", "lastName": "Deshmukh", "gender": "Female",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	stored, err := s.members.GetBySerNo(41)
	require.NoError(t, err)
	assert.True(t, stored.IsAlive)
}

func TestFamilyTree(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/tree/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tree kinship.TreeNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	assert.Equal(t, int64(1), tree.SerNo)
	assert.Equal(t, kinship.GenderMale, tree.Gender)
	require.Len(t, tree.Children, 2)
	assert.Equal(t, int64(3), tree.Children[0].SerNo)
	assert.Equal(t, int64(5), tree.Children[1].SerNo)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, "Arjun", tree.Children[0].Children[0].FirstName)

	rec = s.do(t, http.MethodGet, "/api/family/tree/1?depth=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	assert.True(t, tree.Children[0].Truncated)
	assert.Empty(t, tree.Children[0].Children)

	tests := []struct {
		target string
		status int
	}{
		{"/api/family/tree/abc", http.StatusBadRequest},
		{"/api/family/tree/99", http.StatusNotFound},
		{"/api/family/tree/1?depth=0", http.StatusBadRequest},
		{"/api/family/tree/1?depth=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.status, s.do(t, http.MethodGet, tt.target, nil).Code)
		})
	}
}

func TestFamilyTree_Cycle(t *testing.T) {
	s := newTestServer(t)

	// Ramchandra becomes his grandson's son
	rec := s.do(t, http.MethodPut, "/api/family/members/1", map[string]interface{}{
		"firstName": "Ramchandra", "lastName": "Deshmukh", "gender": "Male", "fatherSerNo": 7,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/family/tree/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tree kinship.TreeNode
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
	arjun := tree.Children[0].Children[0]
	assert.Equal(t, int64(7), arjun.SerNo)
	assert.Empty(t, arjun.Children, "the loop back to the root is cut")
}

func TestChildrenAndParentsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/members/1/children", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var children []kinship.MemberRef
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &children))
	require.Len(t, children, 2)
	assert.Equal(t, "Vishnu", children[0].FirstName)

	rec = s.do(t, http.MethodGet, "/api/family/members/7/children", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/family/members/7/parents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var parents kinship.ParentSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parents))
	require.NotNil(t, parents.Father)
	assert.Equal(t, int64(3), parents.Father.SerNo)
	assert.Nil(t, parents.Mother)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/family/members/99/parents", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/members/0/children", nil).Code)
}

func TestMembersByLevelAndCompleteTree(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/family/members/1", map[string]interface{}{
		"firstName": "Ramchandra", "lastName": "Deshmukh", "gender": "Male", "level": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/family/members-by-level?level=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []models.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	require.Len(t, members, 1)
	assert.Equal(t, int64(1), members[0].SerNo)

	rec = s.do(t, http.MethodGet, "/api/family/members-by-level", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 4)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/members-by-level?level=-1", nil).Code)

	rec = s.do(t, http.MethodGet, "/api/family/complete-tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var complete struct {
		TotalMembers        int                        `json:"totalMembers"`
		TotalRelationships  int64                      `json:"totalRelationships"`
		Levels              []int                      `json:"levels"`
		MembersByLevel      map[string][]models.Member `json:"membersByLevel"`
		MembersWithChildren []struct {
			SerNo      int64               `json:"serNo"`
			Children   []kinship.MemberRef `json:"children"`
			ChildCount int                 `json:"childCount"`
		} `json:"membersWithChildren"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &complete))
	assert.Equal(t, 4, complete.TotalMembers)
	assert.Zero(t, complete.TotalRelationships)
	assert.Equal(t, []int{0, 1}, complete.Levels)
	assert.Len(t, complete.MembersByLevel["0"], 3)
	require.Len(t, complete.MembersWithChildren, 4)
	// level 0 first: 3, 5, 7, then the root
	assert.Equal(t, int64(3), complete.MembersWithChildren[0].SerNo)
	assert.Equal(t, 1, complete.MembersWithChildren[0].ChildCount)
	root := complete.MembersWithChildren[3]
	assert.Equal(t, int64(1), root.SerNo)
	assert.Equal(t, 2, root.ChildCount)
}

func TestSearchMembers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/family/search?query=vish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var found []kinship.MemberRef
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	require.Len(t, found, 1)
	assert.Equal(t, int64(3), found[0].SerNo)

	rec = s.do(t, http.MethodGet, "/api/family/search?query=deshmukh&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &found))
	assert.Len(t, found, 2)

	rec = s.do(t, http.MethodGet, "/api/family/search?query=+", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/family/search?query=a&limit=500", nil).Code)
}
