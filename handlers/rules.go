package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"

	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/models"
	"github.com/camden-git/vanshavalibackend/realtime"
	"github.com/camden-git/vanshavalibackend/repository"
	"github.com/camden-git/vanshavalibackend/rules"
	"github.com/camden-git/vanshavalibackend/services"
)

type RulesHandler struct {
	Rules   repository.RelationRuleRepositoryInterface
	Service *services.RelationService
	DB      *sql.DB
	Hub     realtime.Broadcaster
}

type rulesResponse struct {
	Source string         `json:"source"` // "store" or "default"
	Rules  []kinship.Rule `json:"rules"`
}

// ListRules handles GET /api/family/relation-rules. An empty store reports
// the embedded table the engine falls back to.
func (rh *RulesHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	rows, err := rh.Rules.ListAll()
	if err != nil {
		writeServiceError(w, "list relation rules", err)
		return
	}
	if len(rows) == 0 {
		def, err := rules.Default()
		if err != nil {
			writeServiceError(w, "load default relation rules", err)
			return
		}
		writeJSON(w, http.StatusOK, rulesResponse{Source: "default", Rules: def})
		return
	}

	out := make([]kinship.Rule, len(rows))
	for i := range rows {
		out[i] = rows[i].ToKinship()
	}
	writeJSON(w, http.StatusOK, rulesResponse{Source: "store", Rules: out})
}

// ReplaceRules handles PUT /api/family/relation-rules with a JSON array of
// rules. The table is validated as a whole before anything is written.
func (rh *RulesHandler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	var in []kinship.Rule
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
		return
	}
	if len(in) == 0 {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, "rule table must not be empty")
		return
	}
	if _, err := kinship.NewRuleTable(in); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	rows := make([]models.RelationRule, len(in))
	for i, rule := range in {
		rows[i] = models.RelationRuleFromKinship(i, rule)
	}
	if err := rh.Rules.ReplaceAll(rows); err != nil {
		writeServiceError(w, "replace relation rules", err)
		return
	}
	log.Printf("replaced relation rule table with %d rule(s)", len(rows))
	invalidateRelations(rh.Service, rh.DB, rh.Hub, realtime.Event{
		Type:  realtime.EventRulesReplaced,
		Extra: map[string]interface{}{"rules": len(rows)},
	})

	writeJSON(w, http.StatusOK, rulesResponse{Source: "store", Rules: in})
}
