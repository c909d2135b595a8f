package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/vanshavalibackend/database"
	"github.com/camden-git/vanshavalibackend/kinship"
	"github.com/camden-git/vanshavalibackend/realtime"
	"github.com/camden-git/vanshavalibackend/services"
	"github.com/camden-git/vanshavalibackend/workers"
)

type RelationsHandler struct {
	Service   *services.RelationService
	Generator *workers.RelationGenerator
	DB        *sql.DB
}

// GetDynamicRelations handles GET /api/family/dynamic-relations/{serNo}
func (rh *RelationsHandler) GetDynamicRelations(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "serNo")
	relations, err := rh.Service.ComputeRelations(r.Context(), raw)
	if err != nil {
		writeServiceError(w, "compute relations", err)
		return
	}
	if relations == nil {
		relations = []kinship.ComputedRelation{}
	}
	writeJSON(w, http.StatusOK, relations)
}

// GetRelationship handles GET /api/family/relationship/{from}/{to}
func (rh *RelationsHandler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	rel, err := rh.Service.Relationship(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		writeServiceError(w, "compute relationship", err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

type generateResponse struct {
	Message        string                `json:"message"`
	Mode           string                `json:"mode"`
	RunID          string                `json:"runId"`
	TotalGenerated int                   `json:"totalGenerated"`
	Details        []workers.MemberCount `json:"details"`
	Failed         []int64               `json:"failed,omitempty"`
	Stale          []int64               `json:"stale,omitempty"`
}

// GenerateRelations handles POST /api/family/generate-relations[?serNo=N].
// Without serNo every member is materialized.
func (rh *RelationsHandler) GenerateRelations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	all, err := rh.Service.SerNos(ctx)
	if err != nil {
		writeServiceError(w, "load members", err)
		return
	}

	mode := "all"
	targets := all
	if q := r.URL.Query(); q.Has("serNo") {
		serNo, err := kinship.ParseSerNo(q.Get("serNo"))
		if err != nil {
			writeServiceError(w, "generate relations", err)
			return
		}
		mode = "single"
		targets = nil
		for _, id := range all {
			if id == serNo {
				targets = []int64{serNo}
				break
			}
		}
		if targets == nil {
			writeServiceError(w, "generate relations", &kinship.NotFoundError{SerNo: serNo})
			return
		}
	}
	if len(targets) == 0 {
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, "no members found")
		return
	}

	summary, err := rh.Generator.GenerateAll(ctx, targets)
	if err != nil {
		writeServiceError(w, "generate relations", err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Message:        fmt.Sprintf("generated %d relationship(s) for %d member(s)", summary.TotalGenerated, len(summary.Details)),
		Mode:           mode,
		RunID:          summary.RunID,
		TotalGenerated: summary.TotalGenerated,
		Details:        summary.Details,
		Failed:         summary.Failed,
		Stale:          summary.Stale,
	})
}

// ListAllRelationships handles GET /api/family/all-relationships[?serNo=N]
func (rh *RelationsHandler) ListAllRelationships(w http.ResponseWriter, r *http.Request) {
	var from int64
	if raw := r.URL.Query().Get("serNo"); raw != "" {
		serNo, err := kinship.ParseSerNo(raw)
		if err != nil {
			writeServiceError(w, "list relationships", err)
			return
		}
		from = serNo
	}
	rows, err := database.ListRelationships(rh.DB, from)
	if err != nil {
		writeServiceError(w, "list relationships", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListRelationshipTypes handles GET /api/family/relationship-types
func (rh *RelationsHandler) ListRelationshipTypes(w http.ResponseWriter, r *http.Request) {
	types, err := database.ListRelationshipTypes(rh.DB)
	if err != nil {
		writeServiceError(w, "list relationship types", err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

// invalidateRelations drops every derived copy of the graph after a write:
// the service snapshot and the materialized rows.
func invalidateRelations(svc *services.RelationService, db *sql.DB, hub realtime.Broadcaster, event realtime.Event) {
	if svc != nil {
		svc.Invalidate()
	}
	if db != nil {
		n, err := database.DeleteAllRelationships(db)
		if err != nil {
			log.Printf("ERROR clearing materialized relationships: %v", err)
		} else if n > 0 {
			log.Printf("cleared %d materialized relationship(s) after %s", n, event.Type)
		}
	}
	if hub != nil {
		hub.Broadcast(event)
		hub.Broadcast(realtime.Event{Type: realtime.EventRelationsInvalidated, SerNo: event.SerNo})
	}
}
