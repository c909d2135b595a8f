package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handlers groups everything mounted under /api.
type Handlers struct {
	Relations *RelationsHandler
	Members   *MemberHandler
	Rules     *RulesHandler
	Tree      *TreeHandler
	// WS serves the realtime websocket, optional
	WS http.HandlerFunc
	// Timeout bounds every /api/family request; the websocket is exempt
	Timeout time.Duration
}

// Mount registers the API routes on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/family", func(r chi.Router) {
			if h.Timeout > 0 {
				r.Use(middleware.Timeout(h.Timeout))
			}
			r.Get("/dynamic-relations/{serNo}", h.Relations.GetDynamicRelations)
			r.Get("/relationship/{from}/{to}", h.Relations.GetRelationship)
			r.Post("/generate-relations", h.Relations.GenerateRelations)
			r.Get("/all-relationships", h.Relations.ListAllRelationships)
			r.Get("/relationship-types", h.Relations.ListRelationshipTypes)

			r.Route("/members", func(r chi.Router) {
				r.Get("/", h.Members.ListMembers)
				r.Post("/", h.Members.CreateMember)
				r.Route("/{serNo}", func(r chi.Router) {
					r.Get("/", h.Members.GetMember)
					r.Put("/", h.Members.UpdateMember)
					r.Delete("/", h.Members.DeleteMember)
					r.Get("/children", h.Tree.GetChildren)
					r.Get("/parents", h.Tree.GetParents)
				})
			})

			r.Get("/tree/{serNo}", h.Tree.GetTree)
			r.Get("/members-by-level", h.Tree.MembersByLevel)
			r.Get("/complete-tree", h.Tree.CompleteTree)
			r.Get("/search", h.Tree.SearchMembers)

			r.Route("/relation-rules", func(r chi.Router) {
				r.Get("/", h.Rules.ListRules)
				r.Put("/", h.Rules.ReplaceRules)
			})
		})

		if h.WS != nil {
			r.Get("/ws", h.WS)
		}
	})
}
