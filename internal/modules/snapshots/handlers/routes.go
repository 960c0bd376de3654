package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers snapshot store routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleRecord)
		r.Get("/export", h.HandleExport)
		r.Post("/import", h.HandleImport)
		r.Delete("/{account_id}/{date}", h.HandleDelete)
	})
}
