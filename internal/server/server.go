package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/termacl/termacl/internal/core"
)

// Run starts the administration API server
func Run(ctx context.Context, c *core.Core, addr string) error {
	if c == nil {
		return core.ErrNilCore
	}

	r := chi.NewRouter()

	//---------------------------------------------------------------------------
	// API ROUTING (V1)
	//---------------------------------------------------------------------------
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/term/{id}/permissions", func(r chi.Router) {
			r.Method(http.MethodGet, "/", NewEndpoint(ctx, c, GetTermPermissions, "get_term_permissions"))
			r.Method(http.MethodPut, "/", NewEndpoint(ctx, c, PutTermPermissions, "put_term_permissions"))
		})

		r.Method(http.MethodGet, "/access/{item}", NewEndpoint(ctx, c, GetAccessCheck, "get_access_check"))
		r.Method(http.MethodPost, "/rebuild", NewEndpoint(ctx, c, PostRebuild, "post_rebuild"))
	})

	return http.ListenAndServe(addr, r)
}
