package complaints

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/neighborhoods", NeighborhoodListHandler)
	r.Post("/neighborhoods", CreateNeighborhoodHandler)
	r.Get("/neighborhoods/stats", NeighborhoodStatsHandler)
	r.Get("/neighborhoods/{id}/crime-types", CrimeTypeHandler)
	r.Get("/complaints", ComplaintListHandler)
	r.Post("/complaints", CreateComplaintHandler)

	return r
}
