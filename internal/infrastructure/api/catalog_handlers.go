package api

import (
	"net/http"
	"strings"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
	"vesteja/internal/infrastructure/repositories"
)

// CatalogHandler serves the garment catalog loaded at startup.
type CatalogHandler struct {
	catalog *entities.Catalog
}

func NewCatalogHandler(catalog *entities.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// HandleClothes serves the whole catalog in the clothes.json layout.
func (h *CatalogHandler) HandleClothes(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	respondJSON(w, http.StatusOK, repositories.CatalogEntries(h.catalog.All()))
}

// HandleQuery filters by ?gender= and ?category=; either may be omitted.
func (h *CatalogHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var gender valueobjects.Gender
	if raw := strings.TrimSpace(q.Get("gender")); raw != "" {
		g, err := valueobjects.ParseGender(strings.ToLower(raw))
		if err != nil {
			sendError(w, err.Error(), http.StatusBadRequest)
			return
		}
		gender = g
	}
	category := strings.TrimSpace(q.Get("category"))

	var out []*entities.Garment
	for _, g := range h.catalog.All() {
		if gender != "" && !g.FitsGender(gender) {
			continue
		}
		if category != "" && g.Category() != category {
			continue
		}
		out = append(out, g)
	}

	respondJSON(w, http.StatusOK, repositories.CatalogEntries(out))
}
