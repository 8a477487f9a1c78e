package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"vesteja/internal/domain/entities"
	"vesteja/model"
)

// JSONCatalogRepository reads the garment catalog from a clothes.json file.
type JSONCatalogRepository struct {
	path string
}

func NewJSONCatalogRepository(path string) *JSONCatalogRepository {
	return &JSONCatalogRepository{path: path}
}

func (r *JSONCatalogRepository) Load(ctx context.Context) (*entities.Catalog, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", r.path, err)
	}
	catalog, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", r.path, err)
	}
	return catalog, nil
}

// ParseCatalog validates every entry; the first bad one fails the whole
// catalog.
func ParseCatalog(data []byte) (*entities.Catalog, error) {
	var entries []model.GarmentEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}

	garments := make([]*entities.Garment, 0, len(entries))
	for i, e := range entries {
		g, err := entities.NewGarment(e.ID, e.Name, e.Category, e.Gender, e.Description, e.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		garments = append(garments, g)
	}

	return entities.NewCatalog(garments)
}

// CatalogEntries converts garments back to their wire form.
func CatalogEntries(garments []*entities.Garment) []model.GarmentEntry {
	out := make([]model.GarmentEntry, 0, len(garments))
	for _, g := range garments {
		genders := make([]string, 0, len(g.Genders()))
		for _, gender := range g.Genders() {
			genders = append(genders, string(gender))
		}
		out = append(out, model.GarmentEntry{
			ID:          int(g.ID()),
			Name:        g.Name(),
			Category:    g.Category(),
			Gender:      genders,
			Description: g.Description(),
			ImageURL:    g.ImageURL(),
		})
	}
	return out
}
