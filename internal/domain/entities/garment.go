package entities

import (
	"fmt"
	"slices"
	"strings"

	"vesteja/internal/domain/valueobjects"
)

type GarmentID int

// Garment is one catalog entry. It is immutable once built.
type Garment struct {
	id          GarmentID
	name        string
	category    string
	genders     []valueobjects.Gender
	description string
	imageURL    string
}

func NewGarment(id int, name, category string, genders []string, description, imageURL string) (*Garment, error) {
	if id <= 0 {
		return nil, fmt.Errorf("garment id must be positive, got %d", id)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("garment %d: name is required", id)
	}
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("garment %d: category is required", id)
	}
	if strings.TrimSpace(imageURL) == "" {
		return nil, fmt.Errorf("garment %d: imageUrl is required", id)
	}
	if len(genders) == 0 {
		return nil, fmt.Errorf("garment %d: at least one gender is required", id)
	}

	parsed := make([]valueobjects.Gender, 0, len(genders))
	for _, g := range genders {
		gender, err := valueobjects.ParseGender(g)
		if err != nil {
			return nil, fmt.Errorf("garment %d: %w", id, err)
		}
		if !slices.Contains(parsed, gender) {
			parsed = append(parsed, gender)
		}
	}

	return &Garment{
		id:          GarmentID(id),
		name:        name,
		category:    category,
		genders:     parsed,
		description: description,
		imageURL:    imageURL,
	}, nil
}

func (g *Garment) ID() GarmentID {
	return g.id
}

func (g *Garment) Name() string {
	return g.name
}

func (g *Garment) Category() string {
	return g.category
}

func (g *Garment) Genders() []valueobjects.Gender {
	return slices.Clone(g.genders)
}

func (g *Garment) Description() string {
	return g.description
}

func (g *Garment) ImageURL() string {
	return g.imageURL
}

func (g *Garment) FitsGender(gender valueobjects.Gender) bool {
	return slices.Contains(g.genders, gender)
}

func (g *Garment) Matches(gender valueobjects.Gender, category string) bool {
	return g.category == category && g.FitsGender(gender)
}

// Catalog is the ordered, read-only garment list loaded at startup.
type Catalog struct {
	garments []*Garment
	byID     map[GarmentID]*Garment
}

func NewCatalog(garments []*Garment) (*Catalog, error) {
	byID := make(map[GarmentID]*Garment, len(garments))
	for _, g := range garments {
		if _, dup := byID[g.ID()]; dup {
			return nil, fmt.Errorf("duplicate garment id %d", g.ID())
		}
		byID[g.ID()] = g
	}
	return &Catalog{garments: slices.Clone(garments), byID: byID}, nil
}

func (c *Catalog) All() []*Garment {
	return slices.Clone(c.garments)
}

func (c *Catalog) Len() int {
	return len(c.garments)
}

func (c *Catalog) ByID(id GarmentID) (*Garment, bool) {
	g, ok := c.byID[id]
	return g, ok
}

// Categories lists, in catalog order and without repeats, the categories
// holding at least one garment for gender. The result is never nil.
func (c *Catalog) Categories(gender valueobjects.Gender) []string {
	out := []string{}
	for _, g := range c.garments {
		if g.FitsGender(gender) && !slices.Contains(out, g.Category()) {
			out = append(out, g.Category())
		}
	}
	return out
}

func (c *Catalog) HasCategory(gender valueobjects.Gender, category string) bool {
	return slices.Contains(c.Categories(gender), category)
}

// Filter never returns nil, so an empty closet encodes as [].
func (c *Catalog) Filter(gender valueobjects.Gender, category string) []*Garment {
	out := []*Garment{}
	for _, g := range c.garments {
		if g.Matches(gender, category) {
			out = append(out, g)
		}
	}
	return out
}
