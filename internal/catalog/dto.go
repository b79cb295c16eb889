// AngelaMos | 2026
// dto.go

package catalog

type CreateCategoryRequest struct {
	Name        string `json:"name"                  validate:"required,min=2,max=100"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	SortOrder   int    `json:"sort_order,omitempty"  validate:"gte=0"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"        validate:"omitempty,min=2,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	SortOrder   *int    `json:"sort_order,omitempty"  validate:"omitempty,gte=0"`
}

type CreateSubcategoryRequest struct {
	CategoryID string `json:"category_id" validate:"required,uuid"`
	Name       string `json:"name"        validate:"required,min=2,max=100"`
}

type UpdateSubcategoryRequest struct {
	CategoryID *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Name       *string `json:"name,omitempty"        validate:"omitempty,min=2,max=100"`
}

type BrandRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type SubcategoryResponse struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

// CategoryNode is one entry of the public category tree. It is also the
// cached representation.
type CategoryNode struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Description   string                `json:"description"`
	SortOrder     int                   `json:"sort_order"`
	Subcategories []SubcategoryResponse `json:"subcategories"`
}

type BrandResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func ToSubcategoryResponse(s *Subcategory) SubcategoryResponse {
	return SubcategoryResponse{
		ID:         s.ID,
		CategoryID: s.CategoryID,
		Name:       s.Name,
		Slug:       s.Slug,
	}
}

func ToCategoryNode(c *Category) CategoryNode {
	return CategoryNode{
		ID:            c.ID,
		Name:          c.Name,
		Slug:          c.Slug,
		Description:   c.Description,
		SortOrder:     c.SortOrder,
		Subcategories: []SubcategoryResponse{},
	}
}

func ToBrandResponse(b *Brand) BrandResponse {
	return BrandResponse{ID: b.ID, Name: b.Name, Slug: b.Slug}
}

func ToBrandResponses(brands []Brand) []BrandResponse {
	out := make([]BrandResponse, 0, len(brands))
	for i := range brands {
		out = append(out, ToBrandResponse(&brands[i]))
	}
	return out
}

// BuildTree groups subcategories under their categories, keeping the
// order of both inputs.
func BuildTree(categories []Category, subcategories []Subcategory) []CategoryNode {
	nodes := make([]CategoryNode, 0, len(categories))
	index := make(map[string]int, len(categories))
	for i := range categories {
		index[categories[i].ID] = len(nodes)
		nodes = append(nodes, ToCategoryNode(&categories[i]))
	}

	for i := range subcategories {
		pos, ok := index[subcategories[i].CategoryID]
		if !ok {
			continue
		}
		nodes[pos].Subcategories = append(nodes[pos].Subcategories,
			ToSubcategoryResponse(&subcategories[i]))
	}

	return nodes
}
