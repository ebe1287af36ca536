package domain

import "strings"

// Category is one entry of the externally configured category list.
type Category struct {
	ID   string
	Name string
}

// CategorySet is the fixed list used to validate the first submission stage.
type CategorySet struct {
	ordered []Category
	byID    map[string]Category
}

// DefaultCategories mirrors the list the citizen portal ships with.
var DefaultCategories = []Category{
	{ID: "water", Name: "Water Supply"},
	{ID: "electricity", Name: "Electricity"},
	{ID: "waste", Name: "Waste Management"},
	{ID: "roads", Name: "Roads & Traffic"},
	{ID: "safety", Name: "Public Safety"},
	{ID: "health", Name: "Public Health"},
	{ID: "environment", Name: "Environment"},
	{ID: "infrastructure", Name: "Infrastructure"},
}

// NewCategorySet builds a set; later duplicates of an id are ignored.
func NewCategorySet(categories []Category) *CategorySet {
	set := &CategorySet{byID: make(map[string]Category, len(categories))}
	for _, c := range categories {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		if _, exists := set.byID[id]; exists {
			continue
		}
		c.ID = id
		if strings.TrimSpace(c.Name) == "" {
			c.Name = id
		}
		set.byID[id] = c
		set.ordered = append(set.ordered, c)
	}
	return set
}

// Lookup returns the category with the given id.
func (s *CategorySet) Lookup(id string) (Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// All returns the categories in configured order.
func (s *CategorySet) All() []Category {
	out := make([]Category, len(s.ordered))
	copy(out, s.ordered)
	return out
}
