package schema

// CoreTagTable represents the 'core.tag' table
type CoreTagTable struct {
	Table      string
	ID         string
	FandomID   string
	TagClassID string
	Name       string
	Slug       string
	Category   string
	Requires   string
	Enhances   string
	IsActive   string
}

// CoreTag is the schema definition for core.tag
var CoreTag = CoreTagTable{
	Table:      "core.tag",
	ID:         "id",
	FandomID:   "fandom_id",
	TagClassID: "tag_class_id",
	Name:       "name",
	Slug:       "slug",
	Category:   "category",
	Requires:   "requires",
	Enhances:   "enhances",
	IsActive:   "is_active",
}

func (t CoreTagTable) Columns() []string {
	return []string{t.ID, t.FandomID, t.TagClassID, t.Name, t.Slug, t.Category, t.Requires, t.Enhances, t.IsActive}
}
