package schema

// CoreFandomTable represents the 'core.fandom' table
type CoreFandomTable struct {
	Table     string
	ID        string
	Name      string
	Slug      string
	IsActive  string
	CreatedAt string
	UpdatedAt string
}

// CoreFandom is the schema definition for core.fandom
var CoreFandom = CoreFandomTable{
	Table:     "core.fandom",
	ID:        "id",
	Name:      "name",
	Slug:      "slug",
	IsActive:  "is_active",
	CreatedAt: "created_at",
	UpdatedAt: "updated_at",
}

func (t CoreFandomTable) Columns() []string {
	return []string{t.ID, t.Name, t.Slug, t.IsActive, t.CreatedAt, t.UpdatedAt}
}
