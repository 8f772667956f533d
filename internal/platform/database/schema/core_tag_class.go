package schema

// CoreTagClassTable represents the 'core.tag_class' table.
//
// The sub-rule bag (mutual exclusion, required context, instance limits,
// category restrictions, dependencies) is stored as a single JSONB column;
// its shape is owned by the taxonomy domain package.
type CoreTagClassTable struct {
	Table    string
	ID       string
	FandomID string
	Name     string
	SubRules string
	IsActive string
}

// CoreTagClass is the schema definition for core.tag_class
var CoreTagClass = CoreTagClassTable{
	Table:    "core.tag_class",
	ID:       "id",
	FandomID: "fandom_id",
	Name:     "name",
	SubRules: "sub_rules",
	IsActive: "is_active",
}

func (t CoreTagClassTable) Columns() []string {
	return []string{t.ID, t.FandomID, t.Name, t.SubRules, t.IsActive}
}
