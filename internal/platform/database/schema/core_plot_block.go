package schema

// CorePlotBlockTable represents the 'core.plot_block' table
type CorePlotBlockTable struct {
	Table              string
	ID                 string
	FandomID           string
	ParentID           string
	Name               string
	Category           string
	ConflictsWith      string
	Requires           string
	SoftRequires       string
	Enhances           string
	EnabledBy          string
	ExcludesCategories string
	MaxInstances       string
	IsActive           string
}

// CorePlotBlock is the schema definition for core.plot_block
var CorePlotBlock = CorePlotBlockTable{
	Table:              "core.plot_block",
	ID:                 "id",
	FandomID:           "fandom_id",
	ParentID:           "parent_id",
	Name:               "name",
	Category:           "category",
	ConflictsWith:      "conflicts_with",
	Requires:           "requires",
	SoftRequires:       "soft_requires",
	Enhances:           "enhances",
	EnabledBy:          "enabled_by",
	ExcludesCategories: "excludes_categories",
	MaxInstances:       "max_instances",
	IsActive:           "is_active",
}

func (t CorePlotBlockTable) Columns() []string {
	return []string{
		t.ID, t.FandomID, t.ParentID, t.Name, t.Category,
		t.ConflictsWith, t.Requires, t.SoftRequires, t.Enhances, t.EnabledBy,
		t.ExcludesCategories, t.MaxInstances, t.IsActive,
	}
}
