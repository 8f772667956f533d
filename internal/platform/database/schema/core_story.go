package schema

// CoreStoryTable represents the 'core.story' table
type CoreStoryTable struct {
	Table     string
	ID        string
	FandomID  string
	Title     string
	Summary   string
	WordCount string
	Status    string
	Rating    string
	Kudos     string
	Hits      string
	Bookmarks string
	UpdatedAt string
	IsActive  string
}

// CoreStory is the schema definition for core.story
var CoreStory = CoreStoryTable{
	Table:     "core.story",
	ID:        "id",
	FandomID:  "fandom_id",
	Title:     "title",
	Summary:   "summary",
	WordCount: "word_count",
	Status:    "status",
	Rating:    "rating",
	Kudos:     "kudos",
	Hits:      "hits",
	Bookmarks: "bookmarks",
	UpdatedAt: "updated_at",
	IsActive:  "is_active",
}

func (t CoreStoryTable) Columns() []string {
	return []string{
		t.ID, t.FandomID, t.Title, t.Summary, t.WordCount, t.Status, t.Rating,
		t.Kudos, t.Hits, t.Bookmarks, t.UpdatedAt, t.IsActive,
	}
}

// CoreStoryTagTable represents the 'core.story_tag' junction table
type CoreStoryTagTable struct {
	Table   string
	StoryID string
	TagID   string
}

// CoreStoryTag is the schema definition for core.story_tag
var CoreStoryTag = CoreStoryTagTable{
	Table:   "core.story_tag",
	StoryID: "story_id",
	TagID:   "tag_id",
}

// CoreStoryPlotBlockTable represents the 'core.story_plot_block' junction table
type CoreStoryPlotBlockTable struct {
	Table       string
	StoryID     string
	PlotBlockID string
}

// CoreStoryPlotBlock is the schema definition for core.story_plot_block
var CoreStoryPlotBlock = CoreStoryPlotBlockTable{
	Table:       "core.story_plot_block",
	StoryID:     "story_id",
	PlotBlockID: "plot_block_id",
}
