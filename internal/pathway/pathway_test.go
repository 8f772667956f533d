// Copyright (c) 2026 Plotweave. All rights reserved.

package pathway_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/plotweave/plotweave/internal/pathway"
)

func samplePathway() *pathway.Pathway {
	return &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "harry/hermione", Category: "relationship", Position: 0},
		{ID: "b", Type: pathway.ItemTag, Name: "time-travel", Category: "plot-device", Position: 1},
		{ID: "c", Type: pathway.ItemPlotBlock, Name: "Goblin Inheritance", Category: "inheritance", Position: 2},
	}}
}

/*
TestPathway_Lookups verifies the name and type lookup helpers.
*/
func TestPathway_Lookups(t *testing.T) {
	p := samplePathway()

	assert.Equal(t, 3, p.Len())
	assert.Equal(t, []string{"harry/hermione", "time-travel", "Goblin Inheritance"}, p.Names())
	assert.Equal(t, []string{"harry/hermione", "time-travel"}, p.NamesOfType(pathway.ItemTag))
	assert.Equal(t, []string{"Goblin Inheritance"}, p.NamesOfType(pathway.ItemPlotBlock))

	assert.True(t, p.HasName("time-travel"))
	assert.False(t, p.HasName("Time-Travel"), "name lookups are exact")

	assert.True(t, p.HasNameOfType(pathway.ItemPlotBlock, "Goblin Inheritance"))
	assert.False(t, p.HasNameOfType(pathway.ItemTag, "Goblin Inheritance"))

	assert.Equal(t, 2, p.CountOfType(pathway.ItemTag))
	assert.Equal(t, 1, p.CountOfType(pathway.ItemPlotBlock))
}

/*
TestPathway_Categories verifies case-insensitive category handling.
*/
func TestPathway_Categories(t *testing.T) {
	p := samplePathway()

	assert.True(t, p.HasCategory("Relationship"))
	assert.True(t, p.HasCategoryOfType(pathway.ItemPlotBlock, "INHERITANCE"))
	assert.False(t, p.HasCategoryOfType(pathway.ItemTag, "inheritance"))

	assert.Equal(t, []string{"relationship", "plot-device", "inheritance"}, p.Categories())
}

/*
TestPathway_EmptyCategoriesSkipped verifies blank categories never appear in
the distinct category list.
*/
func TestPathway_EmptyCategoriesSkipped(t *testing.T) {
	p := &pathway.Pathway{Items: []pathway.Item{
		{ID: "a", Type: pathway.ItemTag, Name: "angst", Category: "genre"},
		{ID: "b", Type: pathway.ItemTag, Name: "untagged"},
		{ID: "c", Type: pathway.ItemTag, Name: "fluff", Category: "Genre"},
	}}

	assert.Equal(t, []string{"genre"}, p.Categories())
}
