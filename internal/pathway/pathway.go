// Copyright (c) 2026 Plotweave. All rights reserved.

/*
Package pathway defines the user-assembled pathway model shared by the
validation, ranking, and discovery layers.

A pathway is an ordered selection of tags and plot blocks scoped to a single
fandom. It is the currency every engine in Plotweave operates on: the rule
engine matches conditions against it, the ranking engine scores stories
against it, and the discovery orchestrator derives search filters from it.
*/
package pathway

import "strings"

// ItemType discriminates the two kinds of pathway entries.
type ItemType string

const (
	// ItemTag is a narrative tag selection (e.g. "time-travel").
	ItemTag ItemType = "tag"

	// ItemPlotBlock is a plot block selection (e.g. "Goblin Inheritance").
	ItemPlotBlock ItemType = "plot_block"
)

// Item is a single entry in a pathway.
type Item struct {
	// ID is a pathway-local identifier assigned by the client.
	ID string `json:"id"`

	// Type is either "tag" or "plot_block".
	Type ItemType `json:"type"`

	// Name is the display name of the referenced taxonomy entity.
	Name string `json:"name"`

	// Category is the taxonomy category of the referenced entity
	// (e.g. "relationship", "genre", "event").
	Category string `json:"category"`

	// Position is the 0-based ordering of the item within the pathway.
	Position int `json:"position"`
}

// Pathway is an ordered selection of tags and plot blocks.
type Pathway struct {
	Items []Item `json:"items"`
}

// # Lookup Helpers

// Len returns the number of items in the pathway.
func (p *Pathway) Len() int { return len(p.Items) }

// Names returns every item name, in pathway order.
func (p *Pathway) Names() []string {
	names := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		names = append(names, item.Name)
	}
	return names
}

// NamesOfType returns the names of all items of the given type, in order.
func (p *Pathway) NamesOfType(itemType ItemType) []string {
	var names []string
	for _, item := range p.Items {
		if item.Type == itemType {
			names = append(names, item.Name)
		}
	}
	return names
}

// HasName reports whether any item carries the given name (exact match).
func (p *Pathway) HasName(name string) bool {
	for _, item := range p.Items {
		if item.Name == name {
			return true
		}
	}
	return false
}

// HasNameOfType reports whether an item of the given type carries the name.
func (p *Pathway) HasNameOfType(itemType ItemType, name string) bool {
	for _, item := range p.Items {
		if item.Type == itemType && item.Name == name {
			return true
		}
	}
	return false
}

// HasCategory reports whether any item belongs to the given category.
// The comparison is case-insensitive.
func (p *Pathway) HasCategory(category string) bool {
	for _, item := range p.Items {
		if strings.EqualFold(item.Category, category) {
			return true
		}
	}
	return false
}

// HasCategoryOfType reports whether an item of the given type belongs to the
// given category (case-insensitive).
func (p *Pathway) HasCategoryOfType(itemType ItemType, category string) bool {
	for _, item := range p.Items {
		if item.Type == itemType && strings.EqualFold(item.Category, category) {
			return true
		}
	}
	return false
}

// CountOfType returns the number of items of the given type.
func (p *Pathway) CountOfType(itemType ItemType) int {
	count := 0
	for _, item := range p.Items {
		if item.Type == itemType {
			count++
		}
	}
	return count
}

// Categories returns the distinct (lowercased) categories present in the
// pathway, in first-appearance order.
func (p *Pathway) Categories() []string {
	seen := make(map[string]bool, len(p.Items))
	var categories []string
	for _, item := range p.Items {
		category := strings.ToLower(item.Category)
		if category == "" || seen[category] {
			continue
		}
		seen[category] = true
		categories = append(categories, category)
	}
	return categories
}
