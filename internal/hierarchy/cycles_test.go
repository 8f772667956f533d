// Copyright (c) 2026 Plotweave. All rights reserved.

package hierarchy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plotweave/plotweave/internal/hierarchy"
)

/*
TestDetectCircularDependencies_Acyclic verifies trees and forests produce no
cycle reports.
*/
func TestDetectCircularDependencies_Acyclic(t *testing.T) {
	testCases := []struct {
		name  string
		edges []hierarchy.Edge
	}{
		{"empty", nil},
		{"single_edge", []hierarchy.Edge{{ChildID: 2, ParentID: 1}}},
		{"chain", []hierarchy.Edge{
			{ChildID: 2, ParentID: 1},
			{ChildID: 3, ParentID: 2},
			{ChildID: 4, ParentID: 3},
		}},
		{"forest", []hierarchy.Edge{
			{ChildID: 2, ParentID: 1},
			{ChildID: 3, ParentID: 1},
			{ChildID: 5, ParentID: 4},
		}},
		{"diamond_dag", []hierarchy.Edge{
			{ChildID: 2, ParentID: 1},
			{ChildID: 3, ParentID: 1},
			{ChildID: 4, ParentID: 2},
			{ChildID: 4, ParentID: 3},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, hierarchy.DetectCircularDependencies(tc.edges))
		})
	}
}

/*
TestDetectCircularDependencies_ThreeNodeCycle verifies the canonical
A→B→C→A loop is reported as a closed path.
*/
func TestDetectCircularDependencies_ThreeNodeCycle(t *testing.T) {
	const (
		a int64 = 1
		b int64 = 2
		c int64 = 3
	)

	// B's parent is A, C's parent is B, A's parent is C.
	edges := []hierarchy.Edge{
		{ChildID: b, ParentID: a},
		{ChildID: c, ParentID: b},
		{ChildID: a, ParentID: c},
	}

	cycles := hierarchy.DetectCircularDependencies(edges)

	require.Len(t, cycles, 1)
	assert.Equal(t, []int64{a, b, c, a}, cycles[0])
}

/*
TestDetectCircularDependencies_SelfLoop verifies a node parented to itself
reports the two-entry closed path.
*/
func TestDetectCircularDependencies_SelfLoop(t *testing.T) {
	cycles := hierarchy.DetectCircularDependencies([]hierarchy.Edge{
		{ChildID: 7, ParentID: 7},
	})

	require.Len(t, cycles, 1)
	assert.Equal(t, []int64{7, 7}, cycles[0])
}

/*
TestDetectCircularDependencies_CycleWithTail verifies nodes hanging off a
cycle do not appear in the reported loop.
*/
func TestDetectCircularDependencies_CycleWithTail(t *testing.T) {
	edges := []hierarchy.Edge{
		{ChildID: 2, ParentID: 1},
		{ChildID: 1, ParentID: 2},
		{ChildID: 3, ParentID: 1}, // tail, not part of the loop
	}

	cycles := hierarchy.DetectCircularDependencies(edges)

	require.Len(t, cycles, 1)
	assert.Equal(t, []int64{1, 2, 1}, cycles[0])
}

/*
TestDetectCircularDependencies_Deterministic verifies repeated runs over
the same edge set report identical cycles regardless of edge order.
*/
func TestDetectCircularDependencies_Deterministic(t *testing.T) {
	forward := []hierarchy.Edge{
		{ChildID: 2, ParentID: 1},
		{ChildID: 3, ParentID: 2},
		{ChildID: 1, ParentID: 3},
		{ChildID: 5, ParentID: 4},
	}
	reversed := []hierarchy.Edge{
		{ChildID: 5, ParentID: 4},
		{ChildID: 1, ParentID: 3},
		{ChildID: 3, ParentID: 2},
		{ChildID: 2, ParentID: 1},
	}

	assert.Equal(t,
		hierarchy.DetectCircularDependencies(forward),
		hierarchy.DetectCircularDependencies(reversed),
	)
}

/*
TestDetectCircularDependencies_DeepChain verifies the iterative traversal
handles hierarchies far beyond any recursion depth concern.
*/
func TestDetectCircularDependencies_DeepChain(t *testing.T) {
	const depth = 50_000

	edges := make([]hierarchy.Edge, 0, depth)
	for i := int64(1); i < depth; i++ {
		edges = append(edges, hierarchy.Edge{ChildID: i + 1, ParentID: i})
	}

	assert.Empty(t, hierarchy.DetectCircularDependencies(edges))

	// Closing the chain turns the whole thing into one giant loop.
	edges = append(edges, hierarchy.Edge{ChildID: 1, ParentID: depth})
	cycles := hierarchy.DetectCircularDependencies(edges)

	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], depth+1)
}
