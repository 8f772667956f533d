// Copyright (c) 2026 Plotweave. All rights reserved.

/*
Package hierarchy keeps the fandom taxonomy internally consistent.

It validates that every referenced entity stays inside its fandom, detects
cycles in the plot-block parent/child forest, cross-checks relationship
links, and compiles tag-class sub-rules into the rule engine's condition
language so there is a single evaluation path.
*/
package hierarchy

import "sort"

// Edge is one parent/child link in the plot-block forest, expressed
// child → parent as stored on the rows.
type Edge struct {
	ChildID  int64 `json:"child_id"`
	ParentID int64 `json:"parent_id"`
}

// Visit states for the iterative depth-first search.
const (
	stateUnvisited = iota
	stateOnPath
	stateDone
)

/*
DetectCircularDependencies finds every cycle in a plot-block parent/child
graph.

Description: The edges are turned into a parent → children adjacency list
and walked with an iterative depth-first search carrying an explicit frame
stack, so arbitrarily deep hierarchies cannot exhaust the goroutine stack.
The first time a node already on the current path is revisited, the path
slice from that node's earliest occurrence through the current node is
reported as one cycle.

Parameters:
  - edges: []Edge (child → parent links)

Returns:
  - [][]int64: Zero or more cycles, each an ordered id sequence closing on
    itself (first id == last id). A self-loop reports as [n, n].
*/
func DetectCircularDependencies(edges []Edge) [][]int64 {
	adjacency := make(map[int64][]int64)
	nodeSet := make(map[int64]bool)
	for _, edge := range edges {
		adjacency[edge.ParentID] = append(adjacency[edge.ParentID], edge.ChildID)
		nodeSet[edge.ParentID] = true
		nodeSet[edge.ChildID] = true
	}

	// Sorted traversal order keeps the reported cycles deterministic.
	nodes := make([]int64, 0, len(nodeSet))
	for node := range nodeSet {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	for _, children := range adjacency {
		sort.Slice(children, func(i, j int) bool { return children[i] < children[j] })
	}

	type frame struct {
		node int64
		next int
	}

	state := make(map[int64]int, len(nodes))
	var cycles [][]int64

	for _, root := range nodes {
		if state[root] != stateUnvisited {
			continue
		}

		stack := []frame{{node: root}}
		path := []int64{root}
		pathIndex := map[int64]int{root: 0}
		state[root] = stateOnPath

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adjacency[top.node]

			if top.next < len(children) {
				child := children[top.next]
				top.next++

				switch state[child] {
				case stateUnvisited:
					state[child] = stateOnPath
					pathIndex[child] = len(path)
					path = append(path, child)
					stack = append(stack, frame{node: child})
				case stateOnPath:
					start := pathIndex[child]
					cycle := make([]int64, 0, len(path)-start+1)
					cycle = append(cycle, path[start:]...)
					cycle = append(cycle, child)
					cycles = append(cycles, cycle)
				}
				continue
			}

			state[top.node] = stateDone
			delete(pathIndex, top.node)
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}

	return cycles
}
