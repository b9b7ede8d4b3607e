package reservoir

import "sort"

// WellConnections builds, for every cell, the other cells perforated by the same
// well. Schur complement contributions of a well couple all of its cells.
func WellConnections(numCells int, wellCells [][]int) (graph [][]int) {
	sets := make([]map[int]struct{}, numCells)
	for _, cells := range wellCells {
		for _, ci := range cells {
			for _, cj := range cells {
				if ci == cj {
					continue
				}
				if sets[ci] == nil {
					sets[ci] = make(map[int]struct{})
				}
				sets[ci][cj] = struct{}{}
			}
		}
	}
	graph = make([][]int, numCells)
	for i, s := range sets {
		for j := range s {
			graph[i] = append(graph[i], j)
		}
		sort.Ints(graph[i])
	}
	return
}

// OverlapRow is a cell not owned by this process with the owned cells it couples to.
type OverlapRow struct {
	Cell    int
	Columns []int
}

// FindOverlapAndInterior classifies rows by ownership. Overlap rows record their
// owned neighbors through either the grid adjacency or the well graph.
func FindOverlapAndInterior(neighbors, wellGraph [][]int, owned []bool) (overlap []OverlapRow, interior []int) {
	for cell, own := range owned {
		if own {
			interior = append(interior, cell)
			continue
		}
		seen := make(map[int]struct{})
		add := func(list [][]int) {
			if cell >= len(list) {
				return
			}
			for _, nb := range list[cell] {
				if owned[nb] {
					seen[nb] = struct{}{}
				}
			}
		}
		add(neighbors)
		add(wellGraph)
		row := OverlapRow{Cell: cell}
		for nb := range seen {
			row.Columns = append(row.Columns, nb)
		}
		sort.Ints(row.Columns)
		overlap = append(overlap, row)
	}
	return
}
