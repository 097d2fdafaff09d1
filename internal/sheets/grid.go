package sheets

// Window cuts r out of a full table grid (grid[0] is row 1). Cells beyond
// the end of a stored row are omitted rather than padded, and rows past
// the end of the grid are not returned.
func Window(grid [][]string, r Range) [][]string {
	first := r.StartRow - 1
	if first < 0 {
		first = 0
	}
	last := len(grid)
	if r.EndRow > 0 && r.EndRow < last {
		last = r.EndRow
	}
	if first >= last {
		return [][]string{}
	}

	out := make([][]string, 0, last-first)
	for _, row := range grid[first:last] {
		out = append(out, windowCells(row, r))
	}
	return out
}

func windowCells(row []string, r Range) []string {
	from := r.StartCol - 1
	if from < 0 {
		from = 0
	}
	to := len(row)
	if r.EndCol > 0 && r.EndCol < to {
		to = r.EndCol
	}
	if from >= to {
		return []string{}
	}
	return append([]string(nil), row[from:to]...)
}

// Overwrite writes values into grid starting at r's top-left corner,
// growing rows and cells as needed, and returns the updated grid.
func Overwrite(grid [][]string, r Range, values [][]string) [][]string {
	for i, src := range values {
		rowIdx := r.StartRow - 1 + i
		for len(grid) <= rowIdx {
			grid = append(grid, []string{})
		}
		grid[rowIdx] = overwriteCells(grid[rowIdx], r.StartCol-1, src)
	}
	return grid
}

func overwriteCells(row []string, from int, src []string) []string {
	need := from + len(src)
	if len(row) < need {
		grown := make([]string, need)
		copy(grown, row)
		row = grown
	}
	copy(row[from:], src)
	return row
}

// CloneGrid deep-copies a grid.
func CloneGrid(grid [][]string) [][]string {
	if grid == nil {
		return nil
	}
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = make([]string, len(row))
		copy(out[i], row)
	}
	return out
}
