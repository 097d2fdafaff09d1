package app

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/catalog"
	"github.com/DiateAtendimento/conaprev-inscricoes-sub000/internal/sheets"
)

const (
	minSequence = 1
	maxSequence = 500
)

// CodeGenerator hands out registration codes, the smallest free sequence
// number of a profile formatted as <prefix>%03d.
//
// Allocation reads the code column and picks a number; it does not lock.
// Two callers allocating for the same profile at the same time can both
// see the same free number and both write it. Registration is driven by
// people at human speed, so that window is accepted. Deployments that
// expect concurrent submissions must serialize NextCode per profile, for
// example behind a single writer goroutine or an external lock.
type CodeGenerator struct {
	sheets sheets.Accessor
}

func NewCodeGenerator(acc sheets.Accessor) *CodeGenerator {
	return &CodeGenerator{sheets: acc}
}

// NextCode reads the profile's code column directly from the store,
// bypassing the cache, and returns the first free code.
func (g *CodeGenerator) NextCode(ctx context.Context, p catalog.Profile) (string, error) {
	schema, err := readSchema(ctx, g.sheets, p.Table)
	if err != nil {
		return "", err
	}
	col := schema.Index(keyCode)
	if col < 0 {
		return "", schemaError(p.Table, keyCode)
	}

	cells, err := g.sheets.ReadRange(ctx, sheets.ColumnRange(p.Table, col+1, firstDataRow).String())
	if err != nil {
		return "", storeError("read codes of "+p.Table, err)
	}

	used := make(map[int]bool, len(cells))
	for _, row := range cells {
		if len(row) == 0 {
			continue
		}
		if n, ok := parseSequence(row[0]); ok {
			used[n] = true
		}
	}

	n, ok := smallestFree(used)
	if !ok {
		return "", capacityError(p.Prefix, maxSequence)
	}
	return formatCode(p.Prefix, n), nil
}

func formatCode(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

func smallestFree(used map[int]bool) (int, bool) {
	for n := minSequence; n <= maxSequence; n++ {
		if !used[n] {
			return n, true
		}
	}
	return 0, false
}

// parseSequence skips leading non-digits and parses the digits that follow:
// "CNL028" -> 28, "028-x" -> 28, "CNL" -> not a code.
func parseSequence(cell string) (int, bool) {
	start := 0
	for start < len(cell) && (cell[start] < '0' || cell[start] > '9') {
		start++
	}
	end := start
	for end < len(cell) && cell[end] >= '0' && cell[end] <= '9' {
		end++
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(cell[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
