package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxColumn is the widest column whole-table reads ask for (ZZ).
const MaxColumn = 702

// Range is a parsed A1 range. Columns and rows are 1-based; EndRow 0 means
// the range is open towards the bottom of the table.
type Range struct {
	Table    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// TableRange covers every row of a table.
func TableRange(table string) Range {
	return Range{Table: table, StartCol: 1, StartRow: 1, EndCol: MaxColumn}
}

// HeaderRange covers row 1 only.
func HeaderRange(table string) Range {
	return Range{Table: table, StartCol: 1, StartRow: 1, EndCol: MaxColumn, EndRow: 1}
}

// RowRange covers columns 1..width of a single row.
func RowRange(table string, row, width int) Range {
	if width < 1 {
		width = 1
	}
	return Range{Table: table, StartCol: 1, StartRow: row, EndCol: width, EndRow: row}
}

// ColumnRange covers one column from fromRow down to the end of the table.
func ColumnRange(table string, col, fromRow int) Range {
	return Range{Table: table, StartCol: col, StartRow: fromRow, EndCol: col}
}

// CellRange covers a single cell.
func CellRange(table string, col, row int) Range {
	return Range{Table: table, StartCol: col, StartRow: row, EndCol: col, EndRow: row}
}

// String renders the range as <table>!<col><row>:<col>[<row>].
func (r Range) String() string {
	end := ColumnLetter(r.EndCol)
	if r.EndRow > 0 {
		end += strconv.Itoa(r.EndRow)
	}
	return fmt.Sprintf("%s!%s%d:%s", QuoteTable(r.Table), ColumnLetter(r.StartCol), r.StartRow, end)
}

// Width is the number of columns spanned.
func (r Range) Width() int {
	return r.EndCol - r.StartCol + 1
}

// ColumnLetter converts a 1-based column number to letters: 1 -> A,
// 26 -> Z, 27 -> AA.
func ColumnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append([]byte{byte('A' + n%26)}, buf...)
		n /= 26
	}
	return string(buf)
}

// ColumnNumber is the inverse of ColumnLetter. It returns 0 for input that
// is not made of ASCII letters.
func ColumnNumber(letters string) int {
	if letters == "" {
		return 0
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

// QuoteTable single-quotes a table name unless it is made only of
// [A-Za-z0-9_].
func QuoteTable(name string) string {
	plain := name != ""
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// ParseRange parses the ranges produced by Range.String. A single cell
// reference ("Tab!C5") is accepted as a one-cell range.
func ParseRange(s string) (Range, error) {
	bang := strings.LastIndex(s, "!")
	if bang <= 0 {
		return Range{}, fmt.Errorf("%w: %q has no table", ErrInvalidRange, s)
	}
	table, err := unquoteTable(s[:bang])
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}

	startRef, endRef, hasEnd := strings.Cut(s[bang+1:], ":")
	startCol, startRow, err := parseCellRef(startRef)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
	}
	if startRow == 0 {
		startRow = 1
	}
	r := Range{Table: table, StartCol: startCol, StartRow: startRow, EndCol: startCol, EndRow: startRow}
	if hasEnd {
		endCol, endRow, err := parseCellRef(endRef)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, s, err)
		}
		r.EndCol = endCol
		r.EndRow = endRow
	}
	if r.EndCol < r.StartCol || (r.EndRow != 0 && r.EndRow < r.StartRow) {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, s)
	}
	return r, nil
}

func unquoteTable(s string) (string, error) {
	if !strings.HasPrefix(s, "'") {
		return s, nil
	}
	if len(s) < 2 || !strings.HasSuffix(s, "'") {
		return "", fmt.Errorf("unterminated quote")
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
}

func parseCellRef(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ((ref[i] >= 'A' && ref[i] <= 'Z') || (ref[i] >= 'a' && ref[i] <= 'z')) {
		i++
	}
	col = ColumnNumber(ref[:i])
	if col == 0 {
		return 0, 0, fmt.Errorf("bad column in %q", ref)
	}
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row in %q", ref)
	}
	return col, row, nil
}
