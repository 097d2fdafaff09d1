package headers

// Schema is the header row of a table together with the logical key of
// every column. It is the one place rows and records are converted.
type Schema struct {
	Headers []string
	Keys    []string
	index   map[string]int
}

// NewSchema derives logical keys for a header row. When two headers
// resolve to the same key the first column wins for Index; callers are
// expected to keep keys unique within a table.
func NewSchema(headerRow []string) Schema {
	s := Schema{
		Headers: append([]string(nil), headerRow...),
		Keys:    make([]string, len(headerRow)),
		index:   make(map[string]int, len(headerRow)),
	}
	for i, h := range headerRow {
		key := Key(h)
		s.Keys[i] = key
		if key == "" {
			continue
		}
		if _, exists := s.index[key]; !exists {
			s.index[key] = i
		}
	}
	return s
}

// Width is the number of columns.
func (s Schema) Width() int {
	return len(s.Keys)
}

// Index returns the 0-based column of key, or -1.
func (s Schema) Index(key string) int {
	if i, ok := s.index[key]; ok {
		return i
	}
	return -1
}

// Has reports whether every key is present.
func (s Schema) Has(keys ...string) bool {
	for _, k := range keys {
		if s.Index(k) < 0 {
			return false
		}
	}
	return true
}

// Missing returns the keys absent from the schema, in argument order.
func (s Schema) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if s.Index(k) < 0 {
			missing = append(missing, k)
		}
	}
	return missing
}

// Cell returns row[key] or "" when the column or cell is absent.
func (s Schema) Cell(row []string, key string) string {
	i := s.Index(key)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// RecordFromRow maps a positional row to key -> value. Short rows yield
// empty strings for the missing cells.
func (s Schema) RecordFromRow(row []string) map[string]string {
	rec := make(map[string]string, len(s.Keys))
	for i, key := range s.Keys {
		if key == "" {
			continue
		}
		value := ""
		if i < len(row) {
			value = row[i]
		}
		rec[key] = value
	}
	return rec
}

// RowFromRecord lays fields out in header order. Keys not in the schema are
// ignored and columns without a value are written empty.
func (s Schema) RowFromRecord(fields map[string]string) []string {
	row := make([]string, len(s.Keys))
	for i, key := range s.Keys {
		if key == "" {
			continue
		}
		row[i] = fields[key]
	}
	return row
}
