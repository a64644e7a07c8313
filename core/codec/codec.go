package codec

import "resource-manager/core/utils"

// Entry describes one named resource inside an archive.
type Entry struct {
	// Name is the entry name as stored in the archive.
	Name string
	// Size is the uncompressed payload size in bytes.
	Size int64
}

// Archive is an open container of named resources.
type Archive interface {
	// List returns every entry in the archive.
	List() []Entry
	// Extract returns the payload bytes for a named entry.
	Extract(name string) ([]byte, error)
	// Close releases the archive. In-memory archives may treat this as a no-op.
	Close() error
}

// Set bundles the format codecs the resolver consumes. Implementations must
// be safe for repeated calls; the resolver may parse the same resource again
// after invalidation.
type Set interface {
	// ParseTable parses tabular resource bytes.
	ParseTable(data []byte) (*Table, error)
	// ParseStringTable loads a string table from a file on disk.
	ParseStringTable(path string) (*StringTable, error)
	// ParseRecord parses a structured record (manifest, campaign descriptor).
	ParseRecord(data []byte) (*Record, error)
	// OpenArchive opens an archive file on disk.
	OpenArchive(path string) (Archive, error)
	// OpenArchiveBytes opens an archive held in memory, e.g. an add-on
	// package extracted from another container. The name is used in errors.
	OpenArchiveBytes(name string, data []byte) (Archive, error)
}

// Table is a parsed tabular resource: a header row of column names and zero
// or more data rows. The first column of each row is its label.
type Table struct {
	// Columns holds the column names, label column excluded.
	Columns []string `json:"columns"`
	// Rows holds the data rows; each row starts with its label cell.
	Rows [][]string `json:"rows"`
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// Lookup returns the cell at the row with the given label and the named
// column. The second return is false when either does not exist.
func (t *Table) Lookup(rowLabel, column string) (string, bool) {
	col := -1
	for i, c := range t.Columns {
		if c == column {
			col = i
			break
		}
	}
	if col < 0 {
		return "", false
	}
	for _, row := range t.Rows {
		if len(row) == 0 || row[0] != rowLabel {
			continue
		}
		// Cell 0 is the label, data cells follow.
		if col+1 < len(row) {
			return row[col+1], true
		}
		return "", false
	}
	return "", false
}

// StringTable maps string references to display text.
type StringTable struct {
	// Source is the path the table was loaded from.
	Source string
	// Entries maps string reference to text.
	Entries map[string]string
}

// Record is a parsed structured record with an explicit optional-field
// schema: absent fields read as zero values, never as panics or probes.
type Record struct {
	fields map[string]any
}

// NewRecord wraps decoded record fields.
func NewRecord(fields map[string]any) *Record {
	if fields == nil {
		fields = map[string]any{}
	}
	return &Record{fields: fields}
}

// String returns the named field as a string, or "" when absent. Scalar
// fields of other types coerce, so a descriptor authored with a numeric id
// still reads as its string form.
func (r *Record) String(key string) string {
	v, ok := r.fields[key]
	if !ok || v == nil {
		return ""
	}
	switch v.(type) {
	case []any, map[string]any:
		return ""
	}
	return utils.ToString(v)
}

// Strings returns the named field as a string slice, preserving order.
// Absent or mistyped fields read as nil.
func (r *Record) Strings(key string) []string {
	raw, ok := r.fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Has reports whether the named field is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}
