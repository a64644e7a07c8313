package codec

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// BasicSet is the reference codec set: zip archives, whitespace-column
// tables, JSON records and JSON string tables.
type BasicSet struct{}

// NewBasicSet creates the reference codec set.
func NewBasicSet() *BasicSet {
	return &BasicSet{}
}

// ParseTable parses a whitespace-column table: the first non-empty line is
// the header (column names, label column implied), each following non-empty
// line is a row whose first field is its label.
func (s *BasicSet) ParseTable(data []byte) (*Table, error) {
	lines := strings.Split(string(data), "\n")
	table := &Table{}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if table.Columns == nil {
			table.Columns = fields
			continue
		}
		if len(fields) != len(table.Columns)+1 {
			return nil, fmt.Errorf("row %q has %d cells, want %d", fields[0], len(fields), len(table.Columns)+1)
		}
		table.Rows = append(table.Rows, fields)
	}
	if table.Columns == nil {
		return nil, fmt.Errorf("table has no header row")
	}
	return table, nil
}

// ParseStringTable loads a JSON object of stringref -> text.
func (s *BasicSet) ParseStringTable(path string) (*StringTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading string table: %w", err)
	}
	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding string table %s: %w", path, err)
	}
	return &StringTable{Source: path, Entries: entries}, nil
}

// ParseRecord decodes a JSON object into a Record.
func (s *BasicSet) ParseRecord(data []byte) (*Record, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	return NewRecord(fields), nil
}

// OpenArchive opens a zip file on disk.
func (s *BasicSet) OpenArchive(path string) (Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	return &zipArchive{name: path, reader: &rc.Reader, closer: rc}, nil
}

// OpenArchiveBytes opens a zip image held in memory.
func (s *BasicSet) OpenArchiveBytes(name string, data []byte) (Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", name, err)
	}
	return &zipArchive{name: name, reader: r}, nil
}

// zipArchive adapts archive/zip to the Archive interface.
type zipArchive struct {
	name   string
	reader *zip.Reader
	closer io.Closer
}

func (a *zipArchive) List() []Entry {
	entries := make([]Entry, 0, len(a.reader.File))
	for _, f := range a.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Size: int64(f.UncompressedSize64)})
	}
	return entries
}

func (a *zipArchive) Extract(name string) ([]byte, error) {
	for _, f := range a.reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening entry %s in %s: %w", name, a.name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("reading entry %s in %s: %w", name, a.name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("entry %s not found in %s", name, a.name)
}

func (a *zipArchive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
