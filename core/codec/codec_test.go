package codec

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTable(t *testing.T) {
	set := NewBasicSet()

	t.Run("Valid", func(t *testing.T) {
		table, err := set.ParseTable([]byte("Name HP\nrow0 goblin 6\nrow1 ogre 29\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"Name", "HP"}, table.Columns)
		assert.Equal(t, 2, table.RowCount())

		hp, ok := table.Lookup("row1", "HP")
		assert.True(t, ok)
		assert.Equal(t, "29", hp)

		_, ok = table.Lookup("row9", "HP")
		assert.False(t, ok)
		_, ok = table.Lookup("row0", "Nope")
		assert.False(t, ok)
	})

	t.Run("RaggedRow", func(t *testing.T) {
		_, err := set.ParseTable([]byte("Name HP\nrow0 goblin\n"))
		assert.Error(t, err)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := set.ParseTable([]byte("\n\n"))
		assert.Error(t, err)
	})
}

func TestRecordSchema(t *testing.T) {
	set := NewBasicSet()
	rec, err := set.ParseRecord([]byte(`{"name":"mod","addons":["p1","p2"],"count":3}`))
	require.NoError(t, err)

	assert.Equal(t, "mod", rec.String("name"))
	assert.Equal(t, []string{"p1", "p2"}, rec.Strings("addons"))
	// Scalars coerce to their string form; absent and composite fields
	// read as zero values, never panic.
	assert.Equal(t, "3", rec.String("count"))
	assert.Equal(t, "", rec.String("missing"))
	assert.Equal(t, "", rec.String("addons"))
	assert.Nil(t, rec.Strings("name"))
	assert.True(t, rec.Has("count"))
	assert.False(t, rec.Has("missing"))
}

func TestZipArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.zip")
	writeTestZip(t, path, map[string]string{
		"classes.2da": "Name\nrow0 barbarian\n",
		"feat.2da":    "Name\nrow0 alertness\n",
	})

	set := NewBasicSet()
	a, err := set.OpenArchive(path)
	require.NoError(t, err)
	defer a.Close()

	assert.Len(t, a.List(), 2)

	data, err := a.Extract("classes.2da")
	require.NoError(t, err)
	assert.Contains(t, string(data), "barbarian")

	_, err = a.Extract("nope.2da")
	assert.Error(t, err)

	t.Run("Bytes", func(t *testing.T) {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		mem, err := set.OpenArchiveBytes("base.zip", raw)
		require.NoError(t, err)
		data, err := mem.Extract("feat.2da")
		require.NoError(t, err)
		assert.Contains(t, string(data), "alertness")
	})
}

func writeTestZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range entries {
		ew, err := w.Create(name)
		require.NoError(t, err)
		_, err = ew.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}
