package runfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func collect(t *testing.T, src Source, root string) []string {
	t.Helper()
	var paths []string
	for path, err := range src.List(root) {
		require.NoError(t, err)
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func TestListFindsRunFilesRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "IRONCLAD", "1.run"), "{}")
	writeFile(t, filepath.Join(root, "DEFECT", "2.run"), "{}")
	writeFile(t, filepath.Join(root, "DEFECT", "notes.txt"), "x")
	writeFile(t, filepath.Join(root, "3.RUN"), "{}")

	got := collect(t, Source{}, root)
	want := []string{
		filepath.Join(root, "3.RUN"),
		filepath.Join(root, "DEFECT", "2.run"),
		filepath.Join(root, "IRONCLAD", "1.run"),
	}
	sort.Strings(want)
	assert.Equal(t, want, got)

	// Restartable.
	assert.Equal(t, got, collect(t, Source{}, root))
}

func TestListCustomExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.json"), "{}")
	writeFile(t, filepath.Join(root, "b.run"), "{}")

	got := collect(t, Source{Ext: ".json"}, root)
	assert.Equal(t, []string{filepath.Join(root, "a.json")}, got)
}

func TestListMissingRootYieldsDiscoveryError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	var errs []error
	for _, err := range (Source{}).List(root) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrDiscovery)
	assert.Equal(t, ErrDiscovery, KindOf(errs[0]))
}

func TestListStopsWhenConsumerBreaks(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.run", "b.run", "c.run"} {
		writeFile(t, filepath.Join(root, name), "{}")
	}
	count := 0
	for range (Source{}).List(root) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestParse(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "good.run")
	writeFile(t, good, `{"floor_reached": 12, "character_chosen": "WATCHER"}`)
	bad := filepath.Join(root, "bad.run")
	writeFile(t, bad, `{"floor_reached": `)
	list := filepath.Join(root, "list.run")
	writeFile(t, list, `[1, 2]`)

	src := Source{}
	raw, err := src.Parse(good)
	require.NoError(t, err)
	assert.Equal(t, "WATCHER", raw["character_chosen"])
	assert.Equal(t, json.Number("12"), raw["floor_reached"])

	_, err = src.Parse(bad)
	assert.ErrorIs(t, err, ErrDecode)

	_, err = src.Parse(list)
	assert.ErrorIs(t, err, ErrDecode)

	for _, body := range []string{
		`{"local_time": "20240101000000"} not json`,
		`{"a": 1}{"b": 2}`,
	} {
		_, err = Decode("x.run", []byte(body))
		assert.ErrorIs(t, err, ErrDecode, body)
	}
	raw, err = Decode("x.run", []byte("{\"a\": 1}\n\n"))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), raw["a"])

	_, err = src.Parse(filepath.Join(root, "gone.run"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	var fe *FileError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, filepath.Join(root, "gone.run"), fe.Path)
}
