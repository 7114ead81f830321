package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/runfile"
	"github.com/verte-zerg/spirecurve/internal/runs"
	"github.com/verte-zerg/spirecurve/internal/store"
)

func runJSON(localTime, character string, ascension, floor int, victory, daily bool) string {
	return fmt.Sprintf(`{"local_time":%q,"playtime":1800,"ascension_level":%d,"character_chosen":%q,
		"floor_reached":%d,"master_deck":["Strike_R","Bash"],"max_hp_per_floor":[80,76],
		"victory":%t,"is_daily":%t}`, localTime, ascension, character, floor, victory, daily)
}

func writeRun(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

type skipped struct {
	path string
	err  error
}

func TestRunSkipsAndSorts(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "IRONCLAD/c.run", runJSON("20240103120000", "IRONCLAD", 20, 57, true, false))
	writeRun(t, root, "IRONCLAD/a.run", runJSON("20240101120000", "IRONCLAD", 20, 30, false, false))
	writeRun(t, root, "DEFECT/b.run", runJSON("20240102120000", "DEFECT", 20, 44, false, false))
	writeRun(t, root, "DEFECT/low.run", runJSON("20240104120000", "DEFECT", 19, 44, false, false))
	writeRun(t, root, "DAILY/d.run", runJSON("20240105120000", "WATCHER", 20, 50, false, true))
	badJSON := writeRun(t, root, "IRONCLAD/broken.run", `{"local_time":`)
	malformed := writeRun(t, root, "IRONCLAD/nohp.run",
		`{"local_time":"20240106120000","playtime":1,"ascension_level":20,"character_chosen":"IRONCLAD",
		"floor_reached":3,"master_deck":[],"max_hp_per_floor":[],"victory":false}`)
	writeRun(t, root, "notes.txt", "ignored")

	var skips []skipped
	res, err := Run(model.DefaultPipelineConfig(root), runfile.Source{}, func(path string, err error) {
		skips = append(skips, skipped{path: path, err: err})
	})
	require.NoError(t, err)

	assert.Equal(t, 7, res.Scanned)
	assert.Equal(t, 2, res.Skipped)
	assert.Len(t, res.All, 5)
	assert.Equal(t, 2, res.Ineligible)
	require.Len(t, res.Cohort, 3)
	floors := []int{res.Cohort[0].FloorReached, res.Cohort[1].FloorReached, res.Cohort[2].FloorReached}
	assert.Equal(t, []int{30, 44, 57}, floors)

	bySkip := map[string]error{}
	for _, s := range skips {
		bySkip[s.path] = s.err
	}
	require.Len(t, bySkip, 2)
	assert.ErrorIs(t, bySkip[badJSON], runfile.ErrDecode)
	assert.ErrorIs(t, bySkip[malformed], runs.ErrMalformedRecord)
}

func TestRunIncludeDailyAndFloorVictory(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "a.run", runJSON("20240101120000", "WATCHER", 20, 57, false, true))
	writeRun(t, root, "b.run", runJSON("20240102120000", "WATCHER", 20, 1, false, false))
	writeRun(t, root, "c.run", runJSON("20240103120000", "SILENT", 20, 12, false, false))

	cfg := model.DefaultPipelineConfig(root)
	cfg.ExcludeDaily = false
	cfg.Victory = model.VictoryFloorEqualsMax
	res, err := Run(cfg, runfile.Source{}, nil)
	require.NoError(t, err)

	// b is a first-floor abort, c an unknown character id.
	require.Len(t, res.Cohort, 1)
	assert.True(t, res.Cohort[0].Victory)
	assert.True(t, res.Cohort[0].IsDaily)
}

func TestRunMissingRootIsNotFatal(t *testing.T) {
	var skips []skipped
	res, err := Run(model.DefaultPipelineConfig(filepath.Join(t.TempDir(), "missing")), runfile.Source{},
		func(path string, err error) { skips = append(skips, skipped{path, err}) })
	require.NoError(t, err)
	assert.Empty(t, res.Cohort)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, skips, 1)
	assert.ErrorIs(t, skips[0].err, runfile.ErrDiscovery)
}

type fakeSource struct {
	paths []string
	raws  map[string]map[string]any
}

func (f fakeSource) List(string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range f.paths {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func (f fakeSource) Parse(path string) (map[string]any, error) {
	raw, ok := f.raws[path]
	if !ok {
		return nil, &runfile.FileError{Path: path, Kind: runfile.ErrNotFound}
	}
	return raw, nil
}

func TestRunWithCustomSource(t *testing.T) {
	src := fakeSource{
		paths: []string{"gone", "ok"},
		raws: map[string]map[string]any{
			"ok": {
				"local_time": "20240101000000", "playtime": 10, "ascension_level": 20,
				"character_chosen": "DEFECT", "floor_reached": 5, "master_deck": []any{},
				"max_hp_per_floor": []any{70}, "victory": false,
			},
		},
	}
	res, err := Run(model.DefaultPipelineConfig("/virtual"), src, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Cohort, 1)
}

func TestValidate(t *testing.T) {
	good := model.DefaultPipelineConfig("/runs")
	require.NoError(t, Validate(good))

	bad := good
	bad.RootPath = ""
	assert.Error(t, Validate(bad))

	bad = good
	bad.MaxFloor = 0
	assert.Error(t, Validate(bad))

	bad = good
	bad.MinFloor = 60
	assert.Error(t, Validate(bad))

	bad = good
	bad.Victory = "coinflip"
	assert.Error(t, Validate(bad))

	_, err := Run(bad, runfile.Source{}, nil)
	assert.Error(t, err)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	LogSink(logger)("x.run", &runfile.FileError{Path: "x.run", Kind: runfile.ErrDecode})
	out := buf.String()
	assert.Contains(t, out, "skipping run file")
	assert.Contains(t, out, "path=x.run")
	assert.Contains(t, out, "kind=decode")
}

func TestSelectRederivesArchivedRuns(t *testing.T) {
	root := t.TempDir()
	for i, ts := range []string{"20240101120000", "20240102120000", "20240103120000"} {
		writeRun(t, root, fmt.Sprintf("IRONCLAD/%d.run", i), runJSON(ts, "IRONCLAD", 20, 57, false, false))
	}
	importCfg := model.DefaultPipelineConfig(root)
	importCfg.Victory = model.VictoryFloorEqualsMax
	imported, err := Run(importCfg, runfile.Source{}, nil)
	require.NoError(t, err)
	require.Len(t, imported.Cohort, 3)
	for _, r := range imported.Cohort {
		assert.True(t, r.Victory)
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })
	ctx := context.Background()
	_, err = st.InsertRuns(ctx, imported.All)
	require.NoError(t, err)
	archived, err := st.ListRuns(ctx, store.RunFilter{})
	require.NoError(t, err)

	fromDir, err := Run(model.DefaultPipelineConfig(root), runfile.Source{}, nil)
	require.NoError(t, err)
	fromDB, err := Select(archived, model.DefaultPipelineConfig(root), nil)
	require.NoError(t, err)
	require.Len(t, fromDB.Cohort, 3)
	for i := range fromDB.Cohort {
		assert.False(t, fromDB.Cohort[i].Victory)
		assert.Equal(t, fromDir.Cohort[i].Victory, fromDB.Cohort[i].Victory)
	}

	lowered := model.DefaultPipelineConfig(root)
	lowered.MaxFloor = 50
	var skips []skipped
	res, err := Select(archived, lowered, func(path string, err error) { skips = append(skips, skipped{path, err}) })
	require.NoError(t, err)
	assert.Empty(t, res.Cohort)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, skips, 3)
	assert.ErrorIs(t, skips[0].err, runs.ErrMalformedRecord)
	assert.Equal(t, archived[0].ID, skips[0].path)
}

func TestSelectRejectsBadRules(t *testing.T) {
	cfg := model.DefaultPipelineConfig("")
	cfg.Victory = "coinflip"
	_, err := Select(nil, cfg, nil)
	assert.Error(t, err)

	res, err := Select(nil, model.DefaultPipelineConfig(""), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Cohort)
}
