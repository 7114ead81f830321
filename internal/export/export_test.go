package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/spirecurve/internal/model"
	"github.com/verte-zerg/spirecurve/internal/stats"
)

func sampleReport(t *testing.T) stats.Report {
	t.Helper()
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	var records []model.RunRecord
	for i, v := range []bool{true, false, true} {
		records = append(records, model.RunRecord{
			ID:           string(rune('a' + i)),
			Timestamp:    base.Add(time.Duration(i) * time.Hour),
			Character:    model.Defect,
			FloorReached: []int{57, 19, 57}[i],
			Victory:      v,
		})
	}
	report, err := stats.BuildReport(records, model.StatsConfig{Window: 2, Character: model.Defect}, 57)
	require.NoError(t, err)
	return report
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(t), JSON))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 2, doc.Window)
	assert.Equal(t, 3, doc.Runs)
	require.NotNil(t, doc.From)
	assert.True(t, doc.From.Equal(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))
	require.Len(t, doc.Curves, 1)
	curve := doc.Curves[0]
	assert.Equal(t, "DEFECT", curve.Character)
	assert.Equal(t, 2, curve.Wins)
	assert.Equal(t, 1, curve.Streak)
	require.Len(t, curve.Points, 2)
	assert.Equal(t, 2, curve.Points[0].Run)
	assert.Equal(t, 0.5, curve.Points[0].WinRate)
	assert.InDelta(t, 38.0/57.0, curve.Points[0].DepthRatio, 1e-9)
	assert.Equal(t, 3, curve.Points[1].Run)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleReport(t), YAML))
	assert.Contains(t, buf.String(), "longest_streak: 1")

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Curves, 1)
	assert.Len(t, doc.Curves[0].Points, 2)
}

func TestEmptyReport(t *testing.T) {
	report, err := stats.BuildReport(nil, model.StatsConfig{Window: 5}, 57)
	require.NoError(t, err)
	doc := NewDocument(report)
	assert.Nil(t, doc.From)
	assert.Len(t, doc.Curves, 5)
	assert.Empty(t, doc.Curves[0].Points)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" YML ")
	require.NoError(t, err)
	assert.Equal(t, YAML, f)
	_, err = ParseFormat("csv")
	assert.Error(t, err)
	assert.Error(t, Write(&bytes.Buffer{}, stats.Report{}, "csv"))
}
