package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Valid(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/offline_save_and_publish.yaml")
	require.NoError(t, err)

	assert.Equal(t, "offline_save_and_publish", scenario.Name)
	require.Len(t, scenario.Remote.Stories, 2)
	assert.Equal(t, "story-1", scenario.Remote.Stories[0].ID)
	require.NotNil(t, scenario.Remote.Stories[0].Lat)
	assert.InDelta(t, -6.2, *scenario.Remote.Stories[0].Lat, 1e-9)
	assert.Equal(t, "lighthouse-bytes", scenario.Remote.Photos["https://example.com/p1.jpg"])
	assert.Equal(t, "upload timed out", scenario.Remote.PostError)

	require.Len(t, scenario.Flow, 7)
	assert.Equal(t, OpPublish, scenario.Flow[3].Op)
	require.NotNil(t, scenario.Flow[3].Story)
	assert.Equal(t, "New tale", scenario.Flow[3].Story.Description)
	require.NotNil(t, scenario.Flow[3].Expect)
	assert.Equal(t, "queued", scenario.Flow[3].Expect.Status)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: tiny
description: "one render"
flow:
  - op: render_tales
`), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "tiny", scenario.Name)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nflows: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nflow:\n  - op: render_home\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nflow:\n  - op: render_home\n",
			wantErr: "description is required",
		},
		{
			name:    "empty flow",
			yaml:    "name: x\ndescription: y\n",
			wantErr: "flow list is required",
		},
		{
			name:    "missing op",
			yaml:    "name: x\ndescription: y\nflow:\n  - id: \"1\"\n",
			wantErr: "flow[0]: op is required",
		},
		{
			name:    "unknown op",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: explode\n",
			wantErr: `unknown op "explode"`,
		},
		{
			name:    "save without data",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: save\n",
			wantErr: "save requires data",
		},
		{
			name:    "delete without id",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: delete\n",
			wantErr: "delete requires id",
		},
		{
			name:    "publish without story",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: publish\n",
			wantErr: "publish requires story",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: render_home\nassertions:\n  - type: vibes\n",
			wantErr: `assertion[0]: unknown assertion type "vibes"`,
		},
		{
			name:    "assertion without type",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: render_home\nassertions:\n  - count: 1\n",
			wantErr: "type is required",
		},
		{
			name:    "negative count",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: render_home\nassertions:\n  - type: stored_count\n    count: -1\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "released step out of range",
			yaml:    "name: x\ndescription: y\nflow:\n  - op: render_home\nassertions:\n  - type: handles_released\n    step: 3\n",
			wantErr: "step 3 out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
