package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Flow))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/remote_down_local_fallback.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectations
description: "Expectations that do not hold are reported per step"
flow:
  - op: save
    data: '{"description": "x", "photo": null}'
    expect:
      id: 7
  - op: render_home
    expect:
      origin: remote
      message: "nope"
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "flow[0] save: expected id 7, got 1")
	assert.Contains(t, result.Errors[1], `expected origin "remote", got "local"`)
	assert.Contains(t, result.Errors[2], `expected message "nope", got ""`)
}

func TestRun_ExpectPageWithoutRender(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: page_on_save
description: "A page expectation on a non-render step fails"
flow:
  - op: save
    data: '{"description": "x", "photo": null}'
    expect:
      origin: local
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected a rendered page, got none")
}

func TestRun_SetupFailureIsError(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_setup
description: "Setup documents must save"
setup:
  - '{"photo": null}'
flow:
  - op: render_home
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute setup")
}

func TestRun_OpenViewKeepsHandlesLive(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: view_left_open
description: "Handles stay live until the view closes"
remote:
  error: offline
setup:
  - '{"description": "a", "photo": "YQ=="}'
flow:
  - op: render_home
assertions:
  - type: outstanding_refs
    count: 0
  - type: handles_released
    step: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Assertion failed: outstanding_refs")
	assert.Contains(t, result.Errors[1], "still live: blob:taleweaver/test-0001")
	assert.Equal(t, 1, result.Trace[0].Outstanding)
}

func TestRun_PublishPosted(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: publish_online
description: "A successful upload stores nothing locally"
flow:
  - op: publish
    story:
      description: "Sunrise"
      photo: "bytes"
    expect:
      error: none
      status: posted
assertions:
  - type: posted_count
    count: 1
  - type: stored_count
    count: 0
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Nil(t, result.Trace[0].ID)
}

func TestErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, "", errorCode(nil))
	assert.Equal(t, CodeOther, errorCode(assert.AnError))
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertStoredCount,
		Expected: "2",
		Actual:   "1",
		Trace: []StepTrace{
			{Step: 0, Op: OpSave, Error: CodeValidation},
			{Step: 1, Op: OpRenderTales, Outstanding: 1},
		},
	}

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "Assertion failed: stored_count\n"))
	assert.Contains(t, msg, "  Expected: 2\n")
	assert.Contains(t, msg, "  Actual: 1\n")
	assert.Contains(t, msg, "  [0] save error=validation outstanding=0\n")
	assert.Contains(t, msg, "  [1] render_tales outstanding=1\n")
}
