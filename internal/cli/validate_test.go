package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/config"
)

func runValidateCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidate_ValidConfig(t *testing.T) {
	out, err := runValidateCmd(t, "text", writeConfig(t, runConfig))
	require.NoError(t, err)
	assert.Equal(t, "✓ Config valid\n", out)
}

func TestValidate_ValidConfigJSON(t *testing.T) {
	out, err := runValidateCmd(t, "json", writeConfig(t, runConfig))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
}

const duplicateNotes = `
selectors:
  tablet: {tablet: Wacom, cursor: Pen, button: "1"}
rows:
  tablet:
    - {axis: x, enabled: true, message_type: note}
    - {axis: y, enabled: true, message_type: note}
    - {axis: z, control_type: Volume Knob}
`

func TestValidate_ValidationErrors(t *testing.T) {
	out, err := runValidateCmd(t, "text", writeConfig(t, duplicateNotes))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, config.ErrDuplicateNote)
	assert.Contains(t, out, config.ErrUnknownControl)
}

func TestValidate_ValidationErrorsJSON(t *testing.T) {
	out, err := runValidateCmd(t, "json", writeConfig(t, duplicateNotes))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
	assert.Equal(t, result.Errors[0].Code, resp.Error.Code)
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantCode string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.yaml"), ErrCodeNotFound},
		{"schema violation", writeConfig(t, "rows:\n  mouse:\n    - {axis: x, channel: 16}\n"), config.ErrCodeSchema},
		{"unknown key", writeConfig(t, "colour: red\n"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runValidateCmd(t, "json", tt.path)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, resp.Error.Code)
			}
		})
	}
}

func TestValidate_MissingArgs(t *testing.T) {
	_, err := runValidateCmd(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}
