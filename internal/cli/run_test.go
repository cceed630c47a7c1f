package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/touchy/internal/testutil"
)

const runConfig = `
port: out
domains:
  x: [0, 127]
selectors:
  mouse: {button: "1"}
rows:
  mouse:
    - {axis: x, enabled: true, threshold: 0}
`

// newTestRun builds a run command wired to recording ports. The default
// slog logger is restored when the test ends.
func newTestRun(t *testing.T, ports *testutil.PortRegistry, stdin string, args ...string) (*bytes.Buffer, error) {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	out := &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Opener:      ports,
		Session:     testutil.NewFixedSessionGenerator("run-session"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	cmd.SetContext(ctx)

	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	return out, cmd.Execute()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "touchy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRun_ProcessesInputUntilEOF(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, runConfig)

	stdin := strings.Join([]string{
		`{"kind":"motion","button":"1","values":{"x":20}}`,
		`{"kind":"motion","button":"1","values":{"x":64}}`,
		`{"kind":"switch","switch":{"name":"midi_output","on":false}}`,
		`{"kind":"motion","button":"1","values":{"x":100}}`,
	}, "\n")

	out, err := newTestRun(t, ports, stdin, "--config", cfgPath)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"control_change channel=0 control=0 value=20",
		"control_change channel=0 control=0 value=64",
	}, ports.Port("out").Lines())
	assert.Equal(t, []string{"open out", "close out"}, ports.Events())
	assert.Contains(t, out.String(), "session run-session")
	assert.Contains(t, out.String(), "input ended")
}

func TestRun_PortFlagOverridesConfig(t *testing.T) {
	ports := testutil.NewPortRegistry("out", "other")
	cfgPath := writeConfig(t, runConfig)

	_, err := newTestRun(t, ports, `{"kind":"motion","button":"1","values":{"x":5}}`,
		"--config", cfgPath, "--port", "other")
	require.NoError(t, err)

	assert.Empty(t, ports.Port("out").Lines())
	assert.Equal(t, []string{"control_change channel=0 control=0 value=5"}, ports.Port("other").Lines())
}

func TestRun_SavesRulesToDatabase(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, runConfig)
	dbPath := filepath.Join(t.TempDir(), "touchy.db")

	_, err := newTestRun(t, ports, "", "--config", cfgPath, "--db", dbPath)
	require.NoError(t, err)

	st, err := openRuleStore(context.Background(), dbPath, false)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	writeRuleSets(buf, st)
	assert.Contains(t, buf.String(), "mouse/cursor/1\n")
	assert.Contains(t, buf.String(), `[0] x enabled=true channel=0 message_type=control control_type="Bank Select" range_from=0 range_to=127 threshold=0`)
}

func TestRun_NoPortDropsMessages(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, strings.Replace(runConfig, "port: out\n", "", 1))

	out, err := newTestRun(t, ports, `{"kind":"motion","button":"1","values":{"x":5}}`, "--config", cfgPath)
	require.NoError(t, err)

	assert.Empty(t, ports.Events())
	assert.Contains(t, out.String(), "no output port open")
}

func TestRun_InputOpensPort(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, strings.Replace(runConfig, "port: out\n", "", 1))

	stdin := strings.Join([]string{
		`{"kind":"open_port","port":"out"}`,
		`{"kind":"all_notes_off"}`,
	}, "\n")
	_, err := newTestRun(t, ports, stdin, "--config", cfgPath)
	require.NoError(t, err)

	lines := ports.Port("out").Lines()
	require.Len(t, lines, 16)
	assert.Equal(t, "control_change channel=0 control=123 value=0", lines[0])
	assert.Equal(t, "control_change channel=15 control=123 value=0", lines[15])
}

func TestRun_InputFile(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, runConfig)
	inputPath := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(inputPath, []byte(`{"kind":"motion","button":"1","values":{"x":7}}`+"\n"), 0644))

	_, err := newTestRun(t, ports, `{"kind":"motion","button":"1","values":{"x":99}}`,
		"--config", cfgPath, "--input", inputPath)
	require.NoError(t, err)

	assert.Equal(t, []string{"control_change channel=0 control=0 value=7"}, ports.Port("out").Lines(),
		"stdin is ignored when --input names a file")
}

func TestRun_InputNoneRunsUntilCancelled(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ports := testutil.NewPortRegistry("out")
	cmd := newRunCommand(&RunOptions{RootOptions: &RootOptions{Format: "text"}, Opener: ports})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	cmd.SetContext(ctx)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--port", "out", "--input", InputNone, "--metrics-addr", "127.0.0.1:0"})

	start := time.Now()
	require.NoError(t, cmd.Execute())
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, []string{"open out", "close out"}, ports.Events())
}

func TestRun_ReloadedPortThatWillNotOpenStopsRun(t *testing.T) {
	ports := testutil.NewPortRegistry("out")
	cfgPath := writeConfig(t, runConfig)

	type result struct {
		out *bytes.Buffer
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := newTestRun(t, ports, "", "--config", cfgPath, "--input", InputNone)
		done <- result{out, err}
	}()

	// Keep rewriting until the watcher is up and picks the change up.
	reloaded := strings.Replace(runConfig, "port: out", "port: missing", 1)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)

	var res result
wait:
	for {
		select {
		case res = <-done:
			break wait
		case <-tick.C:
			require.NoError(t, os.WriteFile(cfgPath, []byte(reloaded), 0644))
		case <-deadline:
			t.Fatal("run kept going after the reloaded port failed to open")
		}
	}

	require.Error(t, res.err)
	assert.Equal(t, ExitCommandError, GetExitCode(res.err))
	assert.Contains(t, res.err.Error(), "failed to open output port")
	assert.Contains(t, ports.Events(), "open-failed missing")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		args     []string
		wantErr  string
		wantCode int
	}{
		{
			name:     "missing config",
			args:     []string{"--config", "/nonexistent/touchy.yaml"},
			wantErr:  "failed to load config",
			wantCode: ExitCommandError,
		},
		{
			name:     "invalid config",
			config:   "rows:\n  mouse:\n    - {axis: z}\n",
			wantErr:  "invalid config",
			wantCode: ExitCommandError,
		},
		{
			name:     "port will not open",
			config:   runConfig,
			args:     []string{"--port", "missing"},
			wantErr:  `failed to open output port: open port "missing"`,
			wantCode: ExitCommandError,
		},
		{
			name:     "missing input file",
			config:   runConfig,
			args:     []string{"--input", "/nonexistent/events.jsonl"},
			wantErr:  "failed to open input",
			wantCode: ExitCommandError,
		},
		{
			name:     "arguments",
			args:     []string{"extra"},
			wantErr:  "unknown command",
			wantCode: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.config != "" {
				args = append([]string{"--config", writeConfig(t, tt.config)}, args...)
			}
			_, err := newTestRun(t, testutil.NewPortRegistry("out"), "", args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
		})
	}
}
