package cli

// Test Plan for Scan Command:
// - executeScan with no targets returns ErrNoInput
// - Inline strings are reported in the metadata format
// - The three reference inputs produce the documented reports
// - Index and name filters select the right declarations; filter misses are not errors
// - Silent mode suppresses console output but still writes the log file
// - Struct output goes to stdout or to --output
// - Oversized declarations are summarized in the report and skipped by the emitter with a warning
// - Directory targets are expanded with include globs; headers separate targets
// - Unreadable targets are reported, the scan continues, and the run fails at the end
// - --db exports selected declarations to SQLite
// - --show-skipped reports unparseable statements
// - --verify warns about internal initializers
// - applyScanFlags only overrides explicitly set flags
// - filterFromFlags rejects --index 0 and conflicting keys

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mvp-joe/dsconv/internal/config"
	"github.com/mvp-joe/dsconv/internal/selector"
	"github.com/mvp-joe/dsconv/internal/storage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCmd builds a command with the shared scan flags and parses flagArgs into it.
func newTestCmd(t *testing.T, flagArgs ...string) (*cobra.Command, *scanOptions) {
	t.Helper()
	opts := &scanOptions{}
	cmd := &cobra.Command{Use: "scan"}
	addScanFlags(cmd, opts)
	cmd.Flags().StringArrayVarP(&opts.strings, "string", "e", nil, "")
	require.NoError(t, cmd.ParseFlags(flagArgs))
	return cmd, opts
}

type scanResult struct {
	stdout string
	stderr string
	err    error
}

// scan runs executeScan the way runScan does, without touching package-level flags.
func scan(t *testing.T, cfg *config.Config, args []string, flagArgs ...string) scanResult {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	cmd, opts := newTestCmd(t, flagArgs...)
	applyScanFlags(cmd, cfg, opts)
	require.NoError(t, config.Validate(cfg))

	filter, err := filterFromFlags(cmd, opts)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	err = executeScan(context.Background(), cfg, opts, filter, args, &stdout, &stderr)
	return scanResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestExecuteScan_NoInput(t *testing.T) {
	res := scan(t, nil, nil)
	assert.True(t, errors.Is(res.err, ErrNoInput))
	assert.Equal(t, "no input specified", res.err.Error())
}

func TestExecuteScan_ReferenceInputs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:  "fully initialized int",
			input: "int a[3] = {1,2,3};",
			contains: []string{
				"int a[3] = {1,2,3};",
				"type: int",
				"name: a",
				"int size: 4 bytes",
				"size: 3",
				"init: 3",
				"values: 1, 2, 3",
			},
			excludes: []string{"excess values"},
		},
		{
			name:     "under-initialized char",
			input:    "char b[5] = {10,20};",
			contains: []string{"type: char", "size: 5", "init: 2", "values: 10, 20, ?, ?, ?"},
			excludes: []string{"int size", "excess values"},
		},
		{
			name:     "over-initialized int",
			input:    "int c[2] = {1,2,3,4};",
			contains: []string{"size: 2", "init: 4", "values: 1, 2", "excess values: 3, 4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := scan(t, nil, nil, "-e", tt.input)
			require.NoError(t, res.err)
			out := lines(res.stdout)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, res.stdout, unwanted)
			}
		})
	}
}

func TestExecuteScan_Filters(t *testing.T) {
	const input = "int a[1] = {1}; bad[; char b[1] = {2}; int a[2] = {3};"

	res := scan(t, nil, nil, "-e", input, "--index", "3")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "name: b")
	assert.NotContains(t, res.stdout, "name: a")

	res = scan(t, nil, nil, "-e", input, "-n", "a")
	require.NoError(t, res.err)
	assert.Equal(t, 2, strings.Count(res.stdout, "name: a"))
	assert.NotContains(t, res.stdout, "name: b")

	res = scan(t, nil, nil, "-e", input, "-n", "missing")
	require.NoError(t, res.err, "a filter miss is not an error")
	assert.Empty(t, res.stdout)
}

func TestExecuteScan_SilentWithLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "report.log")

	res := scan(t, nil, nil, "-e", "int a[1] = {7};", "--silent", "--log-file", logPath)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "values: 7\n")
}

func TestExecuteScan_StructOutput(t *testing.T) {
	res := scan(t, nil, nil, "-e", "short s[2] = {5};", "--silent", "--struct", "--ev")
	require.NoError(t, res.err)
	assert.Equal(t, "/* Generated Structural Representation: s */\nstruct s {\n    short s[2];\n} ds;\nds.s[0] = 5;\nds.s[1] = 0;\n\n", res.stdout)

	outPath := filepath.Join(t.TempDir(), "out.h")
	res = scan(t, nil, nil, "-e", "short s[2] = {5};", "--silent", "--struct", "--wrap=false", "--var-name", "v", "-o", outPath)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "    short s_0;\n    short s_1;\n} v;\n")
}

func TestExecuteScan_HugeDeclaredSize(t *testing.T) {
	res := scan(t, nil, nil, "-e", "int big[300000000] = {1}; char c[1] = {2};", "--struct")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "values: 1, ? x 299999999\n")
	assert.NotContains(t, res.stdout, "struct s {\n    int big")
	assert.Contains(t, res.stdout, "    char c[1];\n} ds;\n")
	assert.Contains(t, res.stderr, "Warning: declared size too large to emit: big[300000000] exceeds 65536\n")
}

func TestExecuteScan_DirectoryAndFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), []byte("int a[1] = {1};"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.h"), []byte("char b[1] = {2};"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("long n[1] = {3};"), 0644))
	missing := filepath.Join(dir, "missing.c")

	res := scan(t, nil, []string{missing, dir})
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "1 target(s) could not be read")
	assert.Contains(t, res.stderr, "missing.c")

	assert.Contains(t, res.stdout, "==> "+filepath.Join(dir, "a.c")+" <==")
	assert.Contains(t, res.stdout, "name: a")
	assert.Contains(t, res.stdout, "name: b")
	assert.NotContains(t, res.stdout, "name: n", "notes.txt does not match the include globs")
	assert.Less(t, strings.Index(res.stdout, "name: a"), strings.Index(res.stdout, "name: b"))
}

func TestExecuteScan_Database(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "decls.db")

	res := scan(t, nil, nil, "-e", "int a[2] = {1, 2}; int b[1] = {3};", "-e", "char c[1] = {4};", "-s", "--db", dbPath, "--name", "a")
	require.NoError(t, res.err)

	exp, err := storage.Open(dbPath)
	require.NoError(t, err)
	defer exp.Close()

	runs, err := exp.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "<string #1>", runs[0].Target)
	assert.Equal(t, "<string #2>", runs[1].Target)

	decls, err := exp.Declarations(runs[0].ID)
	require.NoError(t, err)
	require.Len(t, decls, 1)
	assert.Equal(t, "a", decls[0].Identifier)
	assert.Equal(t, []string{"1", "2"}, decls[0].Values)

	decls, err = exp.Declarations(runs[1].ID)
	require.NoError(t, err)
	assert.Empty(t, decls)
}

func TestExecuteScan_ShowSkipped(t *testing.T) {
	res := scan(t, nil, nil, "-e", "int x = 5; int y[1] = {1};", "--show-skipped")
	require.NoError(t, res.err)
	out := lines(res.stdout)
	require.NotEmpty(t, out)
	assert.Equal(t, "skipped: expected '[' at 1:7: int x = 5;", out[0])
	assert.Contains(t, out, "name: y")
}

func TestExecuteScan_Verify(t *testing.T) {
	res := scan(t, nil, nil, "-e", "int a[2] = {1, 2};", "-s", "--struct", "--verify")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "Warning: generated struct")

	res = scan(t, nil, nil, "-e", "int a[2] = {1, 2};", "-s", "--struct", "--iv", "--verify")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Warning: generated struct for a")
}

func TestExecuteScan_EmptyInputWarns(t *testing.T) {
	res := scan(t, nil, nil, "-e", "   ")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Warning: <string #1>: empty input")
}

func TestApplyScanFlags_OnlyChangedFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Struct.VarName = "fromconfig"
	cfg.Struct.Wrap = false
	cfg.Output.Silent = true

	cmd, opts := newTestCmd(t, "--tag", "pack", "--report-wrap")
	applyScanFlags(cmd, cfg, opts)

	assert.Equal(t, "pack", cfg.Struct.Tag)
	assert.True(t, cfg.Report.Wrap)
	assert.Equal(t, "fromconfig", cfg.Struct.VarName, "unset flags keep configured values")
	assert.False(t, cfg.Struct.Wrap, "the wrap flag default does not override configuration")
	assert.True(t, cfg.Output.Silent)
}

func TestFilterFromFlags(t *testing.T) {
	cmd, opts := newTestCmd(t)
	f, err := filterFromFlags(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, selector.All(), f)

	cmd, opts = newTestCmd(t, "--index", "0")
	_, err = filterFromFlags(cmd, opts)
	assert.True(t, errors.Is(err, selector.ErrInvalidFilter))

	cmd, opts = newTestCmd(t, "-i", "2")
	f, err = filterFromFlags(cmd, opts)
	require.NoError(t, err)
	assert.Equal(t, selector.ByOrdinal(2), f)
}
