package mcp

// Test Plan for MCP tools:
// - dsconv_scan returns every matched declaration with totals and skipped count
// - dsconv_scan honours index and name filters; index counts failed attempts
// - dsconv_scan reads files via path, relative to the root directory
// - dsconv_scan rejects missing source, text+path together, index+name together, bad types
// - dsconv_struct emits struct code with defaults and per-call overrides
// - dsconv_struct reports invalid var names, empty selections and oversized declarations
// - Invalid argument payloads return tool errors, not Go errors
// - String-encoded numbers and booleans are coerced to their field types
// - Fractional numbers for integer arguments are rejected, not truncated
// - ScanCache reuses results for identical text

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mvp-joe/dsconv/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "int a[3] = {1, 2, 3};\njunk[;\nchar b[2] = {7};\nint a[1] = {9};\n"

func newEnv(t *testing.T, rootDir string) *toolEnv {
	t.Helper()
	cache, err := NewScanCache(16)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return &toolEnv{cache: cache, rootDir: rootDir, emitter: config.Default().EmitterOptions()}
}

func call(t *testing.T, handler toolHandler, args interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return textContent.Text, result.IsError
}

func scanResponse(t *testing.T, env *toolEnv, args map[string]interface{}) ScanResponse {
	t.Helper()
	text, isErr := call(t, createScanHandler(env), args)
	require.False(t, isErr, text)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal([]byte(text), &resp))
	return resp
}

func TestScanTool_All(t *testing.T) {
	t.Parallel()

	resp := scanResponse(t, newEnv(t, ""), map[string]interface{}{"text": sample})

	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 1, resp.Skipped)
	require.Len(t, resp.Declarations, 3)

	first := resp.Declarations[0]
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, "int", first.TypeName)
	assert.Equal(t, "a", first.Identifier)
	assert.Equal(t, 3, first.DeclaredSize)
	assert.Equal(t, []string{"1", "2", "3"}, first.Values)
	assert.Equal(t, "int a[3] = {1, 2, 3};", first.Span)
	assert.Equal(t, 1, first.Line)
	assert.Empty(t, first.Warnings)

	assert.Equal(t, "b", resp.Declarations[1].Identifier)
	assert.Equal(t, 3, resp.Declarations[1].Ordinal, "the failed attempt consumes ordinal 2")
}

func TestScanTool_Filters(t *testing.T) {
	t.Parallel()
	env := newEnv(t, "")

	resp := scanResponse(t, env, map[string]interface{}{"text": sample, "index": float64(3)})
	require.Len(t, resp.Declarations, 1)
	assert.Equal(t, "b", resp.Declarations[0].Identifier)

	resp = scanResponse(t, env, map[string]interface{}{"text": sample, "name": "a"})
	require.Len(t, resp.Declarations, 2)
	assert.Equal(t, []string{"9"}, resp.Declarations[1].Values)

	resp = scanResponse(t, env, map[string]interface{}{"text": sample, "index": float64(2)})
	assert.Empty(t, resp.Declarations)
	assert.Equal(t, 4, resp.Total)
}

func TestScanTool_HugeDeclaredSize(t *testing.T) {
	t.Parallel()

	resp := scanResponse(t, newEnv(t, ""), map[string]interface{}{"text": "int big[300000000] = {1};"})
	require.Len(t, resp.Declarations, 1)
	assert.Equal(t, 300000000, resp.Declarations[0].DeclaredSize)
	assert.Equal(t, []string{"1"}, resp.Declarations[0].Values)
	assert.Contains(t, resp.Declarations[0].Warnings, "declared size exceeds 65536, positions are not enumerated")
}

func TestScanTool_Path(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.c"), []byte("long l[2] = {1, 2, 3};"), 0644))

	resp := scanResponse(t, newEnv(t, root), map[string]interface{}{"path": "x.c"})
	require.Len(t, resp.Declarations, 1)
	assert.Equal(t, []string{"3"}, resp.Declarations[0].Excess)

	text, isErr := call(t, createScanHandler(newEnv(t, root)), map[string]interface{}{"path": "missing.c"})
	assert.True(t, isErr)
	assert.Contains(t, text, "failed to read target")
}

func TestScanTool_ArgumentErrors(t *testing.T) {
	t.Parallel()
	handler := createScanHandler(newEnv(t, ""))

	tests := []struct {
		name     string
		args     interface{}
		expected string
	}{
		{"no source", map[string]interface{}{}, "text or path parameter is required"},
		{"both sources", map[string]interface{}{"text": "x", "path": "y"}, "mutually exclusive"},
		{"index and name", map[string]interface{}{"text": sample, "index": float64(1), "name": "a"}, "mutually exclusive"},
		{"zero index", map[string]interface{}{"text": sample, "index": float64(0)}, "invalid filter"},
		{"index not a number", map[string]interface{}{"text": sample, "index": "two"}, "index"},
		{"fractional index", map[string]interface{}{"text": sample, "index": 2.5}, "expected an integer, got 2.5"},
		{"fractional index as string", map[string]interface{}{"text": sample, "index": "2.5"}, "expected an integer, got 2.5"},
		{"payload not a map", "invalid string instead of map", "invalid arguments format"},
		{"nil payload", nil, "invalid arguments format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, handler, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.expected)
		})
	}
}

func TestStructTool(t *testing.T) {
	t.Parallel()
	handler := createStructHandler(newEnv(t, ""))

	text, isErr := call(t, handler, map[string]interface{}{"text": sample, "index": float64(1)})
	require.False(t, isErr, text)
	assert.Equal(t, "/* Generated Structural Representation: a */\nstruct s {\n    int a[3];\n} ds;\n\n", text)

	text, isErr = call(t, handler, map[string]interface{}{
		"text":            "char b[2] = {7};",
		"wrap":            false,
		"external_assign": true,
		"var_name":        "holder",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "    char b_0;\n    char b_1;\n} holder;\n")
	assert.Contains(t, text, "holder.b_0 = 7;\nholder.b_1 = 0;\n")

	text, isErr = call(t, handler, map[string]interface{}{"text": sample, "name": "a", "internal_init": true})
	require.False(t, isErr, text)
	assert.Contains(t, text, "int a[3] = {1, 2, 3};")
	assert.Contains(t, text, "int a[1] = {9};")
}

func TestTools_StringEncodedArguments(t *testing.T) {
	t.Parallel()
	env := newEnv(t, "")

	resp := scanResponse(t, env, map[string]interface{}{"text": sample, "index": "3"})
	require.Len(t, resp.Declarations, 1)
	assert.Equal(t, "b", resp.Declarations[0].Identifier)

	text, isErr := call(t, createStructHandler(env), map[string]interface{}{
		"text":            "char b[2] = {7};",
		"wrap":            "false",
		"external_assign": "true",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "ds.b_1 = 0;")
}

func TestStructTool_Errors(t *testing.T) {
	t.Parallel()
	handler := createStructHandler(newEnv(t, ""))

	text, isErr := call(t, handler, map[string]interface{}{"text": sample, "var_name": "9bad"})
	assert.True(t, isErr)
	assert.Contains(t, text, "invalid identifier")

	text, isErr = call(t, handler, map[string]interface{}{"text": sample, "name": "zzz"})
	assert.False(t, isErr)
	assert.Equal(t, "no matching declarations", text)

	text, isErr = call(t, handler, map[string]interface{}{"text": "int big[300000000] = {1};"})
	assert.True(t, isErr)
	assert.Contains(t, text, "declared size too large to emit")
}

func TestScanCache_Reuse(t *testing.T) {
	t.Parallel()

	cache, err := NewScanCache(0)
	require.NoError(t, err)
	defer cache.Close()

	first := cache.Results(sample)
	second := cache.Results(sample)
	require.Len(t, first, 4)
	assert.Same(t, &first[0], &second[0], "identical text is served from the cache")

	other := cache.Results("int z[1] = {0};")
	assert.Len(t, other, 1)

	// otter applies writes asynchronously, so only the upper bound is exact
	assert.LessOrEqual(t, cache.Len(), 2)
}

func TestNewMCPServer(t *testing.T) {
	t.Parallel()

	s, err := NewMCPServer(nil, t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, s.mcp)
	assert.NoError(t, s.Close())
}
