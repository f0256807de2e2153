package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/dsconv/internal/discovery"
	"github.com/mvp-joe/dsconv/internal/emitter"
	"github.com/mvp-joe/dsconv/internal/scanner"
	"github.com/mvp-joe/dsconv/internal/selector"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// toolEnv is what the tool handlers share.
type toolEnv struct {
	cache   *ScanCache
	rootDir string          // base for relative path arguments
	emitter emitter.Options // defaults for dsconv_struct
}

// AddScanTool registers the dsconv_scan tool with an MCP server.
func AddScanTool(s *server.MCPServer, env *toolEnv) {
	tool := mcp.NewTool(
		"dsconv_scan",
		mcp.WithDescription("Scan C source text for scalar array declarations with brace initializers (e.g. 'int a[3] = {1, 2, 3};'). Returns each declaration's type, name, declared size, initializer values and source span as JSON."),
		mcp.WithString("text",
			mcp.Description("C source text to scan. Provide exactly one of text or path.")),
		mcp.WithString("path",
			mcp.Description("Path of a file to scan, relative to the server's working directory.")),
		mcp.WithNumber("index",
			mcp.Description("Only return the declaration with this 1-based ordinal. Ordinals count every declaration attempt, including ones that failed to parse.")),
		mcp.WithString("name",
			mcp.Description("Only return declarations with exactly this identifier (case-sensitive).")),
	)

	s.AddTool(tool, createScanHandler(env))
}

// AddStructTool registers the dsconv_struct tool with an MCP server.
func AddStructTool(s *server.MCPServer, env *toolEnv) {
	tool := mcp.NewTool(
		"dsconv_struct",
		mcp.WithDescription("Convert C scalar array declarations into struct form. Returns generated C code, one struct per selected declaration."),
		mcp.WithString("text",
			mcp.Description("C source text to convert. Provide exactly one of text or path.")),
		mcp.WithString("path",
			mcp.Description("Path of a file to convert, relative to the server's working directory.")),
		mcp.WithNumber("index",
			mcp.Description("Only convert the declaration with this 1-based ordinal.")),
		mcp.WithString("name",
			mcp.Description("Only convert declarations with exactly this identifier.")),
		mcp.WithBoolean("wrap",
			mcp.Description("Keep the array as one struct member (default true). When false each element becomes its own scalar member.")),
		mcp.WithBoolean("internal_init",
			mcp.Description("Initialize members inside the struct body.")),
		mcp.WithBoolean("external_assign",
			mcp.Description("Emit one assignment statement per element after the struct.")),
		mcp.WithString("var_name",
			mcp.Description("Name of the struct variable (default 'ds').")),
	)

	s.AddTool(tool, createStructHandler(env))
}

// createScanHandler creates the handler function for dsconv_scan.
func createScanHandler(env *toolEnv) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req ScanRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, filter, err := env.scan(req)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		response := &ScanResponse{
			Declarations: []Declaration{},
			Total:        len(results),
		}
		for _, res := range results {
			if res.Kind == scanner.Skipped {
				response.Skipped++
			}
		}
		for rec := range selector.Select(slices.Values(results), filter) {
			response.Declarations = append(response.Declarations, newDeclaration(rec))
		}

		jsonData, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}

		// Return as text result (mcp-go convention)
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

// createStructHandler creates the handler function for dsconv_struct.
func createStructHandler(env *toolEnv) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req StructRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		opts := env.emitter
		if req.Wrap != nil {
			opts.Wrap = *req.Wrap
		}
		if req.InternalInit != nil {
			opts.InternalInit = *req.InternalInit
		}
		if req.ExternalAssign != nil {
			opts.ExternalAssign = *req.ExternalAssign
		}
		if req.VarName != "" {
			opts.VarName = req.VarName
		}

		em, err := emitter.New(opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		results, filter, err := env.scan(req.ScanRequest)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		for rec := range selector.Select(slices.Values(results), filter) {
			err := em.EmitTo(&sb, rec)
			if errors.Is(err, emitter.ErrSizeTooLarge) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if err != nil {
				return nil, fmt.Errorf("failed to emit struct: %w", err)
			}
		}
		if sb.Len() == 0 {
			return mcp.NewToolResultText("no matching declarations"), nil
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

// scan resolves the source and filter arguments shared by both tools.
func (env *toolEnv) scan(req ScanRequest) ([]scanner.Result, selector.Filter, error) {
	text, err := env.source(req)
	if err != nil {
		return nil, selector.Filter{}, err
	}

	filter, err := selector.FromKeys(req.Index, req.Name)
	if err != nil {
		return nil, selector.Filter{}, err
	}

	return env.cache.Results(text), filter, nil
}

// source returns the text to scan from either the text or the path argument.
func (env *toolEnv) source(req ScanRequest) (string, error) {
	switch {
	case req.Text != "" && req.Path != "":
		return "", fmt.Errorf("text and path are mutually exclusive")
	case req.Text != "":
		return req.Text, nil
	case req.Path != "":
		path := req.Path
		if !filepath.IsAbs(path) && env.rootDir != "" {
			path = filepath.Join(env.rootDir, path)
		}
		target, err := discovery.Load(path)
		if err != nil {
			return "", err
		}
		return target.Text, nil
	default:
		return "", fmt.Errorf("text or path parameter is required")
	}
}
