package mcp

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/mark3labs/mcp-go/mcp"
)

// ScanRequest holds the arguments shared by dsconv_scan and dsconv_struct.
type ScanRequest struct {
	Text  string `json:"text,omitempty"`
	Path  string `json:"path,omitempty"`
	Index *int   `json:"index,omitempty"` // nil when not provided; 0 is rejected by the selector
	Name  string `json:"name,omitempty"`
}

// StructRequest adds the emitter overrides accepted by dsconv_struct.
type StructRequest struct {
	ScanRequest

	Wrap           *bool  `json:"wrap,omitempty"`
	InternalInit   *bool  `json:"internal_init,omitempty"`
	ExternalAssign *bool  `json:"external_assign,omitempty"`
	VarName        string `json:"var_name,omitempty"`
}

// bindArguments decodes request arguments into target.
// Some MCP clients send every parameter as a string, so "3" and "true" are coerced
// to the field's type before decoding.
func bindArguments[T any](request mcp.CallToolRequest, target *T) error {
	if _, ok := request.GetRawArguments().(map[string]interface{}); !ok {
		return fmt.Errorf("invalid arguments format")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook:       coerceArgument,
		Result:           target,
		TagName:          "json",
	})
	if err != nil {
		return err
	}

	if err := decoder.Decode(request.GetArguments()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// coerceArgument turns JSON-encoded scalars into values mapstructure can assign and
// rejects fractional numbers for integer fields, which weak typing would truncate.
func coerceArgument(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
	switch f.Kind() {
	case reflect.Float32, reflect.Float64:
		if isInt(t) {
			if v := reflect.ValueOf(data).Float(); v != math.Trunc(v) {
				return nil, fmt.Errorf("expected an integer, got %v", v)
			}
		}
		return data, nil
	case reflect.String:
	default:
		return data, nil
	}

	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return data, nil
	}

	switch {
	case t.Kind() == reflect.Bool:
		if raw == "true" || raw == "false" {
			return raw == "true", nil
		}
	case isInt(t):
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			if _, err := n.Int64(); err != nil {
				return nil, fmt.Errorf("expected an integer, got %s", raw)
			}
			return n, nil
		}
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		var n json.Number
		if err := json.Unmarshal([]byte(raw), &n); err == nil {
			return n, nil
		}
	}
	return data, nil
}

func isInt(t reflect.Type) bool {
	return t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64
}
