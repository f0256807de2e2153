package mcp

import "github.com/mvp-joe/dsconv/internal/scanner"

// ScanResponse is the JSON payload of dsconv_scan.
type ScanResponse struct {
	Declarations []Declaration `json:"declarations"`
	Skipped      int           `json:"skipped"` // statements that failed to parse
	Total        int           `json:"total"`   // statements seen, matched or not
}

// Declaration is one selected record.
type Declaration struct {
	Ordinal      int      `json:"ordinal"`
	TypeName     string   `json:"type_name"`
	Identifier   string   `json:"identifier"`
	DeclaredSize int      `json:"declared_size"`
	Values       []string `json:"values"`
	Excess       []string `json:"excess_values,omitempty"`
	Span         string   `json:"span"`
	Line         int      `json:"line"`
	Column       int      `json:"column"`
	Warnings     []string `json:"warnings,omitempty"`
}

func newDeclaration(rec scanner.Record) Declaration {
	values := rec.Values
	if values == nil {
		values = []string{}
	}
	return Declaration{
		Ordinal:      rec.Ordinal,
		TypeName:     rec.TypeName,
		Identifier:   rec.Identifier,
		DeclaredSize: rec.DeclaredSize,
		Values:       values,
		Excess:       rec.Excess(),
		Span:         rec.Span.Text,
		Line:         rec.Span.Line,
		Column:       rec.Span.Column,
		Warnings:     rec.Flags.Descriptions(),
	}
}
