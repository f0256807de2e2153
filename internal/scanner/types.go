package scanner

import (
	"math"
	"strings"
)

// Limits for the token buffers of a single declaration. Characters or values past a
// limit are consumed by the scanner but dropped, and the record carries the matching
// truncation flag so callers can report it.
const (
	MaxTypeLen       = 31
	MaxIdentifierLen = 63
	MaxValueLen      = 31
	MaxValues        = 1000

	// MaxDeclaredSize is the saturation point for the bracket expression.
	MaxDeclaredSize = math.MaxInt32

	// MaxRenderedSize is the largest declared size whose positions are enumerated one
	// by one. Larger declarations still match but are flagged SizeTooLarge.
	MaxRenderedSize = 65536
)

// Kind distinguishes matched declarations from statements the scanner skipped.
type Kind int

const (
	Skipped Kind = iota
	Matched
)

func (k Kind) String() string {
	switch k {
	case Matched:
		return "matched"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Flags records soft conditions noticed while a declaration was parsed.
// None of them prevent a match.
type Flags uint16

const (
	// Unterminated means the statement ended without a ';' (or without a '}').
	Unterminated Flags = 1 << iota
	// MalformedValues means the initializer list stopped on an unexpected character;
	// the rest of the statement up to ';' was discarded.
	MalformedValues
	// SizeSaturated means the bracket expression exceeded MaxDeclaredSize.
	SizeSaturated
	TypeTruncated
	IdentifierTruncated
	ValueTruncated
	ValuesTruncated
	// SizeTooLarge means the declared size exceeds MaxRenderedSize.
	SizeTooLarge
)

var flagDescriptions = []struct {
	flag Flags
	desc string
}{
	{Unterminated, "statement is not terminated by ';'"},
	{MalformedValues, "malformed value list, trailing text discarded"},
	{SizeSaturated, "declared size saturated at 2147483647"},
	{TypeTruncated, "type name truncated to 31 characters"},
	{IdentifierTruncated, "identifier truncated to 63 characters"},
	{ValueTruncated, "value literal truncated to 31 characters"},
	{ValuesTruncated, "value list truncated to 1000 entries"},
	{SizeTooLarge, "declared size exceeds 65536, positions are not enumerated"},
}

// Has reports whether all bits of x are set.
func (f Flags) Has(x Flags) bool {
	return f&x == x
}

// Descriptions returns a human readable line per set flag, in a stable order.
func (f Flags) Descriptions() []string {
	var out []string
	for _, d := range flagDescriptions {
		if f.Has(d.flag) {
			out = append(out, d.desc)
		}
	}
	return out
}

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	return strings.Join(f.Descriptions(), "; ")
}

// Span is a region of the scanned buffer. Start and End are byte offsets (half-open).
// Line and Column are 1-based and locate Start.
type Span struct {
	Start  int
	End    int
	Line   int
	Column int
	Text   string
}

// Record is one parsed array declaration.
type Record struct {
	TypeName     string
	Identifier   string
	DeclaredSize int
	Values       []string
	Span         Span
	Ordinal      int
	Flags        Flags
}

// ValueAt returns the initializer text at position i, if one was supplied.
func (r Record) ValueAt(i int) (string, bool) {
	if i < 0 || i >= len(r.Values) {
		return "", false
	}
	return r.Values[i], true
}

// Uninitialized is the number of declared positions without an initializer.
func (r Record) Uninitialized() int {
	if n := r.DeclaredSize - len(r.Values); n > 0 {
		return n
	}
	return 0
}

// Enumerable reports whether every declared position can be rendered individually.
func (r Record) Enumerable() bool {
	return r.DeclaredSize <= MaxRenderedSize
}

// Excess returns the initializers past the declared size.
func (r Record) Excess() []string {
	if len(r.Values) <= r.DeclaredSize {
		return nil
	}
	return r.Values[r.DeclaredSize:]
}

// Result is one statement produced by the scanner.
//
// Matched results carry a Record. Skipped results carry the Reason the statement
// could not be parsed. Ordinal is 0 for statements that never reached '['.
type Result struct {
	Kind    Kind
	Record  Record
	Span    Span
	Ordinal int
	Reason  error
}
