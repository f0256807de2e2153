// Package emitter re-emits a scanned declaration as a C struct.
package emitter

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/dsconv/internal/scanner"
)

const (
	DefaultTag     = "s"
	DefaultVarName = "ds"
)

var (
	// ErrInvalidIdentifier indicates a struct tag or variable name that is not a C identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrSizeTooLarge indicates a record whose declared size exceeds scanner.MaxRenderedSize.
	ErrSizeTooLarge = errors.New("declared size too large to emit")
)

// Options select the struct layout and initialization style.
type Options struct {
	// Wrap keeps the array as a single member. When false every element becomes
	// its own scalar member named <name>_<i>.
	Wrap bool
	// InternalInit initializes members inside the struct body.
	InternalInit bool
	// ExternalAssign emits one assignment statement per element after the struct.
	ExternalAssign bool

	Tag     string
	VarName string
}

// DefaultOptions returns a wrapped struct without initializers.
func DefaultOptions() Options {
	return Options{
		Wrap:    true,
		Tag:     DefaultTag,
		VarName: DefaultVarName,
	}
}

// Emitter generates struct code for records. It holds no state besides its options.
type Emitter struct {
	opts Options
}

// New validates opts and returns an emitter. Empty Tag and VarName fall back to the defaults.
func New(opts Options) (*Emitter, error) {
	if opts.Tag == "" {
		opts.Tag = DefaultTag
	}
	if opts.VarName == "" {
		opts.VarName = DefaultVarName
	}
	if !IsIdentifier(opts.Tag) {
		return nil, fmt.Errorf("%w: struct tag %q", ErrInvalidIdentifier, opts.Tag)
	}
	if !IsIdentifier(opts.VarName) {
		return nil, fmt.Errorf("%w: variable name %q", ErrInvalidIdentifier, opts.VarName)
	}
	return &Emitter{opts: opts}, nil
}

// Options returns the effective options.
func (e *Emitter) Options() Options {
	return e.opts
}

// Emit returns the struct form of rec.
func (e *Emitter) Emit(rec scanner.Record) (string, error) {
	var buf bytes.Buffer
	if err := e.EmitTo(&buf, rec); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EmitTo writes the struct form of rec to w.
func (e *Emitter) EmitTo(w io.Writer, rec scanner.Record) error {
	if rec.TypeName == "" || rec.Identifier == "" {
		return fmt.Errorf("%w: record has no type or name", ErrInvalidIdentifier)
	}
	if !rec.Enumerable() {
		return fmt.Errorf("%w: %s[%d] exceeds %d", ErrSizeTooLarge, rec.Identifier, rec.DeclaredSize, scanner.MaxRenderedSize)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "/* Generated Structural Representation: %s */\n", rec.Identifier)
	fmt.Fprintf(&buf, "struct %s {\n", e.opts.Tag)

	if e.opts.Wrap {
		e.writeWrapped(&buf, rec)
	} else {
		e.writeFlattened(&buf, rec)
	}
	buf.WriteString("\n")

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write struct for %s: %w", rec.Identifier, err)
	}
	return nil
}

func (e *Emitter) writeWrapped(buf *bytes.Buffer, rec scanner.Record) {
	v := e.opts.VarName
	if e.opts.InternalInit {
		fmt.Fprintf(buf, "    %s %s[%d] = {", rec.TypeName, rec.Identifier, rec.DeclaredSize)
		for i := 0; i < rec.DeclaredSize; i++ {
			buf.WriteString(initializer(rec, i))
			if i < rec.DeclaredSize-1 {
				buf.WriteString(", ")
			}
		}
		fmt.Fprintf(buf, "};\n} %s;\n", v)
	} else {
		fmt.Fprintf(buf, "    %s %s[%d];\n} %s;\n", rec.TypeName, rec.Identifier, rec.DeclaredSize, v)
	}

	if e.opts.ExternalAssign {
		for i := 0; i < rec.DeclaredSize; i++ {
			fmt.Fprintf(buf, "%s.%s[%d] = %s;\n", v, rec.Identifier, i, initializer(rec, i))
		}
	}
}

func (e *Emitter) writeFlattened(buf *bytes.Buffer, rec scanner.Record) {
	v := e.opts.VarName
	for i := 0; i < rec.DeclaredSize; i++ {
		if e.opts.InternalInit {
			fmt.Fprintf(buf, "    %s %s_%d = %s;\n", rec.TypeName, rec.Identifier, i, initializer(rec, i))
		} else {
			fmt.Fprintf(buf, "    %s %s_%d;\n", rec.TypeName, rec.Identifier, i)
		}
	}
	fmt.Fprintf(buf, "} %s;\n", v)

	if e.opts.ExternalAssign {
		for i := 0; i < rec.DeclaredSize; i++ {
			fmt.Fprintf(buf, "%s.%s_%d = %s;\n", v, rec.Identifier, i, initializer(rec, i))
		}
	}
}

// initializer returns the value for position i, or "0" when none was supplied.
func initializer(rec scanner.Record, i int) string {
	if v, ok := rec.ValueAt(i); ok {
		return v
	}
	return "0"
}

// IsIdentifier reports whether s is a C identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
