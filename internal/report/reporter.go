// Package report renders declaration metadata to one or more sinks.
package report

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/mvp-joe/dsconv/internal/scanner"
)

const (
	// DefaultWidth is the column budget for wrapped value lists.
	DefaultWidth = 12

	// DefaultPlaceholder marks declared positions that have no initializer.
	DefaultPlaceholder = "?"
)

// Options control rendering. The zero value renders unwrapped lists with the
// default placeholder and the host architecture.
type Options struct {
	// Wrap breaks value lists once the rendered width would exceed Width.
	// When false every list is one contiguous line.
	Wrap        bool
	Width       int
	Placeholder string
	// Arch overrides the host description used for the int block.
	Arch *ArchInfo
}

// DefaultOptions returns unwrapped rendering with the standard placeholder.
func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Placeholder: DefaultPlaceholder,
	}
}

// Reporter renders metadata reports for selected records.
type Reporter struct {
	sink Sink
	opts Options
	arch ArchInfo
}

// New creates a reporter writing to sink. A nil sink discards output.
func New(sink Sink, opts Options) *Reporter {
	if sink == nil {
		sink = Discard
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Placeholder == "" {
		opts.Placeholder = DefaultPlaceholder
	}
	arch := HostArch()
	if opts.Arch != nil {
		arch = *opts.Arch
	}
	return &Reporter{sink: sink, opts: opts, arch: arch}
}

// Report writes the metadata block for rec.
func (r *Reporter) Report(rec scanner.Record) error {
	var lines []string

	lines = append(lines,
		rec.Span.Text,
		"type: "+rec.TypeName,
		"name: "+rec.Identifier,
	)

	// exact match only: long, short and friends never get the block
	if rec.TypeName == "int" {
		lines = append(lines,
			"arch: "+r.arch.Platform,
			fmt.Sprintf("int size: %d bytes", r.arch.SizeBytes),
			fmt.Sprintf("int min: %d", r.arch.Min),
			fmt.Sprintf("int max: %d", r.arch.Max),
			"int theoretical size: "+r.arch.Theoretical,
		)
	}

	lines = append(lines,
		"size: "+strconv.Itoa(rec.DeclaredSize),
		"init: "+strconv.Itoa(len(rec.Values)),
	)
	lines = append(lines, r.list("values:", r.declaredValues(rec))...)

	if excess := rec.Excess(); len(excess) > 0 {
		lines = append(lines, r.list("excess values:", excess)...)
	}

	for _, w := range rec.Flags.Descriptions() {
		lines = append(lines, "warning: "+w)
	}

	return r.write(lines)
}

// ReportSkipped writes a one-line note for a statement the scanner could not parse.
func (r *Reporter) ReportSkipped(res scanner.Result) error {
	if res.Kind != scanner.Skipped {
		return nil
	}
	text := res.Span.Text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i] + " ..."
	}
	return r.sink.WriteLine(fmt.Sprintf("skipped: %v: %s", res.Reason, text))
}

// declaredValues renders one item per declared position. Records too large to
// enumerate get their initializers followed by a single "<placeholder> x N" item.
func (r *Reporter) declaredValues(rec scanner.Record) []string {
	if !rec.Enumerable() {
		out := slices.Clone(rec.Values)
		if n := rec.Uninitialized(); n > 0 {
			out = append(out, fmt.Sprintf("%s x %d", r.opts.Placeholder, n))
		}
		return out
	}

	out := make([]string, rec.DeclaredSize)
	for i := range out {
		if v, ok := rec.ValueAt(i); ok {
			out[i] = v
		} else {
			out[i] = r.opts.Placeholder
		}
	}
	return out
}

// list renders a labelled, comma separated list as one or more lines.
func (r *Reporter) list(label string, items []string) []string {
	if !r.opts.Wrap {
		if len(items) == 0 {
			return []string{label}
		}
		return []string{label + " " + strings.Join(items, ", ")}
	}

	lines := []string{label}
	var cur strings.Builder
	for i, item := range items {
		piece := item
		if i < len(items)-1 {
			piece += ", "
		}
		if cur.Len() > 0 && cur.Len()+len(piece) > r.opts.Width {
			lines = append(lines, strings.TrimRight(cur.String(), " "))
			cur.Reset()
		}
		cur.WriteString(piece)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

func (r *Reporter) write(lines []string) error {
	var errs []error
	for _, line := range lines {
		if err := r.sink.WriteLine(line); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to write report: %w", errors.Join(errs...))
	}
	return nil
}
