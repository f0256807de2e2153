// Package selector filters scanner output by ordinal position or identifier.
package selector

import (
	"errors"
	"fmt"
	"iter"

	"github.com/mvp-joe/dsconv/internal/scanner"
)

// ErrInvalidFilter indicates a filter that can never be satisfied by construction.
var ErrInvalidFilter = errors.New("invalid filter")

// Mode is the selection strategy of a Filter.
type Mode int

const (
	ModeNone Mode = iota
	ModeOrdinal
	ModeName
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeOrdinal:
		return "ordinal"
	case ModeName:
		return "name"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Filter selects matched records. Exactly one mode is active.
type Filter struct {
	Mode    Mode
	Ordinal int
	Name    string
}

// All passes every matched record.
func All() Filter {
	return Filter{Mode: ModeNone}
}

// ByOrdinal passes only the record whose 1-based ordinal equals n.
func ByOrdinal(n int) Filter {
	return Filter{Mode: ModeOrdinal, Ordinal: n}
}

// ByName passes records whose identifier equals name exactly (case-sensitive).
func ByName(name string) Filter {
	return Filter{Mode: ModeName, Name: name}
}

// Validate rejects filters that cannot match anything.
func (f Filter) Validate() error {
	switch f.Mode {
	case ModeNone:
		return nil
	case ModeOrdinal:
		if f.Ordinal < 1 {
			return fmt.Errorf("%w: ordinal must be 1 or greater, got %d", ErrInvalidFilter, f.Ordinal)
		}
		return nil
	case ModeName:
		if f.Name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidFilter)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown mode %s", ErrInvalidFilter, f.Mode)
	}
}

// Match reports whether rec satisfies the filter.
func (f Filter) Match(rec scanner.Record) bool {
	switch f.Mode {
	case ModeNone:
		return true
	case ModeOrdinal:
		return rec.Ordinal == f.Ordinal
	case ModeName:
		return rec.Identifier == f.Name
	default:
		return false
	}
}

func (f Filter) String() string {
	switch f.Mode {
	case ModeOrdinal:
		return fmt.Sprintf("ordinal=%d", f.Ordinal)
	case ModeName:
		return fmt.Sprintf("name=%s", f.Name)
	default:
		return "all"
	}
}

// Select yields the matched records of results that satisfy f, in source order.
// Skipped results never pass. Zero matches is an empty sequence.
func Select(results iter.Seq[scanner.Result], f Filter) iter.Seq[scanner.Record] {
	return func(yield func(scanner.Record) bool) {
		for res := range results {
			if res.Kind != scanner.Matched || !f.Match(res.Record) {
				continue
			}
			if !yield(res.Record) {
				return
			}
			// ordinals are unique within one buffer
			if f.Mode == ModeOrdinal {
				return
			}
		}
	}
}

// SelectText scans text and collects the records that satisfy f.
func SelectText(text string, f Filter) []scanner.Record {
	var out []scanner.Record
	for rec := range Select(scanner.Scan(text), f) {
		out = append(out, rec)
	}
	return out
}

// FromKeys builds a filter from optional selection keys as they arrive from a
// command line or tool call. A nil ordinal and empty name select everything.
// Setting both is an error.
func FromKeys(ordinal *int, name string) (Filter, error) {
	var f Filter
	switch {
	case ordinal != nil && name != "":
		return Filter{}, fmt.Errorf("%w: index and name are mutually exclusive", ErrInvalidFilter)
	case ordinal != nil:
		f = ByOrdinal(*ordinal)
	case name != "":
		f = ByName(name)
	default:
		f = All()
	}
	return f, f.Validate()
}
