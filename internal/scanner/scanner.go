// Package scanner extracts C-style scalar array declarations from arbitrary text.
//
// The scanner walks the buffer with a single forward cursor. Each statement either
// parses as `type name[size] = {v0, v1, ...};` and is returned as a Matched result,
// or fails locally and is returned as a Skipped result after the cursor
// resynchronizes on the next ';' (or end of input). A malformed statement never
// stops the scan of the rest of the buffer.
package scanner

import (
	"iter"
	"strings"
)

type state int

const (
	stateStart state = iota
	stateType
	stateIdentifier
	stateSize
	stateAssign
	stateValues
	stateClose
	stateRecovering
	stateDone
)

// Scanner is a pull-style declaration scanner over an immutable buffer.
// A Scanner is not safe for concurrent use; create one per goroutine.
type Scanner struct {
	src     string
	pos     int
	state   state
	ordinal int

	// current statement
	start  int
	rec    Record
	reason error
	errPos int

	// incremental line tracking for locate
	locOff  int
	locLine int
	locCol  int
}

// New returns a scanner positioned at the start of text.
func New(text string) *Scanner {
	return &Scanner{
		src:     text,
		locLine: 1,
		locCol:  1,
	}
}

// Scan returns the lazy sequence of results for text. Every range over the returned
// sequence starts a fresh scan, so the sequence can be consumed any number of times.
func Scan(text string) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		s := New(text)
		for {
			res, ok := s.Next()
			if !ok || !yield(res) {
				return
			}
		}
	}
}

// ScanAll scans text to completion and returns every result in source order.
func ScanAll(text string) []Result {
	var out []Result
	for res := range Scan(text) {
		out = append(out, res)
	}
	return out
}

// Matches returns only the matched records of text.
func Matches(text string) []Record {
	var out []Record
	for res := range Scan(text) {
		if res.Kind == Matched {
			out = append(out, res.Record)
		}
	}
	return out
}

// Next advances to the next statement. It returns false once the input is exhausted.
func (s *Scanner) Next() (Result, bool) {
	for {
		switch s.state {
		case stateStart:
			s.skipSpace()
			if s.eof() {
				s.state = stateDone
				continue
			}
			s.start = s.pos
			s.rec = Record{}
			s.reason = nil
			s.state = stateType

		case stateType:
			name, truncated := s.takeRun(isLetter, isLetter, MaxTypeLen)
			s.rec.TypeName = name
			if truncated {
				s.rec.Flags |= TypeTruncated
			}
			s.state = stateIdentifier

		case stateIdentifier:
			s.skipSpace()
			name, truncated := s.takeRun(isIdentStart, isIdentChar, MaxIdentifierLen)
			s.rec.Identifier = name
			if truncated {
				s.rec.Flags |= IdentifierTruncated
			}
			s.skipSpace()
			if !s.accept('[') {
				s.fail(ErrExpectedOpenBracket)
				continue
			}
			s.ordinal++
			s.rec.Ordinal = s.ordinal
			switch {
			case s.rec.TypeName == "":
				s.failAt(ErrMissingType, s.start)
			case s.rec.Identifier == "":
				s.failAt(ErrMissingIdentifier, s.start)
			default:
				s.state = stateSize
			}

		case stateSize:
			s.scanSize()
			if !s.accept(']') {
				s.fail(ErrExpectedCloseBracket)
				continue
			}
			s.state = stateAssign

		case stateAssign:
			s.skipSpace()
			if !s.accept('=') {
				s.fail(ErrExpectedAssign)
				continue
			}
			s.skipSpace()
			if !s.accept('{') {
				s.fail(ErrExpectedOpenBrace)
				continue
			}
			s.state = stateValues

		case stateValues:
			s.scanValues()
			s.state = stateClose

		case stateClose:
			res := s.finishMatched()
			s.state = stateStart
			return res, true

		case stateRecovering:
			s.resync()
			res := s.finishSkipped()
			s.state = stateStart
			return res, true

		case stateDone:
			return Result{}, false
		}
	}
}

// fail moves the machine into the Recovering state for the current statement.
func (s *Scanner) fail(reason error) {
	s.failAt(reason, s.pos)
}

func (s *Scanner) failAt(reason error, at int) {
	s.reason = reason
	s.errPos = at
	s.state = stateRecovering
}

// resync skips to just past the next ';', or to end of input when there is none.
func (s *Scanner) resync() {
	if idx := strings.IndexByte(s.src[s.pos:], ';'); idx >= 0 {
		s.pos += idx + 1
		return
	}
	s.pos = len(s.src)
}

// scanSize accumulates the bracket digits, saturating at MaxDeclaredSize.
// An empty digit run leaves the size at 0.
func (s *Scanner) scanSize() {
	size := 0
	for !s.eof() && isDigit(s.src[s.pos]) {
		d := int(s.src[s.pos] - '0')
		switch {
		case s.rec.Flags.Has(SizeSaturated):
		case size > (MaxDeclaredSize-d)/10:
			size = MaxDeclaredSize
			s.rec.Flags |= SizeSaturated
		default:
			size = size*10 + d
		}
		s.pos++
	}
	s.rec.DeclaredSize = size
	if size > MaxRenderedSize {
		s.rec.Flags |= SizeTooLarge
	}
}

// scanValues runs the initializer loop. On return the cursor is past the closing '}'
// when one was found; otherwise the Unterminated or MalformedValues flag is set.
func (s *Scanner) scanValues() {
	for {
		s.skipSpace()
		if s.eof() {
			s.rec.Flags |= Unterminated
			return
		}
		if s.src[s.pos] == '}' {
			s.pos++
			return
		}

		tok, ok := s.scanInteger()
		if !ok {
			s.malformed()
			return
		}
		s.appendValue(tok)

		s.skipSpace()
		if s.eof() {
			s.rec.Flags |= Unterminated
			return
		}
		switch s.src[s.pos] {
		case ',':
			s.pos++
		case '}':
			s.pos++
			return
		default:
			s.malformed()
			return
		}
	}
}

// scanInteger reads `-?[0-9]+`. The cursor does not move when no digits follow.
func (s *Scanner) scanInteger() (string, bool) {
	begin := s.pos
	p := s.pos
	if p < len(s.src) && s.src[p] == '-' {
		p++
	}
	digits := p
	for p < len(s.src) && isDigit(s.src[p]) {
		p++
	}
	if p == digits {
		return "", false
	}
	s.pos = p
	return s.src[begin:p], true
}

func (s *Scanner) appendValue(tok string) {
	if len(tok) > MaxValueLen {
		tok = tok[:MaxValueLen]
		s.rec.Flags |= ValueTruncated
	}
	if len(s.rec.Values) >= MaxValues {
		s.rec.Flags |= ValuesTruncated
		return
	}
	s.rec.Values = append(s.rec.Values, tok)
}

// malformed ends the value loop and discards the rest of the statement through ';'.
func (s *Scanner) malformed() {
	s.rec.Flags |= MalformedValues
	if idx := strings.IndexByte(s.src[s.pos:], ';'); idx >= 0 {
		s.pos += idx + 1
		return
	}
	s.pos = len(s.src)
	s.rec.Flags |= Unterminated
}

func (s *Scanner) finishMatched() Result {
	end := s.pos
	if !s.rec.Flags.Has(MalformedValues) && !s.rec.Flags.Has(Unterminated) {
		s.skipSpace()
		if s.accept(';') {
			end = s.pos
		} else {
			s.rec.Flags |= Unterminated
		}
	}
	rec := s.rec
	rec.Span = s.span(s.start, end)
	return Result{
		Kind:    Matched,
		Record:  rec,
		Span:    rec.Span,
		Ordinal: rec.Ordinal,
	}
}

func (s *Scanner) finishSkipped() Result {
	span := s.span(s.start, s.pos)
	line, col := s.locate(s.errPos)
	return Result{
		Kind:    Skipped,
		Span:    span,
		Ordinal: s.rec.Ordinal,
		Reason:  &ParseError{Err: s.reason, Line: line, Column: col},
	}
}

// span builds a Span over [start, end), trimming trailing whitespace.
func (s *Scanner) span(start, end int) Span {
	for end > start && isSpace(s.src[end-1]) {
		end--
	}
	line, col := s.locate(start)
	return Span{
		Start:  start,
		End:    end,
		Line:   line,
		Column: col,
		Text:   s.src[start:end],
	}
}

// locate converts a byte offset to a 1-based line and column. Offsets are usually
// requested in increasing order, so counting resumes from the previous answer.
func (s *Scanner) locate(off int) (int, int) {
	if off < s.locOff {
		s.locOff, s.locLine, s.locCol = 0, 1, 1
	}
	for ; s.locOff < off && s.locOff < len(s.src); s.locOff++ {
		if s.src[s.locOff] == '\n' {
			s.locLine++
			s.locCol = 1
		} else {
			s.locCol++
		}
	}
	return s.locLine, s.locCol
}

// takeRun consumes a maximal run whose first byte satisfies first and remaining bytes
// satisfy rest. At most limit bytes are kept.
func (s *Scanner) takeRun(first, rest func(byte) bool, limit int) (string, bool) {
	if s.eof() || !first(s.src[s.pos]) {
		return "", false
	}
	begin := s.pos
	s.pos++
	for !s.eof() && rest(s.src[s.pos]) {
		s.pos++
	}
	if s.pos-begin > limit {
		return s.src[begin : begin+limit], true
	}
	return s.src[begin:s.pos], false
}

func (s *Scanner) accept(c byte) bool {
	if !s.eof() && s.src[s.pos] == c {
		s.pos++
		return true
	}
	return false
}

func (s *Scanner) skipSpace() {
	for !s.eof() && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *Scanner) eof() bool {
	return s.pos >= len(s.src)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return isLetter(c) || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
