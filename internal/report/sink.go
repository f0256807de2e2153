package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Sink receives rendered report text one logical line at a time.
type Sink interface {
	WriteLine(line string) error
}

type writerSink struct {
	w io.Writer
}

// WriterSink adapts an io.Writer, terminating every line with '\n'.
func WriterSink(w io.Writer) Sink {
	return &writerSink{w: w}
}

func (s *writerSink) WriteLine(line string) error {
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

type multiSink []Sink

// MultiSink fans every line out to each non-nil sink in order. The first write error
// is returned after all sinks have been attempted.
func MultiSink(sinks ...Sink) Sink {
	var ms multiSink
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	return ms
}

func (ms multiSink) WriteLine(line string) error {
	var first error
	for _, s := range ms {
		if err := s.WriteLine(line); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type discard struct{}

func (discard) WriteLine(string) error { return nil }

// Discard drops everything.
var Discard Sink = discard{}

// FileSink is a buffered Sink backed by a file it owns.
type FileSink struct {
	f *os.File
	w *bufio.Writer
}

// OpenFileSink creates (or truncates) path. With appendMode the file is appended to.
func OpenFileSink(path string, appendMode bool) (*FileSink, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &FileSink{f: f, w: bufio.NewWriter(f)}, nil
}

func (s *FileSink) WriteLine(line string) error {
	if _, err := s.w.WriteString(line); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Flush writes buffered lines to the file.
func (s *FileSink) Flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.f.Name(), err)
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (s *FileSink) Close() error {
	if err := s.Flush(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
