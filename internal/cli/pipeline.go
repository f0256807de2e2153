package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/mvp-joe/dsconv/internal/config"
	"github.com/mvp-joe/dsconv/internal/discovery"
	"github.com/mvp-joe/dsconv/internal/emitter"
	"github.com/mvp-joe/dsconv/internal/report"
	"github.com/mvp-joe/dsconv/internal/scanner"
	"github.com/mvp-joe/dsconv/internal/selector"
	"github.com/mvp-joe/dsconv/internal/storage"
	"github.com/mvp-joe/dsconv/internal/watcher"
)

// targetStats summarizes one processed target.
type targetStats struct {
	Statements   int
	Declarations int // selected and reported
	Skipped      int
}

// scanTotals summarizes a whole scan.
type scanTotals struct {
	Targets      int
	Declarations int
	Skipped      int
	Failed       int
}

func (t *scanTotals) add(s targetStats) {
	t.Targets++
	t.Declarations += s.Declarations
	t.Skipped += s.Skipped
}

// scanRun carries the outputs of one scan or watch session.
// Targets are processed one at a time, to completion, in order.
type scanRun struct {
	filter      selector.Filter
	reporter    *report.Reporter  // nil when no report sink is attached
	sink        report.Sink       // report sink, for target headers
	logSink     *report.FileSink  // flushed after every target
	emitter     *emitter.Emitter  // nil unless struct output is enabled
	structOut   io.Writer         // struct destination
	verify      bool              // check generated structs with tree-sitter
	exporter    *storage.Exporter // nil unless a database is configured
	showSkipped bool
	headers     bool      // print a header line before each target
	stderr      io.Writer // warnings

	closers []io.Closer
}

// newScanRun opens every output the configuration asks for.
// The caller must Close the run.
func newScanRun(cfg *config.Config, opts *scanOptions, filter selector.Filter, stdout, stderr io.Writer) (*scanRun, error) {
	r := &scanRun{
		filter:      filter,
		verify:      opts.verify,
		showSkipped: cfg.Report.ShowSkipped,
		stderr:      stderr,
	}

	var sinks []report.Sink
	if !cfg.Output.Silent {
		sinks = append(sinks, report.WriterSink(stdout))
	}
	if cfg.Output.LogFile != "" {
		fs, err := report.OpenFileSink(cfg.Output.LogFile, cfg.Output.AppendLog)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, fs)
		r.logSink = fs
		sinks = append(sinks, fs)
	}
	if len(sinks) > 0 {
		r.sink = report.MultiSink(sinks...)
		r.reporter = report.New(r.sink, cfg.ReportOptions())
	}

	if opts.emitStruct {
		em, err := emitter.New(cfg.EmitterOptions())
		if err != nil {
			r.Close()
			return nil, err
		}
		r.emitter = em
		r.structOut = stdout
		if cfg.Output.File != "" {
			f, err := os.Create(cfg.Output.File)
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("failed to create output file: %w", err)
			}
			r.closers = append(r.closers, f)
			r.structOut = f
		}
	}

	if cfg.Output.Database != "" {
		exp, err := storage.Open(cfg.Output.Database)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.exporter = exp
		r.closers = append(r.closers, exp)
	}

	return r, nil
}

// processTarget scans one target and sends every selected record to the outputs.
func (r *scanRun) processTarget(t discovery.Target) (targetStats, error) {
	var stats targetStats
	var errs []error

	if strings.TrimSpace(t.Text) == "" {
		fmt.Fprintf(r.stderr, "Warning: %s: empty input\n", t.Name)
	}

	if r.headers && r.sink != nil {
		if err := r.sink.WriteLine(fmt.Sprintf("==> %s <==", t.Name)); err != nil {
			errs = append(errs, err)
		}
	}

	var selected []scanner.Record
	for res := range scanner.Scan(t.Text) {
		stats.Statements++

		if res.Kind == scanner.Skipped {
			stats.Skipped++
			if r.showSkipped && r.reporter != nil {
				if err := r.reporter.ReportSkipped(res); err != nil {
					errs = append(errs, err)
				}
			}
			continue
		}

		if !r.filter.Match(res.Record) {
			continue
		}
		stats.Declarations++
		selected = append(selected, res.Record)

		if err := r.emit(res.Record); err != nil {
			errs = append(errs, err)
		}
	}

	if r.exporter != nil {
		run, err := r.exporter.BeginRun(t.Name)
		if err != nil {
			errs = append(errs, err)
		} else if err := r.exporter.SaveRecords(run, selected); err != nil {
			errs = append(errs, err)
		}
	}

	if r.logSink != nil {
		if err := r.logSink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}

	log.Printf("Scanned %s: %d statement(s), %d selected, %d skipped", t.Name, stats.Statements, stats.Declarations, stats.Skipped)

	return stats, errors.Join(errs...)
}

// emit reports rec and writes its struct form.
func (r *scanRun) emit(rec scanner.Record) error {
	if r.reporter != nil {
		if err := r.reporter.Report(rec); err != nil {
			return err
		}
	}

	if r.emitter == nil {
		return nil
	}

	code, err := r.emitter.Emit(rec)
	if errors.Is(err, emitter.ErrSizeTooLarge) {
		fmt.Fprintf(r.stderr, "Warning: %v\n", err)
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := io.WriteString(r.structOut, code); err != nil {
		return fmt.Errorf("failed to write struct for %s: %w", rec.Identifier, err)
	}

	if r.verify {
		issues, err := emitter.Verify(code)
		if err != nil {
			return err
		}
		for _, issue := range issues {
			fmt.Fprintf(r.stderr, "Warning: generated struct for %s: %s\n", rec.Identifier, issue)
		}
	}
	return nil
}

// HandleChanges rescans files reported by the watcher.
func (r *scanRun) HandleChanges(ctx context.Context, files []string) (*watcher.ScanStats, error) {
	stats := &watcher.ScanStats{}
	var errs []error

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			stats.FilesRemoved++
			if r.sink != nil {
				if err := r.sink.WriteLine(fmt.Sprintf("==> %s <== (removed)", path)); err != nil {
					errs = append(errs, err)
				}
			}
			continue
		}

		target, err := discovery.Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		ts, err := r.processTarget(target)
		if err != nil {
			errs = append(errs, err)
		}
		stats.FilesScanned++
		stats.Declarations += ts.Declarations
		stats.Skipped += ts.Skipped
	}

	return stats, errors.Join(errs...)
}

// outputPaths lists the files this run writes, so a watcher can ignore them.
func outputPaths(cfg *config.Config) []string {
	var paths []string
	for _, p := range []string{cfg.Output.LogFile, cfg.Output.File, cfg.Output.Database} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Close releases every output opened by newScanRun.
func (r *scanRun) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
