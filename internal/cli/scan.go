package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/dsconv/internal/config"
	"github.com/mvp-joe/dsconv/internal/discovery"
	"github.com/mvp-joe/dsconv/internal/selector"
	"github.com/spf13/cobra"
)

// ErrNoInput is returned when a scan has no targets.
var ErrNoInput = errors.New("no input specified")

// scanOptions holds the flags shared by scan and watch.
type scanOptions struct {
	strings     []string
	silent      bool
	logFile     string
	appendLog   bool
	index       int
	name        string
	emitStruct  bool
	wrap        bool
	ev          bool
	iv          bool
	varName     string
	tag         string
	output      string
	verify      bool
	db          string
	progress    bool
	reportWrap  bool
	showSkipped bool
}

var scanFlags scanOptions

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [targets...]",
	Short: "Scan files, directories or strings for array declarations",
	Long: `Scan reads each target and reports every scalar array declaration with a
brace initializer: its type, name, declared size, initializer count and values.
Positions without an initializer are shown with a placeholder; initializers past
the declared size are listed as excess values.

Targets are files or directories (scanned with the configured include/ignore
globs). Use --string to scan text given on the command line.

Examples:
  # Report every declaration in a file
  dsconv scan src/tables.c

  # Report only the second declaration attempt of an inline string
  dsconv scan -e "int a[2] = {1, 2}; char b[3] = {4};" --index 2

  # Emit the struct form of 'lut', flattened, with assignments
  dsconv scan src/tables.c --name lut --struct --wrap=false --ev

  # Export every declaration under src/ to SQLite without console output
  dsconv scan src/ --silent --db decls.db
`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd, &scanFlags)
	scanCmd.Flags().StringArrayVarP(&scanFlags.strings, "string", "e", nil, "scan this text (repeatable)")
	scanCmd.Flags().BoolVar(&scanFlags.progress, "progress", false, "show a progress bar over targets")
}

// addScanFlags registers the output and selection flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command, opts *scanOptions) {
	f := cmd.Flags()
	f.BoolVarP(&opts.silent, "silent", "s", false, "suppress the console report")
	f.StringVarP(&opts.logFile, "log-file", "l", "", "also write the report to this file")
	f.BoolVar(&opts.appendLog, "append-log", false, "append to the log file instead of truncating it")
	f.IntVarP(&opts.index, "index", "i", 0, "select only the declaration with this 1-based ordinal")
	f.StringVarP(&opts.name, "name", "n", "", "select only declarations with this identifier")
	f.BoolVar(&opts.emitStruct, "struct", false, "emit the struct form of each selected declaration")
	f.BoolVarP(&opts.wrap, "wrap", "w", true, "keep the array as one struct member")
	f.BoolVar(&opts.ev, "ev", false, "emit external assignments after the struct")
	f.BoolVar(&opts.iv, "iv", false, "initialize members inside the struct")
	f.StringVar(&opts.varName, "var-name", "", "struct variable name (default \"ds\")")
	f.StringVar(&opts.tag, "tag", "", "struct tag (default \"s\")")
	f.StringVarP(&opts.output, "output", "o", "", "write structs to this file instead of stdout")
	f.BoolVar(&opts.verify, "verify", false, "syntax-check generated structs and warn on problems")
	f.StringVar(&opts.db, "db", "", "export selected declarations to this SQLite database")
	f.BoolVar(&opts.reportWrap, "report-wrap", false, "wrap value lists in the report")
	f.BoolVar(&opts.showSkipped, "show-skipped", false, "report statements that could not be parsed")

	cmd.MarkFlagsMutuallyExclusive("index", "name")
}

// applyScanFlags overrides configuration with the flags the user set explicitly.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config, opts *scanOptions) {
	changed := cmd.Flags().Changed

	if changed("silent") {
		cfg.Output.Silent = opts.silent
	}
	if changed("log-file") {
		cfg.Output.LogFile = opts.logFile
	}
	if changed("append-log") {
		cfg.Output.AppendLog = opts.appendLog
	}
	if changed("output") {
		cfg.Output.File = opts.output
	}
	if changed("db") {
		cfg.Output.Database = opts.db
	}
	if changed("wrap") {
		cfg.Struct.Wrap = opts.wrap
	}
	if changed("ev") {
		cfg.Struct.ExternalAssign = opts.ev
	}
	if changed("iv") {
		cfg.Struct.InternalInit = opts.iv
	}
	if changed("var-name") {
		cfg.Struct.VarName = opts.varName
	}
	if changed("tag") {
		cfg.Struct.Tag = opts.tag
	}
	if changed("report-wrap") {
		cfg.Report.Wrap = opts.reportWrap
	}
	if changed("show-skipped") {
		cfg.Report.ShowSkipped = opts.showSkipped
	}
}

// filterFromFlags builds the selection filter; --index 0 is rejected rather than ignored.
func filterFromFlags(cmd *cobra.Command, opts *scanOptions) (selector.Filter, error) {
	var index *int
	if cmd.Flags().Changed("index") {
		index = &opts.index
	}
	return selector.FromKeys(index, opts.name)
}

func runScan(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && len(scanFlags.strings) == 0 {
		return ErrNoInput
	}

	filter, err := filterFromFlags(cmd, &scanFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg, &scanFlags)

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Arguments are valid; from here on failures are not usage errors
	cmd.SilenceUsage = true

	return executeScan(cmd.Context(), cfg, &scanFlags, filter, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// executeScan processes file and directory targets, then inline strings.
// Unreadable targets are reported and skipped; they make the scan fail at the end.
func executeScan(ctx context.Context, cfg *config.Config, opts *scanOptions, filter selector.Filter, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 && len(opts.strings) == 0 {
		return ErrNoInput
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fd, err := discovery.NewFileDiscovery(cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return err
	}

	run, err := newScanRun(cfg, opts, filter, stdout, stderr)
	if err != nil {
		return err
	}
	defer run.Close()

	var totals scanTotals

	paths, errs := fd.Expand(args)
	for _, err := range errs {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		totals.Failed++
	}

	run.headers = len(paths)+len(opts.strings) > 1

	progress := newProgressReporter(opts.progress, stderr)
	progress.OnScanStart(len(paths) + len(opts.strings))

	var outputErrs []error
	process := func(t discovery.Target) {
		stats, err := run.processTarget(t)
		if err != nil {
			outputErrs = append(outputErrs, fmt.Errorf("%s: %w", t.Name, err))
		}
		totals.add(stats)
		progress.OnTargetDone()
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := discovery.Load(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			totals.Failed++
			progress.OnTargetDone()
			continue
		}
		process(target)
	}

	for i, text := range opts.strings {
		process(discovery.InlineTarget(i+1, text))
	}

	progress.OnComplete(totals)

	if err := run.Close(); err != nil {
		outputErrs = append(outputErrs, err)
	}
	if len(outputErrs) > 0 {
		return fmt.Errorf("failed to write output: %w", errors.Join(outputErrs...))
	}
	if totals.Failed > 0 {
		return fmt.Errorf("%d target(s) could not be read", totals.Failed)
	}
	return nil
}
