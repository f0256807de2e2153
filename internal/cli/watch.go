package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mvp-joe/dsconv/internal/config"
	"github.com/mvp-joe/dsconv/internal/discovery"
	"github.com/mvp-joe/dsconv/internal/selector"
	"github.com/mvp-joe/dsconv/internal/watcher"
	"github.com/spf13/cobra"
)

var watchFlags scanOptions

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Rescan source files whenever they change",
	Long: `Watch scans the given directories once, then rescans every changed file that
matches the configured include globs and reports its declarations again.
Changes are debounced (watch.debounce_ms) and processed in path order.
Stop with Ctrl+C.

Example:
  dsconv watch src/ --name lut --struct -o lut_struct.h
`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addScanFlags(watchCmd, &watchFlags)
}

func runWatch(cmd *cobra.Command, args []string) error {
	filter, err := filterFromFlags(cmd, &watchFlags)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyScanFlags(cmd, cfg, &watchFlags)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, dir := range args {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("failed to watch %s: not a directory", dir)
		}
	}
	cmd.SilenceUsage = true

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\nInterrupted, stopping watch...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return executeWatch(ctx, cfg, &watchFlags, filter, args, cmd)
}

// executeWatch performs the initial scan and then blocks until ctx is cancelled.
func executeWatch(ctx context.Context, cfg *config.Config, opts *scanOptions, filter selector.Filter, dirs []string, cmd *cobra.Command) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	fd, err := discovery.NewFileDiscovery(cfg.Paths.Include, cfg.Paths.Ignore)
	if err != nil {
		return err
	}

	run, err := newScanRun(cfg, opts, filter, stdout, stderr)
	if err != nil {
		return err
	}
	defer run.Close()
	run.headers = true

	paths, errs := fd.Expand(dirs)
	for _, err := range errs {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	if _, err := run.HandleChanges(ctx, paths); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}

	fw, err := watcher.NewFileWatcher(dirs, watcher.Options{
		Debounce: cfg.DebounceInterval(),
		Selector: fd,
		Exclude:  outputPaths(cfg),
	})
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	log.Printf("Watching %d director(ies) for changes to %s files...", len(dirs), strings.Join(cfg.GetSourceExtensions(), ", "))

	coordinator := watcher.NewWatchCoordinator(fw, run)
	if err := coordinator.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
