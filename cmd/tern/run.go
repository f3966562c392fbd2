package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tern/internal/kernel"
	"tern/internal/ktrace"
	"tern/internal/scenario"
	"tern/internal/snapshot"
)

// resolveTUI maps the --ui flag onto a concrete decision. In "auto" the live
// task view appears only when stdout is a terminal, so piped output stays a
// plain summary.
func resolveTUI(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("--ui must be auto, on or off, got %q", value)
}

var runCmd = &cobra.Command{
	Use:   "run [flags] <scenario.toml>...",
	Short: "Run task-deletion scenarios on the kernel",
	Long:  `Load one or more TOML scenario files, execute them on the cooperative kernel and report how every deletion request resolved`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	runCmd.Flags().String("snapshot", "", "write a task-table snapshot after the run (single scenario only)")
	runCmd.Flags().Int("jobs", 0, "max scenarios run concurrently (0 = GOMAXPROCS)")
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	uiValue, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	useTUI, err := resolveTUI(uiValue)
	if err != nil {
		return err
	}

	snapshotPath, err := cmd.Flags().GetString("snapshot")
	if err != nil {
		return fmt.Errorf("failed to get snapshot flag: %w", err)
	}
	if snapshotPath != "" && len(args) > 1 {
		return fmt.Errorf("--snapshot requires a single scenario file")
	}

	if len(args) == 1 {
		return runOne(cmd.Context(), args[0], snapshotPath, useTUI)
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	return runMany(cmd.Context(), args, jobs)
}

func runOne(ctx context.Context, path, snapshotPath string, useTUI bool) error {
	spec, err := scenario.Load(path)
	if err != nil {
		return err
	}

	opts := scenario.Options{Tracer: ktrace.FromContext(ctx)}
	if snapshotPath != "" {
		opts.PostRun = func(k *kernel.Kernel) error {
			tbl, err := snapshot.Capture(k)
			if err != nil {
				return err
			}
			return snapshot.Write(snapshotPath, tbl)
		}
	}

	var res *scenario.Result
	if useTUI {
		res, err = runWithUI(path, spec, opts)
	} else {
		res, err = scenario.Run(spec, opts)
	}
	if err != nil {
		return err
	}

	printSummary(os.Stdout, path, res)
	return nil
}

func runMany(ctx context.Context, paths []string, jobs int) error {
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]*scenario.Result, len(paths))
	tracer := ktrace.FromContext(ctx)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			spec, err := scenario.Load(path)
			if err != nil {
				return err
			}
			res, err := scenario.Run(spec, scenario.Options{Tracer: tracer})
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range paths {
		printSummary(os.Stdout, path, results[i])
	}
	return nil
}

func printSummary(out *os.File, path string, res *scenario.Result) {
	fmt.Fprintf(out, "%s: %d steps\n", path, res.Steps)
	for _, oc := range res.Outcomes {
		if oc.Err != nil {
			fmt.Fprintf(out, "  %-16s %s\n", oc.Target, oc.Err)
			continue
		}
		fmt.Fprintf(out, "  %-16s %s\n", oc.Target, oc.Outcome)
	}
	if len(res.Survivors) > 0 {
		fmt.Fprintf(out, "  survivors: %v\n", res.Survivors)
	}
}
