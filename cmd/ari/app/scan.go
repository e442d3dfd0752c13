package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/engine"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
	"github.com/ansible/ansible-risk-insight-sub000/internal/parallel"
	"github.com/ansible/ansible-risk-insight-sub000/internal/tree"
)

// Domain: Scanning
// This file contains logic for scanning definition directories

// scanOptions are the flags of the scan command
type scanOptions struct {
	showTree bool
	asJSON   bool
	failFast bool
}

// scanReport is the JSON form of one scanned directory
type scanReport struct {
	Dir     string          `json:"dir"`
	Summary *engine.Summary `json:"summary,omitempty"`
	Trees   []*tree.Tree    `json:"trees,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// createScanCommand creates the scan subcommand
func (a *App) createScanCommand() *cobra.Command {
	opts := scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <definitions-dir>...",
		Short: "Build call trees and resolve task options",
		Long: `Scan one or more definitions directories. Each directory holds a root.yml
bundle and an optional ext/ directory of dependency bundles. Directories are
scanned in parallel, up to --jobs at a time.`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: CompleteDefinitionDirs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.scan(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.showTree, "tree", false, "Print the call tree of every entry point")
	flags.BoolVar(&opts.asJSON, "json", false, "Print results as JSON")
	flags.BoolVar(&opts.failFast, "fail-fast", false, "Stop at the first directory that fails to scan")
	return cmd
}

func (a *App) scan(ctx context.Context, out io.Writer, dirs []string, opts scanOptions) error {
	var store knowledge.Store
	if !a.noStore {
		s, err := a.openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		store = s
	}

	executor := parallel.NewExecutor(a.config.ParallelJobs, opts.failFast, os.Stderr)
	executor.SetVerbose(a.config.Verbose)

	results, err := parallel.Execute(ctx, executor, dirs, func(ctx context.Context, dir string) (*engine.Result, error) {
		return scanDir(ctx, dir, store, a.config.Verbose)
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		err = writeJSONReports(out, results, opts.showTree)
	} else {
		err = writeTextReports(out, results, opts.showTree)
	}
	if err != nil {
		return err
	}

	if failed := parallel.Errors(results); len(failed) > 0 {
		for _, e := range failed {
			ctxlog.FromContext(ctx).Error("scan failed", "error", e)
		}
		return fmt.Errorf("%d of %d scans failed", len(failed), len(dirs))
	}
	return nil
}

// scanDir loads and scans one definitions directory
func scanDir(ctx context.Context, dir string, store knowledge.Store, verbose bool) (*engine.Result, error) {
	root, ext, err := definitions.LoadDir(dir)
	if err != nil {
		return nil, err
	}

	eng := engine.NewEngineWithOptions(
		engine.WithOutput(os.Stderr),
		engine.WithStore(store),
		engine.WithVerbose(verbose),
	)
	return eng.Scan(ctx, root, ext)
}

func writeTextReports(out io.Writer, results []parallel.ExecutionResult[*engine.Result], showTree bool) error {
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "🔍 %s\n", r.Item)
		if r.Error != nil {
			_, _ = fmt.Fprintf(out, "❌ %v\n\n", r.Error)
			continue
		}

		if showTree {
			for _, t := range r.Value.Trees {
				_, _ = fmt.Fprintf(out, "🌳 %s\n%s", model.KeyName(t.Root), t.String())
			}
		}
		if err := r.Value.Summary().WriteText(out); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out)
	}
	return nil
}

func writeJSONReports(out io.Writer, results []parallel.ExecutionResult[*engine.Result], showTree bool) error {
	reports := make([]scanReport, 0, len(results))
	for _, r := range results {
		report := scanReport{Dir: r.Item}
		if r.Error != nil {
			report.Error = r.Error.Error()
		} else {
			summary := r.Value.Summary()
			report.Summary = &summary
			if showTree {
				report.Trees = r.Value.Trees
			}
		}
		reports = append(reports, report)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}
