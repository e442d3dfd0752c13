package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ansible/ansible-risk-insight-sub000/internal/definitions"
	"github.com/ansible/ansible-risk-insight-sub000/internal/engine"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
	"github.com/ansible/ansible-risk-insight-sub000/internal/model"
)

// Domain: Knowledge Store
// This file contains the ram subcommands that maintain the knowledge store

// createRAMCommand creates the ram subcommand
func (a *App) createRAMCommand() *cobra.Command {
	ramCmd := &cobra.Command{
		Use:   "ram",
		Short: "Manage the knowledge store of registered findings",
	}
	ramCmd.AddCommand(a.createRAMRegisterCommand())
	ramCmd.AddCommand(a.createRAMImportCommand())
	ramCmd.AddCommand(a.createRAMSearchCommand())
	ramCmd.AddCommand(a.createRAMDeleteCommand())
	ramCmd.AddCommand(a.createRAMStatsCommand())
	ramCmd.AddCommand(a.createRAMCompactCommand())
	return ramCmd
}

// withStore opens the knowledge store for the duration of fn
func (a *App) withStore(fn func(store *knowledge.SoloStore) error) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func (a *App) createRAMRegisterCommand() *cobra.Command {
	var meta model.Provenance
	cmd := &cobra.Command{
		Use:   "register <definitions-dir>",
		Short: "Scan a definitions directory and record its findings",
		Long: `Scan a definitions directory and record its definitions in the knowledge
store so that later scans can resolve references to them. The target type
and name default to the mappings of the root bundle.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: CompleteDefinitionDirs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *knowledge.SoloStore) error {
				return a.register(cmd, store, args[0], meta)
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&meta.Type, "type", "", "Target type (collection, role, project, playbook, taskfile)")
	flags.StringVar(&meta.Name, "name", "", "Target name")
	flags.StringVar(&meta.Version, "version", "", "Target version")
	return cmd
}

func (a *App) register(cmd *cobra.Command, store *knowledge.SoloStore, dir string, meta model.Provenance) error {
	root, ext, err := definitions.LoadDir(dir)
	if err != nil {
		return err
	}
	if meta.Type == "" {
		meta.Type = root.Mappings.TargetType
	}
	if meta.Name == "" {
		meta.Name = root.Mappings.TargetName
	}

	eng := engine.NewEngineWithOptions(
		engine.WithOutput(os.Stderr),
		engine.WithStore(store),
		engine.WithVerbose(a.config.Verbose),
	)
	result, err := eng.Scan(cmd.Context(), root, ext)
	if err != nil {
		return err
	}

	f := result.Findings(meta)
	if err := store.Register(f); err != nil {
		return fmt.Errorf("failed to register %s %s: %w", meta.Type, meta.Name, err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "✅ Registered %s %s %s\n", meta.Type, meta.Name, meta.Version)
	if n := len(f.ExtraRequirements); n > 0 {
		_, _ = fmt.Fprintf(out, "   %d definitions came from other registered findings\n", n)
	}
	if n := f.ResolveFailures.Total(); n > 0 {
		_, _ = fmt.Fprintf(out, "⚠️  %d references could not be resolved\n", n)
	}
	return nil
}

func (a *App) createRAMImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <archive>...",
		Short: "Register the findings files contained in archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *knowledge.SoloStore) error {
				for _, path := range args {
					n, err := importArchive(cmd, store, path)
					if err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "📦 %s: %d findings imported\n", path, n)
				}
				return nil
			})
		},
	}
}

func importArchive(cmd *cobra.Command, store knowledge.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	n, err := knowledge.Import(cmd.Context(), store, filepath.Base(path), f)
	if err != nil {
		return n, fmt.Errorf("failed to import %s: %w", path, err)
	}
	return n, nil
}

func (a *App) createRAMSearchCommand() *cobra.Command {
	var callerPath string
	cmd := &cobra.Command{
		Use:               "search <module|role|taskfile> <name>",
		Short:             "Look up a module, role or task file in the knowledge store",
		Args:              cobra.ExactArgs(2),
		ValidArgsFunction: CompleteSearchKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *knowledge.SoloStore) error {
				matches, err := search(store, args[0], args[1], callerPath)
				if err != nil {
					return err
				}
				writeMatches(cmd.OutOrStdout(), matches)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&callerPath, "from", "", "Path of the including file for relative task file lookups")
	return cmd
}

func search(store knowledge.Store, kind, name, callerPath string) ([]knowledge.Match, error) {
	switch kind {
	case "module":
		return store.SearchModule(name)
	case "role":
		return store.SearchRole(name)
	case "taskfile":
		return store.SearchTaskfile(name, callerPath, "")
	}
	return nil, fmt.Errorf("unknown kind %q, expected one of %v", kind, searchKinds)
}

func writeMatches(out io.Writer, matches []knowledge.Match) {
	if len(matches) == 0 {
		_, _ = fmt.Fprintln(out, "No matches")
		return
	}
	for _, m := range matches {
		p := m.Provenance
		_, _ = fmt.Fprintf(out, "%s\n  key: %s\n  from: %s %s %s\n", m.Name, m.Key, p.Type, p.Name, p.Version)
	}
}

func (a *App) createRAMDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <name> [version]",
		Short: "Remove the findings of one target version",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Provenance{Type: args[0], Name: args[1]}
			if len(args) == 3 {
				p.Version = args[2]
			}
			return a.withStore(func(store *knowledge.SoloStore) error {
				if err := store.Delete(p); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "🗑️  Deleted %s %s %s\n", p.Type, p.Name, p.Version)
				return nil
			})
		},
	}
}

func (a *App) createRAMStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *knowledge.SoloStore) error {
				s := store.Stats()
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "📊 Knowledge store: %s\n", a.config.KnowledgeStore)
				_, _ = fmt.Fprintf(out, "   Keys: %d\n", s.Keys)
				_, _ = fmt.Fprintf(out, "   Live records: %d\n", s.LiveRecords)
				_, _ = fmt.Fprintf(out, "   File size: %d bytes\n", s.FileBytes)
				return nil
			})
		},
	}
}

func (a *App) createRAMCompactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim space of replaced and expired findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *knowledge.SoloStore) error {
				before := store.Stats().FileBytes
				if err := store.Compact(); err != nil {
					return fmt.Errorf("failed to compact knowledge store: %w", err)
				}
				after := store.Stats().FileBytes
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Compacted %s: %d -> %d bytes\n", a.config.KnowledgeStore, before, after)
				return nil
			})
		},
	}
}
