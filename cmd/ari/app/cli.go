package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ansible/ansible-risk-insight-sub000/internal/ctxlog"
	"github.com/ansible/ansible-risk-insight-sub000/internal/knowledge"
)

// Domain: CLI Application Structure
// This file contains the main CLI application setup with Cobra commands and flags

// App represents the CLI application
type App struct {
	version string
	commit  string
	date    string

	rootCmd *cobra.Command

	// Flags
	configFile  string
	storePath   string
	noStore     bool
	jobs        int
	verbose     bool
	showVersion bool
	initConfig  bool

	// config is loaded once before any command runs
	config *WorkspaceConfig
}

// NewApp creates a new CLI application
func NewApp(version, commit, date string) *App {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
	}

	app.rootCmd = &cobra.Command{
		Use:   "ari",
		Short: "Static risk analysis of Ansible content",
		Long: `ari resolves every module, role and task file reference of scanned Ansible
content into call trees, then resolves the options of each task against the
variables in scope.

Definition directories hold a root.yml bundle and an optional ext/ directory
of dependency bundles. References no bundle defines are looked up in the
knowledge store (RAM) of previously registered collections and roles.

Examples:
  ari scan ./defs                     # Scan one definitions directory
  ari scan ./defs ./other --tree      # Scan in parallel and print call trees
  ari ram register ./collection-defs  # Record a scanned collection
  ari ram import findings.tar.gz      # Import findings from an archive
  ari ram search module acme.tools.x  # Look up a module in the store
  ari --init-config                   # Write .ari/config.yml`,
		RunE:              app.run,
		Args:              cobra.NoArgs,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	app.setupFlags()
	app.setupCommands()

	return app
}

// Execute runs the CLI application
func (a *App) Execute() error {
	return a.rootCmd.ExecuteContext(context.Background())
}

// setupFlags sets up all command-line flags
func (a *App) setupFlags() {
	persistent := a.rootCmd.PersistentFlags()
	persistent.StringVarP(&a.configFile, "config", "c", DefaultConfigFile, "Workspace configuration file")
	persistent.StringVar(&a.storePath, "store", "", "Knowledge store file (default: knowledgeStore from the config)")
	persistent.BoolVar(&a.noStore, "no-store", false, "Do not consult the knowledge store")
	persistent.IntVarP(&a.jobs, "jobs", "j", 0, "Number of definition directories scanned in parallel (default: parallelJobs from the config)")
	persistent.BoolVarP(&a.verbose, "verbose", "v", false, "Show detailed resolution information")

	flags := a.rootCmd.Flags()
	flags.BoolVar(&a.showVersion, "version", false, "Show version information")
	flags.BoolVar(&a.initConfig, "init-config", false, "Write a default workspace configuration")
}

// setupCommands sets up subcommands
func (a *App) setupCommands() {
	a.rootCmd.AddCommand(a.createScanCommand())
	a.rootCmd.AddCommand(a.createRAMCommand())
	a.rootCmd.AddCommand(a.createConfigCommand())
	a.rootCmd.AddCommand(a.createVersionCommand())
	a.rootCmd.AddCommand(a.createCompletionCommand())
}

// setup loads the workspace configuration, applies flag overrides and
// installs the logger
func (a *App) setup(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(a.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.KnowledgeStore = a.storePath
	}
	if flags.Changed("jobs") {
		cfg.ParallelJobs = a.jobs
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.config = cfg

	logger := ctxlog.New(os.Stderr, cfg.Verbose)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}

// run is the root command handler
func (a *App) run(cmd *cobra.Command, args []string) error {
	if a.showVersion {
		return ShowVersion(cmd.OutOrStdout(), NewBuildInfo(a.version, a.commit, a.date))
	}
	if a.initConfig {
		return InitializeConfig(a.configFile, cmd.OutOrStdout())
	}
	return cmd.Help()
}

// openStore opens the configured knowledge store
func (a *App) openStore() (*knowledge.SoloStore, error) {
	store, err := knowledge.OpenSoloStore(knowledge.SoloOptions{
		Path:      a.config.KnowledgeStore,
		Retention: time.Duration(a.config.RetentionDays) * 24 * time.Hour,
		LRUSize:   a.config.LRUSize,
	})
	if err != nil {
		return nil, err
	}
	if a.config.Verbose {
		_, _ = fmt.Fprintf(os.Stderr, "🗄️  Knowledge store: %s\n", a.config.KnowledgeStore)
	}
	return store, nil
}

// createConfigCommand creates the config subcommand
func (a *App) createConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the workspace configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default workspace configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return InitializeConfig(a.configFile, cmd.OutOrStdout())
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.config.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	return configCmd
}

// createVersionCommand creates the version subcommand
func (a *App) createVersionCommand() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := NewBuildInfo(a.version, a.commit, a.date)
			if short {
				info.WriteDetails(cmd.OutOrStdout())
				return nil
			}
			return ShowVersion(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print the build details without the banner")
	return cmd
}
