package app

import (
	"os"

	"github.com/spf13/cobra"
)

// Domain: Shell Completion
// This file contains logic for shell completion

// searchKinds are the object kinds ram search looks up
var searchKinds = []string{"module", "role", "taskfile"}

// CompleteSearchKinds provides autocompletion for the kind argument of ram search
func CompleteSearchKinds(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	completions := make([]string, 0, len(searchKinds))
	for _, kind := range searchKinds {
		completions = append(completions, kind+"\t[kind] search "+kind+"s by name")
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

// CompleteDefinitionDirs restricts completion to directories
func CompleteDefinitionDirs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// createCompletionCommand creates the completion subcommand
func (a *App) createCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `Generate shell completion script for ari.

To load completions:

Bash:

  $ source <(ari completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ ari completion bash > /etc/bash_completion.d/ari
  # macOS:
  $ ari completion bash > $(brew --prefix)/etc/bash_completion.d/ari

Zsh:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc
  $ ari completion zsh > "${fpath[1]}/_ari"

Fish:

  $ ari completion fish > ~/.config/fish/completions/ari.fish

PowerShell:

  PS> ari completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = a.rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				_ = a.rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				_ = a.rootCmd.GenFishCompletion(os.Stdout, true)
			case "powershell":
				_ = a.rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
			}
		},
	}
}
