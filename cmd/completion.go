package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hashpipe/internal/digest"
)

var shells = []string{"bash", "zsh", "fish", "powershell"}

func registerCompletions(cmd *cobra.Command, algorithms *digest.Registry) {
	_ = cmd.RegisterFlagCompletionFunc("algorithm", completeAlgorithm(algorithms))
	_ = cmd.RegisterFlagCompletionFunc("completion", cobra.FixedCompletions(shells, cobra.ShellCompDirectiveNoFileComp))
	for _, name := range []string{"key", "prefix", "workers"} {
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.NoFileCompletions)
	}
}

// completeAlgorithm offers the available names of algorithms starting with
// the typed prefix.
func completeAlgorithm(algorithms *digest.Registry) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, name := range algorithms.Available() {
			if strings.HasPrefix(name, toComplete) {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

// noCompletion keeps shells from offering file names for REGEX.
func noCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func writeCompletion(cmd *cobra.Command, shell string) error {
	root := cmd.Root()
	out := cmd.OutOrStdout()
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(out, true)
	case "zsh":
		return root.GenZshCompletion(out)
	case "fish":
		return root.GenFishCompletion(out, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(out)
	default:
		return usageError{fmt.Errorf("unsupported shell %q, want one of: %s", shell, strings.Join(shells, ", "))}
	}
}

func availableList(algorithms *digest.Registry) string {
	return strings.Join(algorithms.Available(), ", ")
}
