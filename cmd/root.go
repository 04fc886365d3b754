package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hashpipe/internal/config"
	"hashpipe/internal/digest"
	"hashpipe/internal/logctx"
	"hashpipe/internal/pipe"
	"hashpipe/internal/redaction"
)

// Version is overridden at build time with -ldflags "-X hashpipe/cmd.Version=...".
var Version = "1.0.0"

var (
	cfgPath     string
	keyHex      string
	prefix      string
	algorithm   string
	listAlgos   bool
	showVersion bool
	workers     int
	shell       string
	showConfig  bool
	writeConfig bool
)

var rootCmd = &cobra.Command{
	Use:   "hashpipe [flags] REGEX",
	Short: "Replace regular expression matches with keyed digests",
	Long: `Read stdin line by line, hash regex matches, and output the result to stdout.

Each match of REGEX is replaced with <PREFIX + HMAC hex digest>. When REGEX
has capturing groups only the first group is hashed and the rest of the
match is kept as is.

Examples:
  # Pseudonymize email addresses
  hashpipe -k 736563726574 '[\w.+-]+@[\w-]+\.[\w.]+' < app.log

  # Hash only the value of a token parameter
  hashpipe -a sha256 -p tok: 'token=(\w+)' < access.log`,
	Version:           Version,
	Args:              validateArgs,
	ValidArgsFunction: noCompletion,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// usageError marks errors caused by bad arguments or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Run executes the root command and returns the process exit status:
// 0 on success, 2 for usage and configuration errors, 130 when
// interrupted and 1 for anything else.
func Run(ctx context.Context) int {
	defer resetFlags()
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "hashpipe: %v\n", err)
	}
	return exitCode(err)
}

func Execute() {
	os.Exit(Run(context.Background()))
}

func exitCode(err error) int {
	var ue usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case errors.As(err, &ue):
		return 2
	default:
		return 1
	}
}

func init() {
	// One registry serves the help text, completion and the hasher.
	algorithms := digest.NewRegistry()
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runHashpipe(cmd, args, algorithms)
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&keyHex, "key", "k", "", "HMAC key hex encoded, default is empty")
	flags.StringVarP(&prefix, "prefix", "p", "", "Prefix to add in replacements")
	flags.StringVarP(&algorithm, "algorithm", "a", digest.DefaultAlgorithm, "Digest algorithm to use, one of: "+availableList(algorithms))
	flags.BoolVarP(&listAlgos, "available-algorithms", "A", false, "List available algorithms and exit")
	flags.BoolVarP(&showVersion, "version", "V", false, "Print version and exit")
	flags.IntVarP(&workers, "workers", "w", 1, "Number of lines processed concurrently (output order is kept)")
	flags.StringVarP(&cfgPath, "config", "c", "", "Path to config file (default $HOME/.config/hashpipe/config.yaml)")
	flags.BoolVar(&showConfig, "show-config", false, "Print the effective configuration and exit")
	flags.BoolVar(&writeConfig, "save-config", false, "Save key, prefix, algorithm and workers to the config file and exit")
	flags.StringVar(&shell, "completion", "", "Print a completion script for the given shell and exit")
	addLogFlags(flags)

	rootCmd.SetVersionTemplate("hashpipe {{.Version}}\n")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})
	registerCompletions(rootCmd, algorithms)
}

func SetArgs(args []string) {
	rootCmd.SetArgs(args)
}

func SetIn(r io.Reader) {
	rootCmd.SetIn(r)
}

func SetOut(w io.Writer) {
	rootCmd.SetOut(w)
}

func SetErr(w io.Writer) {
	rootCmd.SetErr(w)
}

// resetFlags restores flag defaults so the command can run again in the
// same process.
func resetFlags() {
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

// validateArgs requires REGEX unless a flag that exits early is given.
func validateArgs(cmd *cobra.Command, args []string) error {
	check := cobra.ExactArgs(1)
	if listAlgos || shell != "" || showConfig || writeConfig {
		check = cobra.MaximumNArgs(1)
	}
	if err := check(cmd, args); err != nil {
		return usageError{fmt.Errorf("%w (usage: %s)", err, cmd.UseLine())}
	}
	return nil
}

func runHashpipe(cmd *cobra.Command, args []string, algorithms *digest.Registry) error {
	ctx := cmd.Context()
	lg := logctx.FromContext(ctx)

	switch {
	case shell != "":
		return writeCompletion(cmd, shell)
	case listAlgos:
		for _, name := range algorithms.Available() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	cfg, err := loadSettings(cmd)
	if err != nil {
		return usageError{err}
	}

	switch {
	case showConfig:
		return printConfig(cmd.OutOrStdout(), cfg)
	case writeConfig:
		return storeConfig(cmd, cfg, algorithms)
	}

	pattern, err := redaction.Compile(args[0])
	if err != nil {
		return usageError{err}
	}
	hasher, err := digest.NewHMAC(algorithms, cfg.Algorithm, cfg.Key)
	if err != nil {
		return usageError{fmt.Errorf("%w, see --available-algorithms", err)}
	}
	redactor := redaction.NewRedactor(pattern, hasher, []byte(cfg.Prefix))

	lg.Debug("hashing matches",
		"pattern", pattern.String(),
		"groups", pattern.NumSubexp(),
		"algorithm", hasher.Algorithm(),
		"workers", cfg.Workers,
		"config", cfg.Path)

	stats, err := pipe.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), redactor, pipe.Options{Workers: cfg.Workers})
	if err != nil {
		lg.Error("hashpipe failed", "lines", stats.Lines, "err", err)
		return err
	}
	lg.Info("hashpipe finished", "lines", stats.Lines, "matches", redactor.Matches())
	return nil
}

// loadSettings layers command-line flags over the file and environment
// configuration.
func loadSettings(cmd *cobra.Command) (config.Config, error) {
	load := config.LoadConfig
	if writeConfig {
		load = config.LoadConfigForSave
	}
	cfg, err := load(cfgPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("key") {
		key, err := config.ParseKey(keyHex)
		if err != nil {
			return cfg, fmt.Errorf("--key: %w", err)
		}
		cfg.Key = key
	}
	if flags.Changed("prefix") {
		cfg.Prefix = prefix
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm = algorithm
	}
	if flags.Changed("workers") {
		if workers < 1 {
			return cfg, fmt.Errorf("--workers must be at least 1, got %d", workers)
		}
		cfg.Workers = workers
	}
	return cfg, nil
}
