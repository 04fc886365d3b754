package cmd

import (
	"os"

	"github.com/google/uuid"
	"github.com/jlrickert/cli-toolkit/mylog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hashpipe/internal/logctx"
)

var (
	logFile  string
	logLevel string
	logJSON  bool

	logCloser func() error
)

func addLogFlags(flags *pflag.FlagSet) {
	flags.StringVar(&logFile, "log-file", "", "write logs to file (default stderr)")
	flags.StringVar(&logLevel, "log-level", "warn", "minimum log level")
	flags.BoolVar(&logJSON, "log-json", false, "output logs as JSON")
}

// setupLogging installs a logger on the command context. Every record
// carries a per-invocation run id so interleaved logs from several
// hashpipe processes in one pipeline can be told apart.
func setupLogging(cmd *cobra.Command, args []string) error {
	out := cmd.ErrOrStderr()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return usageError{err}
		}
		logCloser = f.Close
		out = f
	}

	lg := mylog.NewLogger(mylog.LoggerConfig{
		Out:     out,
		Level:   mylog.ParseLevel(logLevel),
		JSON:    logJSON,
		Version: Version,
	})
	lg = lg.With("run", uuid.NewString())

	cmd.SetContext(logctx.WithLogger(cmd.Context(), lg))
	return nil
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser()
		logCloser = nil
	}
}
