package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xmhha/lf-watcher/pkg/config"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

var errNoCommand = errors.New("no command specified")

// logLevels is ordered from quietest to noisiest.
var logLevels = []string{"error", "warn", "info", "debug"}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbosity  int
}

// newRootCmd creates the root command with all subcommands attached.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "lf-watcher",
		Short: "Keep lf bookmarks, yank history and workspace links in sync",
		Long: `lf-watcher watches the directories referenced by the file manager's
bookmarks, yank history and workspace shortcuts. Renames are followed,
moves are detected through tracking shortcuts, and references to deleted
files are removed from the shared document.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errNoCommand
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")
	root.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "raise the log level (repeatable)")

	root.SetVersionTemplate("lf-watcher {{.Version}}\n")

	root.AddCommand(
		newRunCmd(opts),
		newScanCmd(opts),
		newResolveCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)

	return root
}

// load reads the configuration and builds a logger for it.
func (o *globalOptions) load() (*config.Config, logger.Logger, error) {
	cfg, err := config.NewLoader(o.configPath).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Logging.Level = effectiveLevel(cfg.Logging.Level, o.verbosity)

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	return cfg, log, nil
}

// effectiveLevel raises base by one level per -v.
func effectiveLevel(base string, verbosity int) string {
	i := 2 // info
	for j, l := range logLevels {
		if l == base {
			i = j
		}
	}

	i += verbosity
	if i >= len(logLevels) {
		i = len(logLevels) - 1
	}
	return logLevels[i]
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lf-watcher %s\n", version)
		},
	}
}
