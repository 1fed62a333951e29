package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/0xmhha/lf-watcher/pkg/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		newConfigShowCmd(opts),
		newConfigPathCmd(opts),
		newConfigInitCmd(),
	)
	return cmd
}

func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(opts.configPath)
			cfg, err := loader.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprintln(out, string(data))
			case "yaml", "":
				data, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprintln(out, "# Current Configuration")
				fmt.Fprintln(out, "# Source:", configSource(loader.Source()))
				fmt.Fprintln(out)
				fmt.Fprint(out, string(data))
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")
	return cmd
}

func newConfigPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Configuration file search paths (in order of precedence):")
			fmt.Fprintln(out)
			for i, p := range config.SearchPaths() {
				exists := "not found"
				if _, err := os.Stat(p); err == nil {
					exists = "found"
				}
				fmt.Fprintf(out, "  %d. %s [%s]\n", i+1, p, exists)
			}
			fmt.Fprintln(out)

			loader := config.NewLoader(opts.configPath)
			if _, err := loader.Load(); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(out, "Active configuration:", configSource(loader.Source()))
			return nil
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var (
		force  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			path := output
			if path == "" {
				path = config.DefaultConfigPath()
			}

			if _, err := os.Stat(path); err == nil && !force {
				fmt.Fprintf(out, "Configuration file already exists at: %s\n", path)
				fmt.Fprint(out, "Overwrite? [y/N]: ")

				var response string
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &response); err != nil {
					fmt.Fprintln(out, "\nInit cancelled.")
					return nil
				}
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "y" && response != "yes" {
					fmt.Fprintln(out, "Init cancelled.")
					return nil
				}
			}

			if err := config.Save(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(out, "Default configuration written to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite without asking")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: $XDG_CONFIG_HOME/lf-watcher/config.yaml)")
	return cmd
}

// configSource describes where the active configuration came from.
func configSource(source string) string {
	if source == "" {
		return "defaults (no config file found)"
	}
	return source
}
