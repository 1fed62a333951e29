package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/lf-watcher/pkg/config"
	"github.com/0xmhha/lf-watcher/pkg/daemon"
	"github.com/0xmhha/lf-watcher/pkg/display"
	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/journal"
	"github.com/0xmhha/lf-watcher/pkg/logger"
	"github.com/0xmhha/lf-watcher/pkg/shortcut"
)

// openJournal opens the configured journal. A locked journal means another
// instance owns it.
func openJournal(cfg *config.Config, log logger.Logger) (journal.Journal, error) {
	j, err := journal.Open(journal.Config{DBPath: cfg.Storage.JournalPath}, log.With("component", "journal"))
	if errors.Is(err, journal.ErrJournalLocked) {
		return nil, fmt.Errorf("%w (is the daemon already running?)", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return j, nil
}

// closeJournal closes j, logging failures.
func closeJournal(j journal.Journal, log logger.Logger) {
	if err := j.Close(); err != nil {
		log.Error("failed to close journal", "error", err)
	}
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch and reconcile until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			j, err := openJournal(cfg, log)
			if err != nil {
				return err
			}
			defer closeJournal(j, log)

			d, err := daemon.New(cfg, j, log)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					log.Error("failed to close daemon", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("lf-watcher started", "version", version, "document", cfg.Document.Path)
			return d.Run(ctx)
		},
	}
}

func newScanCmd(opts *globalOptions) *cobra.Command {
	var (
		format  string
		compact bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Reconcile once and print a summary",
		Long: `Load the shared document, write back targets that moved while nothing
was watching, refresh tracking shortcuts and scan the workspace tree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, format, compact)
			if err != nil {
				return err
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			j, err := openJournal(cfg, log)
			if err != nil {
				return err
			}
			defer closeJournal(j, log)

			d, err := daemon.New(cfg, j, log)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			defer func() { _ = d.Close() }()

			s, err := d.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}
			return f.FormatSummary(cmd.OutOrStdout(), s)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (table, json, simple)")
	cmd.Flags().BoolVar(&compact, "compact", false, "compact output")
	return cmd
}

func newResolveCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "resolve <link>",
		Short: "Resolve a shortcut to its target's current location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, format, false)
			if err != nil {
				return err
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			link, err := filepath.Abs(fsutil.ExpandHome(args[0]))
			if err != nil {
				return fmt.Errorf("invalid link path: %w", err)
			}

			store := shortcut.NewStore(daemon.ShortcutOptions(cfg), log)
			return f.FormatResolution(cmd.OutOrStdout(), resolveLink(cmd.Context(), store, link))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (table, json, simple)")
	return cmd
}

// resolveLink resolves link for display.
func resolveLink(ctx context.Context, store *shortcut.Store, link string) display.Resolution {
	r := display.Resolution{Link: link}
	if target, err := store.Target(link); err == nil {
		r.Target = target
	}

	res := store.Resolve(ctx, link)
	r.Status = res.Status.String()
	r.Path = res.Path
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		since    time.Duration
		category string
		limit    int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded renames, moves, deletions and heals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := newFormatter(cmd, format, false)
			if err != nil {
				return err
			}

			cat, err := parseCategory(category)
			if err != nil {
				return err
			}

			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			j, err := openJournal(cfg, log)
			if err != nil {
				return err
			}
			defer closeJournal(j, log)

			list := journal.ListOptions{Category: cat, Limit: limit}
			if since > 0 {
				list.Since = time.Now().Add(-since)
			}

			entries, err := j.List(list)
			if err != nil {
				return fmt.Errorf("failed to read journal: %w", err)
			}
			return f.FormatHistory(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only show entries newer than this (e.g. 24h)")
	cmd.Flags().StringVar(&category, "category", "", "filter by category (link, bookmark, yank)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of entries (0 for all)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (table, json, simple)")
	return cmd
}

// parseCategory converts a --category value; "" matches every category.
func parseCategory(s string) (journal.Category, error) {
	switch c := journal.Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "", journal.CategoryLink, journal.CategoryBookmark, journal.CategoryYank:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q (want link, bookmark or yank)", s)
	}
}
