package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"macesnap/internal/watch"
	"macesnap/pkg/ntfileinfo"
	"macesnap/pkg/snapshot"
)

// errPathsFailed signals that output was produced but some paths failed
var errPathsFailed = errors.New("one or more paths could not be read")

func newQueryCommand(opts *options) *cobra.Command {
	var (
		format string
		glob   bool
		utc    bool
	)

	cmd := &cobra.Command{
		Use:   "query PATH...",
		Short: "Print the MACE timestamps and attributes of each path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Output.Format
			}
			logger := initializeLogger(cfg.LogLevel, cmd.ErrOrStderr())

			snap, err := newSnapshotter(cfg, logger)
			if err != nil {
				return err
			}

			paths := args
			if glob {
				if paths, err = snap.Expand(args); err != nil {
					return err
				}
			}

			entries := make([]snapshot.Entry, 0, len(paths))
			failed := false
			for _, p := range paths {
				rec, err := snap.Query(p)
				if err != nil {
					entries = append(entries, snapshot.Entry{Path: p, Error: err.Error()})
					failed = true
					continue
				}
				entries = append(entries, snapshot.FromRecord(rec))
			}

			if err := writeEntries(cmd.OutOrStdout(), entries, format, timeFormat(cfg, utc)); err != nil {
				return err
			}
			if failed {
				return errPathsFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: text, json or yaml")
	cmd.Flags().BoolVarP(&glob, "glob", "g", false, "expand ** glob patterns in arguments")
	cmd.Flags().BoolVar(&utc, "utc", false, "print times in UTC")
	return cmd
}

func writeEntries(w io.Writer, entries []snapshot.Entry, format string, tf snapshot.TimeFormat) error {
	if format == "text" {
		return snapshot.WriteText(w, entries, tf)
	}
	f, err := snapshot.ParseFormat(format)
	if err != nil {
		return err
	}
	return snapshot.Encode(w, entries, f)
}

func newSnapshotCommand(opts *options) *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "snapshot PATTERN...",
		Short: "Record the timestamps of matching paths to a snapshot file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := initializeLogger(cfg.LogLevel, cmd.ErrOrStderr())

			f := snapshot.FormatFromPath(output)
			if format != "" {
				if f, err = snapshot.ParseFormat(format); err != nil {
					return err
				}
			}

			snap, err := newSnapshotter(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			doc, err := snap.Take(ctx, args)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return snapshot.Encode(cmd.OutOrStdout(), doc, f)
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create snapshot file: %w", err)
			}
			if err := snapshot.Encode(file, doc, f); err != nil {
				file.Close()
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot %s: %d entries (%d failed) written to %s\n",
				doc.ID, len(doc.Entries), doc.Failed(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file to write (stdout when omitted)")
	cmd.Flags().StringVar(&format, "format", "", "snapshot format: yaml or json (default from file extension)")
	return cmd
}

func newDiffCommand(opts *options) *cobra.Command {
	var (
		unified bool
		utc     bool
	)

	cmd := &cobra.Command{
		Use:   "diff BEFORE [AFTER]",
		Short: "Compare a snapshot with another snapshot or with the current state",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := initializeLogger(cfg.LogLevel, cmd.ErrOrStderr())

			before, err := readSnapshot(args[0])
			if err != nil {
				return err
			}

			var after *snapshot.Document
			if len(args) == 2 {
				if after, err = readSnapshot(args[1]); err != nil {
					return err
				}
			} else {
				snap, err := newSnapshotter(cfg, logger)
				if err != nil {
					return err
				}
				if after, err = snap.Take(cmd.Context(), before.Targets()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if unified {
				diff := snapshot.RenderDiff(before, after, timeFormat(cfg, utc))
				if diff == "" {
					fmt.Fprintln(out, "No changes")
					return nil
				}
				_, err := io.WriteString(out, diff)
				return err
			}

			changes := snapshot.Compare(before, after)
			if len(changes) == 0 {
				fmt.Fprintln(out, "No changes")
				return nil
			}
			for _, c := range changes {
				fmt.Fprintf(out, "%s %s\n", c.Kind, c.Path)
				for _, f := range c.Fields {
					fmt.Fprintf(out, "  %s: %s -> %s\n", f.Field, f.Before, f.After)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "print a line diff")
	cmd.Flags().BoolVar(&utc, "utc", false, "print times in UTC")
	return cmd
}

func readSnapshot(path string) (*snapshot.Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	doc, err := snapshot.Decode(file, snapshot.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func newWatchCommand(opts *options) *cobra.Command {
	var utc bool

	cmd := &cobra.Command{
		Use:   "watch PATH...",
		Short: "Print a path's timestamps every time they change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			logger := initializeLogger(cfg.LogLevel, cmd.ErrOrStderr())

			snap, err := newSnapshotter(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tf := timeFormat(cfg, utc)
			out := cmd.OutOrStdout()
			w := watch.New(snap.Query, logger, watch.WithAdmit(snap.Admit))
			return w.Run(ctx, args, func(u watch.Update) {
				printUpdate(out, u, tf)
			})
		},
	}

	cmd.Flags().BoolVar(&utc, "utc", false, "print times in UTC")
	return cmd
}

func printUpdate(w io.Writer, u watch.Update, tf snapshot.TimeFormat) {
	if u.Err != nil {
		fmt.Fprintf(w, "%s: %v\n", u.Path, u.Err)
		return
	}
	entry := snapshot.FromRecord(u.Record)
	fmt.Fprintf(w, "%s M=%s A=%s C=%s E=%s attrs=%s\n",
		u.Path,
		tf.Format(entry.Modified),
		tf.Format(entry.Accessed),
		tf.Format(entry.Created),
		tf.Format(entry.Changed),
		ntfileinfo.FileAttributes(entry.Attributes))
}

