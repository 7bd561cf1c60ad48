// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/grootclient/services/groot/loader"
	"github.com/AleutianAI/grootclient/services/groot/storage/badger"
)

func newLoadCmd(a *app) *cobra.Command {
	var (
		batchSize     int
		rate          float64
		checkpointDir string
		resume        bool
		flush         bool
		skipInvalid   bool
	)
	cmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Bulk-load a JSON-lines mutation file",
		Long: `Writes every record of a JSON-lines file, one envelope per batch.

Each line is {"kind","op","label","pk","src","dst","properties"}. Progress is
checkpointed after every batch; --resume continues after the last committed
batch of the same file. Use - to read standard input (no checkpoints).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg := loader.DefaultConfig()
			cfg.BatchSize = a.cfg.Loader.BatchSize
			cfg.Rate = a.cfg.Loader.Rate
			if flags.Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if flags.Changed("rate") {
				cfg.Rate = rate
			}
			dir := a.cfg.Loader.CheckpointDir
			if flags.Changed("checkpoint-dir") {
				dir = checkpointDir
			}
			cfg.Resume = resume
			cfg.Flush = flush
			cfg.SkipInvalid = skipInvalid
			cfg.FlushTimeout = a.cfg.Groot.FlushTimeout
			cfg.Logger = a.log()

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
				if abs, err := filepath.Abs(args[0]); err == nil {
					cfg.Source = abs
				} else {
					cfg.Source = args[0]
				}
			}

			// Loads run until done or interrupted, not for the command timeout.
			ctx := cmd.Context()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			opts := []loader.Option{loader.WithFlusher(conn), loader.WithMetrics(a.metrics)}
			if cfg.Source != "" && dir != "" {
				db, err := badger.Open(badger.Config{
					Path:           expandHome(dir),
					SyncWrites:     true,
					GCInterval:     badger.DefaultConfig().GCInterval,
					GCDiscardRatio: badger.DefaultConfig().GCDiscardRatio,
					Logger:         a.log(),
				})
				if err != nil {
					return fmt.Errorf("open checkpoint store: %w", err)
				}
				defer db.Close()
				opts = append(opts, loader.WithCheckpoints(badger.NewCheckpointStore(db)))
			}

			l, err := loader.New(conn, cfg, opts...)
			if err != nil {
				return err
			}
			res, err := l.Run(ctx, in)
			if err != nil {
				return fmt.Errorf("%w (committed %d records in %d batches)", err, res.Records, res.Batches)
			}
			return a.render(res, func(w io.Writer) {
				fmt.Fprintf(w, "loaded %d records in %d batches", res.Records, res.Batches)
				if res.Skipped > 0 {
					fmt.Fprintf(w, ", skipped %d", res.Skipped)
				}
				if res.ResumedFrom > 0 {
					fmt.Fprintf(w, ", resumed after line %d", res.ResumedFrom)
				}
				fmt.Fprintf(w, "; last snapshot %d", res.LastSnapshotID)
				if flush {
					fmt.Fprintf(w, " (visible: %t)", res.Flushed)
				}
				fmt.Fprintln(w)
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&batchSize, "batch-size", 0, "records per batch (default from config)")
	f.Float64Var(&rate, "rate", 0, "maximum batches per second, 0 for unlimited")
	f.StringVar(&checkpointDir, "checkpoint-dir", "", "checkpoint database directory, empty to disable")
	f.BoolVar(&resume, "resume", false, "skip records committed by an earlier run")
	f.BoolVar(&flush, "flush", false, "wait for the last snapshot to become visible")
	f.BoolVar(&skipInvalid, "skip-invalid", false, "skip malformed lines instead of stopping")
	return cmd
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
