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
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newClientIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "client-id",
		Short: "Print the client id the write service issues to this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			id, err := conn.ClientID(ctx)
			if err != nil {
				return err
			}
			return a.render(map[string]string{"client_id": id}, func(w io.Writer) {
				fmt.Fprintln(w, id)
			})
		},
	}
}

func newFlushCmd(a *app) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "flush SNAPSHOT",
		Short: "Wait until a snapshot is visible to readers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("snapshot id %q: %w", args[0], err)
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			if wait <= 0 {
				wait = a.cfg.Groot.FlushTimeout
			}
			ok, err := conn.RemoteFlush(ctx, snapshot, wait)
			if err != nil {
				return err
			}
			return a.render(map[string]any{"snapshot_id": snapshot, "success": ok}, func(w io.Writer) {
				if ok {
					fmt.Fprintf(w, "snapshot %d is visible\n", snapshot)
				} else {
					fmt.Fprintf(w, "snapshot %d is not visible yet\n", snapshot)
				}
			})
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "how long the server waits (default from config)")
	return cmd
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		offset, timestamp int64
		v2                bool
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the write log from an offset and timestamp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			replay := conn.ReplayRecords
			if v2 {
				replay = conn.ReplayRecordsV2
			}
			snapshot, err := replay(ctx, offset, timestamp)
			if err != nil {
				return err
			}
			return a.render(map[string]int64{"snapshot_id": snapshot}, func(w io.Writer) {
				fmt.Fprintf(w, "replayed to snapshot %d\n", snapshot)
			})
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "log offset to replay from")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "timestamp in milliseconds to replay from")
	cmd.Flags().BoolVar(&v2, "v2", false, "use the administrative service")
	return cmd
}

func newStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show storage usage per partition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			states, err := conn.StoreState(ctx)
			if err != nil {
				return err
			}

			type partition struct {
				ID         int32 `json:"partition"`
				TotalSpace int64 `json:"total_space"`
				UsedSpace  int64 `json:"used_space"`
			}
			rows := make([]partition, 0, len(states))
			for _, id := range slices.Sorted(maps.Keys(states)) {
				rows = append(rows, partition{ID: id, TotalSpace: states[id].TotalSpace, UsedSpace: states[id].UsedSpace})
			}
			return a.render(rows, func(w io.Writer) {
				fmt.Fprintf(w, "%-10s %15s %15s\n", "PARTITION", "USED", "TOTAL")
				for _, r := range rows {
					fmt.Fprintf(w, "%-10d %15d %15d\n", r.ID, r.UsedSpace, r.TotalSpace)
				}
			})
		},
	}
}

func newCompactCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			ok, err := conn.CompactDB(ctx)
			if err != nil {
				return err
			}
			return a.render(map[string]bool{"success": ok}, func(w io.Writer) {
				fmt.Fprintf(w, "compaction acknowledged: %t\n", ok)
			})
		},
	}
}

func newReopenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen-secondary",
		Short: "Make secondary instances catch up with the primary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			conn, err := a.connect(ctx)
			if err != nil {
				return err
			}
			ok, err := conn.ReopenSecondary(ctx)
			if err != nil {
				return err
			}
			return a.render(map[string]bool{"success": ok}, func(w io.Writer) {
				fmt.Fprintf(w, "reopen acknowledged: %t\n", ok)
			})
		},
	}
}
