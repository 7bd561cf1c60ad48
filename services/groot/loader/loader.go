// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package loader bulk-loads JSON-lines mutation files into Groot.
//
// Each input line is one mutation:
//
//	{"kind":"vertex","op":"insert","label":"person","pk":{"id":1},"properties":{"name":"marko"}}
//	{"kind":"edge","label":"knows","src":{"label":"person","pk":{"id":1}},"dst":{"label":"person","pk":{"id":2}}}
//
// Lines are grouped into batches, each batch is written as one envelope,
// and a checkpoint is saved after every committed batch so an interrupted
// load can resume where it stopped.
package loader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/grootclient/services/groot/grootpb"
	"github.com/AleutianAI/grootclient/services/groot/record"
	"github.com/AleutianAI/grootclient/services/groot/storage/badger"
	"github.com/AleutianAI/grootclient/services/groot/telemetry"
)

// maxLineSize bounds one input line.
const maxLineSize = 4 * 1024 * 1024

// -----------------------------------------------------------------------------
// Dependencies
// -----------------------------------------------------------------------------

// BatchWriter sends one write envelope. *client.Connection implements it.
type BatchWriter interface {
	BatchWrite(ctx context.Context, req *grootpb.BatchWriteRequest) (int64, error)
}

// Flusher waits for a snapshot to become visible. *client.Connection
// implements it.
type Flusher interface {
	RemoteFlush(ctx context.Context, snapshotID int64, timeout time.Duration) (bool, error)
}

// Checkpointer persists load progress. *badger.CheckpointStore implements it.
type Checkpointer interface {
	Save(ctx context.Context, cp badger.Checkpoint) error
	Load(ctx context.Context, source string) (badger.Checkpoint, error)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// Config configures a Loader.
type Config struct {
	// Source names the input in checkpoints. Required when checkpointing.
	Source string

	// BatchSize is the number of records per envelope.
	// Default: 500
	BatchSize int

	// Rate limits batches per second. Zero means unlimited.
	Rate float64

	// Burst is the number of batches allowed back to back under Rate.
	// Default: 1
	Burst int

	// Resume skips input already committed according to the checkpoint.
	Resume bool

	// SkipInvalid counts and skips malformed lines instead of failing.
	SkipInvalid bool

	// Flush waits for the last snapshot after the final batch.
	Flush bool

	// FlushTimeout is passed to RemoteFlush. Zero uses the flusher's default.
	FlushTimeout time.Duration

	// Logger for progress messages.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultConfig returns the loader defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: 500,
		Burst:     1,
		Logger:    slog.Default(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.BatchSize < 0 {
		return errors.New("batch_size must be non-negative")
	}
	if c.Rate < 0 {
		return errors.New("rate must be non-negative")
	}
	if c.Burst < 0 {
		return errors.New("burst must be non-negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.Burst == 0 {
		c.Burst = defaults.Burst
	}
	if c.Logger == nil {
		c.Logger = defaults.Logger
	}
}

// Option customizes a Loader.
type Option func(*Loader)

// WithFlusher enables the final RemoteFlush when Config.Flush is set.
func WithFlusher(f Flusher) Option {
	return func(l *Loader) { l.flusher = f }
}

// WithCheckpoints saves progress after every batch and enables Resume.
func WithCheckpoints(c Checkpointer) Option {
	return func(l *Loader) { l.checkpoints = c }
}

// WithMetrics counts batches.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// -----------------------------------------------------------------------------
// Loader
// -----------------------------------------------------------------------------

// Result summarizes a load.
type Result struct {
	Records        int64 `json:"records"`
	Batches        int64 `json:"batches"`
	Skipped        int64 `json:"skipped"`
	ResumedFrom    int64 `json:"resumed_from"`
	LastSnapshotID int64 `json:"last_snapshot_id"`
	Flushed        bool  `json:"flushed"`
}

// Loader streams mutation records into a BatchWriter.
type Loader struct {
	config      Config
	writer      BatchWriter
	flusher     Flusher
	checkpoints Checkpointer
	metrics     *telemetry.Metrics
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a Loader.
func New(w BatchWriter, cfg Config, opts ...Option) (*Loader, error) {
	if w == nil {
		return nil, errors.New("batch writer must not be nil")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	l := &Loader{
		config: cfg,
		writer: w,
		logger: cfg.Logger.With(slog.String("component", "groot.loader")),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.checkpoints != nil && cfg.Source == "" {
		return nil, errors.New("source is required when checkpointing")
	}
	if cfg.Rate > 0 {
		l.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	}
	return l, nil
}

// Run loads every record from r.
//
// Description:
//
//	Reads r line by line, converts each line to a write entry, and sends
//	full batches in input order. Blank lines are ignored. After each
//	committed batch the checkpoint records the number of input lines
//	consumed. With Resume set, that many lines are skipped first.
//
// Inputs:
//
//	ctx - Cancels the load between batches and while rate limited.
//	r - JSON-lines input.
//
// Outputs:
//
//	Result - Progress so far. Valid even when err is non-nil.
//	error - The first decode, write, checkpoint or flush failure.
func (l *Loader) Run(ctx context.Context, r io.Reader) (Result, error) {
	var res Result

	start, err := l.resumePoint(ctx)
	if err != nil {
		return res, err
	}
	res.ResumedFrom = start.Offset
	res.LastSnapshotID = start.SnapshotID

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		line  int64
		batch = make([]record.Entry, 0, l.config.BatchSize)
	)
	for scanner.Scan() {
		line++
		if line <= start.Offset {
			continue
		}
		raw := scanner.Bytes()
		if isBlank(raw) {
			continue
		}

		entry, err := ParseLine(raw)
		if err != nil {
			if !l.config.SkipInvalid {
				return res, fmt.Errorf("line %d: %w", line, err)
			}
			res.Skipped++
			l.logger.Warn("skipping invalid record",
				slog.Int64("line", line),
				slog.String("error", err.Error()))
			continue
		}

		batch = append(batch, entry)
		if len(batch) == l.config.BatchSize {
			if err := l.commit(ctx, batch, line, &res); err != nil {
				return res, err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read input: %w", err)
	}
	if len(batch) > 0 {
		if err := l.commit(ctx, batch, line, &res); err != nil {
			return res, err
		}
	}

	if l.config.Flush && l.flusher != nil && res.Batches > 0 {
		ok, err := l.flusher.RemoteFlush(ctx, res.LastSnapshotID, l.config.FlushTimeout)
		if err != nil {
			return res, fmt.Errorf("flush snapshot %d: %w", res.LastSnapshotID, err)
		}
		res.Flushed = ok
	}

	l.logger.Info("load finished",
		slog.String("source", l.config.Source),
		slog.Int64("records", res.Records),
		slog.Int64("batches", res.Batches),
		slog.Int64("skipped", res.Skipped),
		slog.Int64("last_snapshot_id", res.LastSnapshotID),
	)
	return res, nil
}

func (l *Loader) resumePoint(ctx context.Context) (badger.Checkpoint, error) {
	if !l.config.Resume || l.checkpoints == nil {
		return badger.Checkpoint{}, nil
	}
	cp, err := l.checkpoints.Load(ctx, l.config.Source)
	if errors.Is(err, badger.ErrNotFound) {
		return badger.Checkpoint{}, nil
	}
	if err != nil {
		return badger.Checkpoint{}, err
	}
	l.logger.Info("resuming load",
		slog.String("source", cp.Source),
		slog.Int64("offset", cp.Offset),
		slog.Int64("snapshot_id", cp.SnapshotID))
	return cp, nil
}

// commit writes one batch and records the checkpoint at line.
func (l *Loader) commit(ctx context.Context, batch []record.Entry, line int64, res *Result) error {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	snap, err := l.writer.BatchWrite(ctx, record.NewBatch(batch...))
	l.metrics.LoaderBatch(ctx, err)
	if err != nil {
		return fmt.Errorf("write batch ending at line %d: %w", line, err)
	}
	res.Batches++
	res.Records += int64(len(batch))
	res.LastSnapshotID = snap

	l.logger.Debug("batch committed",
		slog.Int("records", len(batch)),
		slog.Int64("line", line),
		slog.Int64("snapshot_id", snap))

	if l.checkpoints == nil {
		return nil
	}
	return l.checkpoints.Save(ctx, badger.Checkpoint{
		Source:     l.config.Source,
		Offset:     line,
		SnapshotID: snap,
	})
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' && c != '\r' {
			return false
		}
	}
	return true
}
