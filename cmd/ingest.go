package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skyfence/detection-api/internal/db"
	"github.com/skyfence/detection-api/internal/model"
	"github.com/skyfence/detection-api/internal/store"
	"github.com/skyfence/detection-api/internal/validate"
)

// ingestColumns matches the COPY target; created_at and updated_at are left
// to their server defaults.
var ingestColumns = []string{
	"timestamp", "drone_detected", "confidence", "direction", "distance_ft",
	"visual_confidence", "thermal_confidence", "fused_score",
	"frame_snapshot_url", "stream_name",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Bulk-load detection events from a JSONL file",
	Long:  "Reads one detection per line, validates each, and loads valid rows in batches. Invalid rows are logged and skipped; valid rows still land.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "ingest: open %s", args[0])
		}
		defer f.Close()

		batchSize := cfg.Ingest.BatchSize
		if batchSize < 1 {
			batchSize = 500
		}
		concurrency := cfg.Ingest.Concurrency
		if concurrency < 1 {
			concurrency = 1
		}
		limiter := ingestLimiter(cfg.Ingest.RowsPerSec, batchSize)

		var inserted, skipped atomic.Int64

		batches := make(chan []model.DetectionCreate, concurrency)
		g, ctx := errgroup.WithContext(ctx)

		// Producer: parse and validate line by line.
		g.Go(func() error {
			defer close(batches)

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

			batch := make([]model.DetectionCreate, 0, batchSize)
			line := 0
			for scanner.Scan() {
				line++
				raw := scanner.Bytes()
				if len(raw) == 0 {
					continue
				}

				var in model.DetectionCreate
				if err := json.Unmarshal(raw, &in); err != nil {
					zap.L().Warn("ingest: skipping malformed line",
						zap.Int("line", line), zap.Error(err))
					skipped.Add(1)
					continue
				}
				if err := validate.Detection(in); err != nil {
					zap.L().Warn("ingest: skipping invalid detection",
						zap.Int("line", line), zap.Error(err))
					skipped.Add(1)
					continue
				}

				batch = append(batch, in)
				if len(batch) >= batchSize {
					select {
					case batches <- batch:
					case <-ctx.Done():
						return ctx.Err()
					}
					batch = make([]model.DetectionCreate, 0, batchSize)
				}
			}
			if err := scanner.Err(); err != nil {
				return eris.Wrap(err, "ingest: read input")
			}
			if len(batch) > 0 {
				select {
				case batches <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})

		// Consumers: load batches.
		for i := 0; i < concurrency; i++ {
			g.Go(func() error {
				for batch := range batches {
					if limiter != nil {
						if err := limiter.WaitN(ctx, len(batch)); err != nil {
							return err
						}
					}
					n, err := insertBatch(ctx, st, batch)
					if err != nil {
						return err
					}
					inserted.Add(n)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.Int64("inserted", inserted.Load()),
			zap.Int64("skipped", skipped.Load()),
		)
		return nil
	},
}

// ingestLimiter builds the throughput limiter, or nil when unlimited. The
// burst must admit a full batch: WaitN(n) with n beyond the burst fails
// outright instead of waiting.
func ingestLimiter(rowsPerSec, batchSize int) *rate.Limiter {
	if rowsPerSec < 1 {
		return nil
	}
	burst := rowsPerSec
	if batchSize > burst {
		burst = batchSize
	}
	return rate.NewLimiter(rate.Limit(rowsPerSec), burst)
}

// insertBatch uses COPY when the store exposes a pgx pool, otherwise falls
// back to row-at-a-time creates.
func insertBatch(ctx context.Context, st store.Store, batch []model.DetectionCreate) (int64, error) {
	pg, ok := st.(*store.PostgresStore)
	if !ok {
		for _, in := range batch {
			if _, err := st.CreateDetection(ctx, in); err != nil {
				return 0, err
			}
		}
		return int64(len(batch)), nil
	}

	rows := make([][]any, len(batch))
	for i, in := range batch {
		var direction *string
		if in.Direction != nil {
			d := string(*in.Direction)
			direction = &d
		}
		rows[i] = []any{
			in.Timestamp.UTC(), in.DroneDetected, in.Confidence, direction,
			in.DistanceFt, in.VisualConfidence, in.ThermalConfidence,
			in.FusedScore, in.FrameSnapshotURL, in.StreamName,
		}
	}
	return db.CopyFrom(ctx, pg.Pool(), "detections", ingestColumns, rows)
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
