package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// multipartThreshold is the payload size above which uploads go through the
// multipart manager.
const multipartThreshold = 8 * 1024 * 1024

// RunArchiver implements domain.RunArchiver. For each finished run it writes
//
//	<prefix>/<bot>/<yyyy-mm-dd>/<run_id>.json         the summary
//	<prefix>/<bot>/<yyyy-mm-dd>/<run_id>.orders.jsonl the run's orders
//
// The orders file is skipped when no lister is configured or the run placed
// no orders.
type RunArchiver struct {
	writer domain.BlobWriter
	orders domain.OrderLister
	prefix string
	logger *slog.Logger
}

// NewRunArchiver creates a RunArchiver. orders may be nil.
func NewRunArchiver(writer domain.BlobWriter, orders domain.OrderLister, prefix string, logger *slog.Logger) *RunArchiver {
	return &RunArchiver{
		writer: writer,
		orders: orders,
		prefix: prefix,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveRun uploads the summary and the session orders.
func (a *RunArchiver) ArchiveRun(ctx context.Context, s domain.RunSummary) error {
	base := a.runPath(s)

	body, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("s3blob: marshal run summary: %w", err)
	}
	if err := a.writer.Put(ctx, base+".json", bytes.NewReader(body), "application/json"); err != nil {
		return err
	}

	var orderCount int
	if a.orders != nil {
		recs, err := a.orders.ListSince(ctx, s.Bot, s.StartedAt)
		if err != nil {
			return fmt.Errorf("s3blob: list run orders: %w", err)
		}
		orderCount = len(recs)
		if orderCount > 0 {
			buf, err := marshalJSONL(recs)
			if err != nil {
				return fmt.Errorf("s3blob: marshal run orders: %w", err)
			}
			if err := a.upload(ctx, base+".orders.jsonl", buf); err != nil {
				return err
			}
		}
	}

	a.logger.Info("run archived",
		slog.String("path", base),
		slog.String("run_id", s.RunID),
		slog.Int("orders", orderCount),
	)
	return nil
}

func (a *RunArchiver) upload(ctx context.Context, key string, buf []byte) error {
	if len(buf) > multipartThreshold {
		return a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	}
	return a.writer.Put(ctx, key, bytes.NewReader(buf), "application/x-ndjson")
}

// runPath builds the object key stem of a run, partitioned by bot and the
// UTC day the run stopped.
func (a *RunArchiver) runPath(s domain.RunSummary) string {
	return path.Join(a.prefix, s.Bot, s.StoppedAt.UTC().Format("2006-01-02"), s.RunID)
}

// marshalJSONL serializes a slice of values to newline-delimited JSON.
func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, fmt.Errorf("marshal item %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.RunArchiver = (*RunArchiver)(nil)
