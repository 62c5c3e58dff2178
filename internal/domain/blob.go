package domain

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// RunSummary is the end-of-run report archived at shutdown.
type RunSummary struct {
	RunID       string                     `json:"run_id"`
	Bot         string                     `json:"bot"`
	Environment Environment                `json:"environment"`
	Mode        Mode                       `json:"mode"`
	StartedAt   time.Time                  `json:"started_at"`
	StoppedAt   time.Time                  `json:"stopped_at"`
	Loops       int64                      `json:"loops"`
	Orders      int64                      `json:"orders"`
	Errors      int64                      `json:"errors"`
	Positions   map[string]decimal.Decimal `json:"positions"`
}

// RunArchiver persists the summary of a finished run.
type RunArchiver interface {
	ArchiveRun(ctx context.Context, summary RunSummary) error
}
