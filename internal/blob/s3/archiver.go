package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alphayield/arbscan/internal/domain"
)

// archiveBatch caps how many rows move to the object store in one pass.
const archiveBatch = 5000

// Archiver moves aged opportunity rows out of PostgreSQL and into the object
// store as JSONL. Rows are only deleted after the upload succeeds; a failed
// upload leaves the primary store untouched and the next pass retries.
type Archiver struct {
	client *Client
	opps   domain.OpportunityStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver backed by the given client and store.
func NewArchiver(client *Client, opps domain.OpportunityStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		client: client,
		opps:   opps,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveBefore uploads opportunities detected before the cutoff to
// archive/opportunities/YYYY-MM.jsonl and deletes them from the primary
// store. It returns the number of archived rows.
func (a *Archiver) ArchiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, cutoff, archiveBatch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	key := archiveKey(cutoff)
	_, err = a.client.S3().PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.client.Bucket()),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload %s: %w", key, err)
	}

	// Delete only up to the newest archived row: ListBefore is batched, so
	// rows past the batch stay for the next pass.
	deleteCutoff := opps[len(opps)-1].Timestamp.Add(time.Nanosecond)
	deleted, err := a.opps.DeleteBefore(ctx, deleteCutoff)
	if err != nil {
		return int64(len(opps)), fmt.Errorf("s3blob: archive delete: %w", err)
	}

	a.logger.InfoContext(ctx, "opportunities archived",
		slog.String("key", key),
		slog.Int("archived", len(opps)),
		slog.Int64("deleted", deleted),
	)
	return int64(len(opps)), nil
}

// Run archives on a fixed interval until ctx is cancelled, keeping only rows
// younger than retention.
func (a *Archiver) Run(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.ArchiveBefore(ctx, time.Now().UTC().Add(-retention)); err != nil {
				a.logger.Error("archive pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

// archiveKey builds the object key, partitioned by the cutoff's year-month.
func archiveKey(cutoff time.Time) string {
	return fmt.Sprintf("archive/opportunities/%s.jsonl", cutoff.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
