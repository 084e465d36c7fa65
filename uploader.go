// uploader.go
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Uploader is the upload stage: it pushes stale markdown artifacts to the
// file service one at a time and records the outcome per article. A failing
// item never halts the batch.
type Uploader struct {
	client  *UploadClient
	store   *Store
	log     *zap.SugaredLogger
	dataDir string
	purpose string
	// maxUploads caps how many items are attempted in one run; zero means
	// unlimited.
	maxUploads int
}

// NewUploader creates the upload stage.
func NewUploader(client *UploadClient, store *Store, dataDir, purpose string, maxUploads int, log *zap.SugaredLogger) *Uploader {
	if purpose == "" {
		purpose = "assistants"
	}
	return &Uploader{
		client:     client,
		store:      store,
		log:        log,
		dataDir:    dataDir,
		purpose:    purpose,
		maxUploads: maxUploads,
	}
}

// Run uploads every article the resolver selects. Items are processed
// sequentially in ID order so state mutation stays race-free without
// locking. The store is written back once at the end.
func (u *Uploader) Run(ctx context.Context, force bool) (*UploadSummary, []Result, error) {
	state, err := u.store.Load()
	if err != nil {
		return nil, nil, err
	}

	summary := &UploadSummary{}
	var results []Result
	dirty := false

	for _, id := range sortedIDs(state) {
		rec := state[id]

		d := resolveUpload(rec, force)
		if !d.Act {
			summary.Skipped++
			results = append(results, Result{ID: id, Title: rec.Title, Outcome: OutcomeSkipped, Reason: d.Reason})
			continue
		}
		if u.maxUploads > 0 && summary.Attempted >= u.maxUploads {
			summary.Skipped++
			continue
		}

		res := u.uploadOne(ctx, rec, d.Reason)
		results = append(results, res)

		switch res.Outcome {
		case OutcomeSuccess:
			summary.Attempted++
			summary.Succeeded++
			dirty = true
			u.log.Infow("uploaded", "id", id, "title", rec.Title, "file_id", rec.FileID, "reason", d.Reason)
		case OutcomeSkipped:
			// Missing artifact: warned, not escalated, no state mutation.
			summary.Skipped++
		default:
			summary.Attempted++
			summary.Failed++
			dirty = true
			u.log.Warnw("upload failed", "id", id, "title", rec.Title, "error", res.Err)
		}
	}

	if dirty {
		if err := u.store.Save(state); err != nil {
			return summary, results, fmt.Errorf("persisting metadata: %w", err)
		}
	}

	u.log.Infow("upload stage complete",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
	return summary, results, nil
}

// uploadOne pushes one artifact and mutates the record in place. On success
// the watermark is stamped with the updated_at captured now; on failure the
// last-known-good file handle is left untouched so the index keeps working
// copy until a retry succeeds.
func (u *Uploader) uploadOne(ctx context.Context, rec *Article, reason Reason) Result {
	path := filepath.Join(u.dataDir, rec.MarkdownFile)
	if _, err := os.Stat(path); err != nil {
		u.log.Warnw("artifact missing, skipping upload", "id", rec.ID, "path", path)
		return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeSkipped, Reason: ReasonMissingArtifact}
	}

	rec.LastUploadAttempt = time.Now().Format(time.RFC3339)

	fileID, err := u.client.UploadFile(ctx, path, u.purpose)
	if err != nil {
		rec.UploadStatus = UploadFailed
		rec.UploadError = err.Error()
		return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeFailed, Reason: reason, Err: err}
	}

	rec.UploadStatus = UploadDone
	rec.FileID = fileID
	rec.LastUploadedVersion = rec.UpdatedAt
	rec.UploadError = ""
	return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeSuccess, Reason: reason}
}
