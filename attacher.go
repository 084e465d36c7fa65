// attacher.go
package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"
)

// Attacher is the attach stage: it reconciles uploaded files into the vector
// store. Per article it lands in one of four states: not uploaded (skip),
// uploaded but not attached (attach), attached and current (skip), attached
// but stale (supersede: detach the old handle, refresh the upload if needed,
// attach the new handle).
type Attacher struct {
	client   *UploadClient
	uploader *Uploader
	store    *Store
	log      *zap.SugaredLogger

	storeName string
}

// NewAttacher creates the attach stage. The uploader is borrowed for the
// supersede path, which re-uploads a single stale item to mint a fresh
// handle before attaching.
func NewAttacher(client *UploadClient, uploader *Uploader, store *Store, storeName string, log *zap.SugaredLogger) *Attacher {
	return &Attacher{
		client:    client,
		uploader:  uploader,
		store:     store,
		log:       log,
		storeName: storeName,
	}
}

// Run attaches every eligible article sequentially in ID order and writes
// the store back once. An error ensuring the vector store aborts this stage
// only; per-item failures are recorded and retried on the next run.
func (a *Attacher) Run(ctx context.Context, force bool) (*AttachSummary, []Result, error) {
	state, err := a.store.Load()
	if err != nil {
		return nil, nil, err
	}

	vs, err := a.client.EnsureVectorStore(ctx, a.storeName)
	if err != nil {
		return nil, nil, fmt.Errorf("ensuring vector store %q: %w", a.storeName, err)
	}
	a.log.Infow("vector store ready", "name", vs.Name, "id", vs.ID)

	summary := &AttachSummary{Total: len(state)}
	var results []Result
	dirty := false

	for _, id := range sortedIDs(state) {
		rec := state[id]

		if rec.SkipFromIndex {
			summary.SkippedManual++
			results = append(results, Result{ID: id, Title: rec.Title, Outcome: OutcomeSkipped, Reason: ReasonManualSkip})
			continue
		}
		if rec.UploadStatus != UploadDone || rec.FileID == "" {
			summary.SkippedNotUploaded++
			results = append(results, Result{ID: id, Title: rec.Title, Outcome: OutcomeSkipped, Reason: ReasonNotUploaded})
			continue
		}

		d := resolveAttach(rec, force)
		if !d.Act {
			summary.UpToDate++
			results = append(results, Result{ID: id, Title: rec.Title, Outcome: OutcomeSkipped, Reason: d.Reason})
			continue
		}

		supersede := rec.IndexStatus == AttachDone
		res := a.attachOne(ctx, vs.ID, rec, d.Reason, supersede)
		results = append(results, res)
		dirty = true

		switch {
		case res.Outcome != OutcomeSuccess:
			summary.Failed++
			a.log.Warnw("attach failed", "id", id, "title", rec.Title, "reason", d.Reason, "error", res.Err)
		case supersede:
			summary.Superseded++
			a.log.Infow("superseded", "id", id, "title", rec.Title, "file_id", rec.FileID)
		default:
			summary.Attached++
			a.log.Infow("attached", "id", id, "title", rec.Title, "file_id", rec.FileID)
		}
	}

	if dirty {
		if err := a.store.Save(state); err != nil {
			return summary, results, fmt.Errorf("persisting metadata: %w", err)
		}
	}

	a.log.Infow("attach stage complete",
		"total", summary.Total,
		"attached", summary.Attached,
		"superseded", summary.Superseded,
		"up_to_date", summary.UpToDate,
		"skipped_manual", summary.SkippedManual,
		"skipped_not_uploaded", summary.SkippedNotUploaded,
		"failed", summary.Failed,
	)

	// Readback is informational only.
	if current, err := a.client.GetVectorStore(ctx, vs.ID); err == nil {
		a.log.Infow("vector store file count", "total", current.FileCounts.Total)
	}

	return summary, results, nil
}

// attachOne runs the attach (or supersede) protocol for a single record and
// mutates it in place.
func (a *Attacher) attachOne(ctx context.Context, storeID string, rec *Article, reason Reason, supersede bool) Result {
	stale := rec.AttachedFileID != rec.FileID || rec.UpdatedAt != rec.LastUploadedVersion
	if supersede && rec.AttachedFileID != "" && stale {
		// Best effort: an orphaned index entry is cheaper than losing
		// track of the need to attach the new content.
		if err := a.client.DetachFile(ctx, storeID, rec.AttachedFileID); err != nil {
			a.log.Warnw("could not detach superseded file", "id", rec.ID, "file_id", rec.AttachedFileID, "error", err)
		} else {
			a.log.Infow("detached superseded file", "id", rec.ID, "file_id", rec.AttachedFileID)
		}
	}

	// The uploaded copy itself may be stale when this stage runs on its
	// own; force a fresh upload so the store receives current content.
	if rec.UpdatedAt != rec.LastUploadedVersion {
		up := a.uploader.uploadOne(ctx, rec, ReasonForced)
		if up.Outcome != OutcomeSuccess {
			rec.IndexStatus = AttachFailed
			err := up.Err
			if err == nil {
				err = fmt.Errorf("artifact unavailable for re-upload")
			}
			return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeFailed, Reason: reason, Err: err}
		}
	}

	if err := a.client.AttachFile(ctx, storeID, rec.FileID); err != nil && !isDuplicateAttach(err) {
		rec.IndexStatus = AttachFailed
		return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeFailed, Reason: reason, Err: err}
	} else if err != nil {
		a.log.Infow("file already attached, treating as success", "id", rec.ID, "file_id", rec.FileID)
	}

	rec.IndexStatus = AttachDone
	rec.IndexAttachedAt = time.Now().Format(time.RFC3339)
	rec.IndexID = storeID
	rec.AttachedFileID = rec.FileID
	return Result{ID: rec.ID, Title: rec.Title, Outcome: OutcomeSuccess, Reason: reason}
}

// WriteStatusReport prints the attachment status of every record,
// partitioned by {attached, pending, failed}, with a per-status table of the
// affected articles.
func WriteStatusReport(w io.Writer, state map[string]*Article) {
	counts := map[AttachStatus]int{}
	for _, rec := range state {
		counts[rec.IndexStatus]++
	}

	fmt.Fprintln(w, "VECTOR STORE ATTACHMENT STATUS")
	fmt.Fprintf(w, "total: %d  attached: %d  pending: %d  failed: %d\n\n",
		len(state), counts[AttachDone], counts[AttachPending], counts[AttachFailed])

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Title", "Status", "Attached At"})
	table.SetBorder(false)

	for _, status := range []AttachStatus{AttachFailed, AttachPending, AttachDone} {
		for _, id := range sortedIDs(state) {
			rec := state[id]
			if rec.IndexStatus != status {
				continue
			}
			table.Append([]string{rec.ID, truncate(rec.Title, 48), string(rec.IndexStatus), rec.IndexAttachedAt})
		}
	}
	table.Render()
}
