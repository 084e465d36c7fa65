// resolver.go
package main

// Reason explains why a stage acted, or declined to act, on an article.
type Reason string

const (
	ReasonForced            Reason = "forced"
	ReasonNeverProcessed    Reason = "never_processed"
	ReasonRetryAfterFailure Reason = "retry_after_failure"
	ReasonContentChanged    Reason = "content_changed"
	// ReasonLegacyRecord covers records written before watermarks were
	// tracked: a current watermark exists but no last-processed value was
	// recorded, so the record is treated as stale rather than trusted.
	ReasonLegacyRecord    Reason = "legacy_record"
	ReasonUpToDate        Reason = "up_to_date"
	ReasonMissingArtifact Reason = "missing_artifact"
	ReasonManualSkip      Reason = "manual_skip"
	ReasonNotUploaded     Reason = "not_uploaded"
)

// Decision is the resolver's verdict for one article and one stage.
type Decision struct {
	Act    bool
	Reason Reason
}

// resolveStage is the shared staleness decision table. done/failed describe
// the stage's recorded status (neither set means pending), current is the
// watermark observed now and last the watermark recorded when the stage last
// succeeded. It is a pure function; both stages funnel through it.
func resolveStage(done, failed bool, current, last string, force bool) Decision {
	switch {
	case force:
		return Decision{true, ReasonForced}
	case !done && !failed:
		return Decision{true, ReasonNeverProcessed}
	case failed:
		return Decision{true, ReasonRetryAfterFailure}
	case current == "":
		// Nothing to compare against; leave the record alone.
		return Decision{false, ReasonUpToDate}
	case last == "":
		return Decision{true, ReasonLegacyRecord}
	case current != last:
		return Decision{true, ReasonContentChanged}
	default:
		return Decision{false, ReasonUpToDate}
	}
}

// resolveUpload decides whether the upload stage should act on a record. The
// watermark is the remote updated_at against the version captured at the last
// successful upload.
func resolveUpload(a *Article, force bool) Decision {
	return resolveStage(
		a.UploadStatus == UploadDone,
		a.UploadStatus == UploadFailed,
		a.UpdatedAt,
		a.LastUploadedVersion,
		force,
	)
}

// resolveAttach decides whether the attach stage should act on a record that
// has already passed the skip_from_index and upload_status gates. The
// content watermark runs through the shared table; on top of that, an
// attached record whose attached handle no longer matches the current file
// handle holds a superseded object and must be re-attached even though the
// upload stage already equalized the watermarks.
func resolveAttach(a *Article, force bool) Decision {
	d := resolveStage(
		a.IndexStatus == AttachDone,
		a.IndexStatus == AttachFailed,
		a.UpdatedAt,
		a.LastUploadedVersion,
		force,
	)
	if d.Act || a.IndexStatus != AttachDone {
		return d
	}
	if a.AttachedFileID == "" {
		// Attached before handles were recorded; treat missing
		// provenance as stale.
		return Decision{true, ReasonLegacyRecord}
	}
	if a.AttachedFileID != a.FileID {
		return Decision{true, ReasonContentChanged}
	}
	return d
}
