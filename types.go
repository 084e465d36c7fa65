// types.go
package main

// UploadStatus tracks whether an article's markdown artifact has been pushed
// to the file service.
type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadDone    UploadStatus = "uploaded"
	UploadFailed  UploadStatus = "failed"
)

// AttachStatus tracks whether an uploaded file has been attached to the
// vector store.
type AttachStatus string

const (
	AttachPending AttachStatus = "pending"
	AttachDone    AttachStatus = "attached"
	AttachFailed  AttachStatus = "failed"
)

// Article is one record in the metadata store, keyed by the remote article ID.
// The ID doubles as the markdown filename stem, so no slug collisions are
// possible. Remote timestamps are kept as the verbatim strings the help
// center reports; staleness checks compare them whole and never parse them.
type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SectionID int64  `json:"section_id"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	EditedAt  string `json:"edited_at,omitempty"`

	MarkdownFile string `json:"markdown_file"`
	LastScraped  string `json:"last_scraped,omitempty"`

	UploadStatus      UploadStatus `json:"upload_status"`
	FileID            string       `json:"file_id,omitempty"`
	LastUploadAttempt string       `json:"last_upload_attempt,omitempty"`
	UploadError       string       `json:"upload_error,omitempty"`
	// LastUploadedVersion is the updated_at value that was current at the
	// last successful upload. It is set only on upload success and is the
	// single source of truth for "has content changed since upload".
	LastUploadedVersion string `json:"last_uploaded_version,omitempty"`

	// SkipFromIndex is an operator-editable escape hatch: records with it
	// set are never attached to the vector store.
	SkipFromIndex bool `json:"skip_from_index"`

	IndexStatus     AttachStatus `json:"index_status"`
	IndexAttachedAt string       `json:"index_attached_at,omitempty"`
	IndexID         string       `json:"index_id,omitempty"`
	// AttachedFileID is the file handle actually attached to the vector
	// store. When an upload mints a new FileID this keeps pointing at the
	// old one until the attach stage supersedes it.
	AttachedFileID string `json:"attached_file_id,omitempty"`
}

// Outcome is the per-item result status of a stage.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Result records what a stage did with one article. Stages collect these
// instead of aborting on per-item errors; continue-on-error is the contract,
// not an accident of a catch-all handler.
type Result struct {
	ID      string
	Title   string
	Outcome Outcome
	Reason  Reason
	Err     error
}

// ScrapeSummary is the fetch coordinator's run report.
type ScrapeSummary struct {
	Categories int
	Sections   int
	Articles   int
	Written    int
	Unchanged  int
	Failed     int
}

// UploadSummary is the upload stage's run report.
type UploadSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// AttachSummary is the attach stage's run report.
type AttachSummary struct {
	Total              int
	Attached           int
	Superseded         int
	UpToDate           int
	SkippedManual      int
	SkippedNotUploaded int
	Failed             int
}
