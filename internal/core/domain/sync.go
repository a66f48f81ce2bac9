package domain

import "time"

// SyncState records what has been embedded for a source document.
// It is written only after the document's chunks are durably stored.
type SyncState struct {
	// SourceID links to the SourceDocument being tracked.
	SourceID string `json:"sourceId"`

	// SourceType is the type of the tracked document.
	SourceType SourceType `json:"sourceType"`

	// ContentHash is the hash of the canonical text that was embedded.
	ContentHash string `json:"contentHash"`

	// ChunkCount is the number of chunks stored for the document.
	ChunkCount int `json:"chunkCount"`

	// SyncedAt is when the document was last synced.
	SyncedAt time.Time `json:"syncedAt"`
}

// ChangeAction classifies what a sync run did with a document.
type ChangeAction string

// Change actions recorded in a SyncReport.
const (
	ChangeAdded     ChangeAction = "added"
	ChangeUpdated   ChangeAction = "updated"
	ChangeDeleted   ChangeAction = "deleted"
	ChangeUnchanged ChangeAction = "unchanged"
	ChangeSkipped   ChangeAction = "skipped"
	ChangeFailed    ChangeAction = "failed"
)

// ChangeRecord describes the outcome for a single document.
type ChangeRecord struct {
	SourceID   string       `json:"sourceId"`
	SourceType SourceType   `json:"sourceType,omitempty"`
	Action     ChangeAction `json:"action"`
	Chunks     int          `json:"chunks"`
	Error      string       `json:"error,omitempty"`
}

// SyncReport aggregates the outcome of a sync run.
type SyncReport struct {
	RunID       string         `json:"runId"`
	StartedAt   time.Time      `json:"startedAt"`
	FinishedAt  time.Time      `json:"finishedAt"`
	Added       int            `json:"added"`
	Updated     int            `json:"updated"`
	Deleted     int            `json:"deleted"`
	Unchanged   int            `json:"unchanged"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	TotalChunks int            `json:"totalChunks"`
	Changes     []ChangeRecord `json:"changes"`
}

// Record adds a change to the report and updates the counters.
func (r *SyncReport) Record(change ChangeRecord) {
	switch change.Action {
	case ChangeAdded:
		r.Added++
		r.TotalChunks += change.Chunks
	case ChangeUpdated:
		r.Updated++
		r.TotalChunks += change.Chunks
	case ChangeDeleted:
		r.Deleted++
	case ChangeUnchanged:
		r.Unchanged++
	case ChangeSkipped:
		r.Skipped++
	case ChangeFailed:
		r.Failed++
	}
	r.Changes = append(r.Changes, change)
}

// HasFailures returns true if any document failed to sync.
func (r *SyncReport) HasFailures() bool {
	return r.Failed > 0
}

// Summary is the compact counter view returned to webhook callers.
type Summary struct {
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Deleted     int `json:"deleted"`
	Unchanged   int `json:"unchanged"`
	Failed      int `json:"failed"`
	TotalChunks int `json:"totalChunks"`
}

// Summary returns the counters without the change list.
func (r *SyncReport) Summary() Summary {
	return Summary{
		Added:       r.Added,
		Updated:     r.Updated,
		Deleted:     r.Deleted,
		Unchanged:   r.Unchanged,
		Failed:      r.Failed,
		TotalChunks: r.TotalChunks,
	}
}

// FirstError returns the error text of the first failed change, if any.
func (r *SyncReport) FirstError() string {
	for _, change := range r.Changes {
		if change.Action == ChangeFailed && change.Error != "" {
			return change.Error
		}
	}
	if r.Failed > 0 {
		return "document sync failed"
	}
	return ""
}

// ContentEvent signals that a CMS document changed.
type ContentEvent struct {
	// SourceID is the changed document.
	SourceID string

	// Deleted is true when the document no longer exists.
	Deleted bool
}
