package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncReport_Record(t *testing.T) {
	var r SyncReport
	r.Record(ChangeRecord{SourceID: "a", Action: ChangeAdded, Chunks: 3})
	r.Record(ChangeRecord{SourceID: "b", Action: ChangeUpdated, Chunks: 2})
	r.Record(ChangeRecord{SourceID: "c", Action: ChangeDeleted})
	r.Record(ChangeRecord{SourceID: "d", Action: ChangeUnchanged, Chunks: 4})
	r.Record(ChangeRecord{SourceID: "e", Action: ChangeSkipped})
	r.Record(ChangeRecord{SourceID: "f", Action: ChangeFailed, Error: "boom"})

	assert.Equal(t, 1, r.Added)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 1, r.Deleted)
	assert.Equal(t, 1, r.Unchanged)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)
	// Only chunks written this run count.
	assert.Equal(t, 5, r.TotalChunks)
	assert.Len(t, r.Changes, 6)
	assert.True(t, r.HasFailures())
}

func TestSyncReport_Summary(t *testing.T) {
	var r SyncReport
	r.Record(ChangeRecord{SourceID: "a", Action: ChangeAdded, Chunks: 3})
	r.Record(ChangeRecord{SourceID: "b", Action: ChangeUnchanged})

	assert.Equal(t, Summary{Added: 1, Unchanged: 1, TotalChunks: 3}, r.Summary())
	assert.False(t, r.HasFailures())
	assert.Empty(t, r.FirstError())
}

func TestSyncReport_SummaryCountsFailures(t *testing.T) {
	var r SyncReport
	r.Record(ChangeRecord{SourceID: "a", Action: ChangeUnchanged})
	r.Record(ChangeRecord{SourceID: "b", Action: ChangeFailed, Error: "upsert b: store down"})
	r.Record(ChangeRecord{SourceID: "c", Action: ChangeFailed, Error: "later"})

	assert.Equal(t, Summary{Unchanged: 1, Failed: 2}, r.Summary())
	assert.Equal(t, "upsert b: store down", r.FirstError())
}
