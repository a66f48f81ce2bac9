package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driving"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// Ensure SmartSynchronizer implements the interface.
var _ driving.Synchronizer = (*SmartSynchronizer)(nil)

// Lock keys. Full runs exclude each other; single-document operations only
// exclude operations on the same document.
const (
	lockKeyFull   = "sync:full"
	lockKeyPrefix = "sync:doc:"
)

// SyncConfig holds synchroniser settings.
type SyncConfig struct {
	// Concurrency bounds how many documents are processed at once.
	Concurrency int

	// AllowedTypes lists the document types that are indexed. Empty means all.
	AllowedTypes []domain.SourceType
}

// SyncOption configures optional synchroniser collaborators.
type SyncOption func(*SmartSynchronizer)

// WithSyncLock serialises runs through lock.
func WithSyncLock(lock driven.SyncLock) SyncOption {
	return func(s *SmartSynchronizer) { s.lock = lock }
}

// WithReportStore persists every finished run report.
func WithReportStore(store driven.SyncReportStore) SyncOption {
	return func(s *SmartSynchronizer) { s.reports = store }
}

// SmartSynchronizer keeps the vector store consistent with the CMS by
// re-embedding only documents whose canonical text changed.
type SmartSynchronizer struct {
	source     driven.ContentSource
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	store      driven.VectorStore
	lock       driven.SyncLock
	reports    driven.SyncReportStore
	cfg        SyncConfig
	now        func() time.Time

	// Status tracking
	mu      sync.RWMutex
	running int
	last    *domain.SyncReport
}

// NewSmartSynchronizer creates a synchroniser.
// source may be nil when documents are only supplied through SyncDocuments.
func NewSmartSynchronizer(
	source driven.ContentSource,
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cfg SyncConfig,
	opts ...SyncOption,
) *SmartSynchronizer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	s := &SmartSynchronizer{
		source:     source,
		normaliser: normaliser,
		pipeline:   pipeline,
		embedder:   embedder,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync pulls every document from the content source and reconciles the index.
func (s *SmartSynchronizer) Sync(ctx context.Context) (*domain.SyncReport, error) {
	if s.source == nil {
		return nil, domain.ErrContentSourceUnavailable
	}
	return s.locked(ctx, lockKeyFull, func(ctx context.Context, report *domain.SyncReport) error {
		docs, err := s.source.List(ctx)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		logger.Info("Fetched %d documents from %s", len(docs), s.source.Name())
		return s.reconcile(ctx, docs, nil, report)
	})
}

// SyncDocuments reconciles the index against docs, the complete live document set.
func (s *SmartSynchronizer) SyncDocuments(ctx context.Context, docs []domain.SourceDocument) (*domain.SyncReport, error) {
	return s.locked(ctx, lockKeyFull, func(ctx context.Context, report *domain.SyncReport) error {
		return s.reconcile(ctx, docs, nil, report)
	})
}

// SyncOne reconciles a single document fetched from the content source.
// A document missing from the CMS is removed from the index.
func (s *SmartSynchronizer) SyncOne(ctx context.Context, sourceID string) (*domain.SyncReport, error) {
	if s.source == nil {
		return nil, domain.ErrContentSourceUnavailable
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	return s.locked(ctx, lockKeyPrefix+sourceID, func(ctx context.Context, report *domain.SyncReport) error {
		var docs []domain.SourceDocument
		doc, err := s.source.Get(ctx, sourceID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("Document %s not found in %s, treating as deleted", sourceID, s.source.Name())
		case err != nil:
			return fmt.Errorf("get document %s: %w", sourceID, err)
		default:
			docs = append(docs, *doc)
		}
		return s.reconcile(ctx, docs, &sourceID, report)
	})
}

// DeleteOne removes a document's chunks and sync state.
func (s *SmartSynchronizer) DeleteOne(ctx context.Context, sourceID string) (*domain.SyncReport, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: empty source id", domain.ErrInvalidInput)
	}
	return s.locked(ctx, lockKeyPrefix+sourceID, func(ctx context.Context, report *domain.SyncReport) error {
		states, err := s.store.GetSyncState(ctx)
		if err != nil {
			return fmt.Errorf("read sync state: %w", err)
		}
		st, tracked := states[sourceID]

		// Chunks are removed even without state, in case a previous run
		// stored them and failed before recording it.
		if !tracked {
			if err := s.store.DeleteBySource(ctx, sourceID); err != nil {
				return fmt.Errorf("delete chunks: %w", err)
			}
			return nil
		}
		c, err := s.remove(ctx, task{action: domain.ChangeDeleted, sourceID: sourceID, sourceType: st.SourceType})
		if err != nil {
			return err
		}
		report.Record(c)
		return nil
	})
}

// Status returns whether a run is in progress and the last finished report.
func (s *SmartSynchronizer) Status(ctx context.Context) (*driving.SyncStatus, error) {
	s.mu.RLock()
	status := &driving.SyncStatus{Running: s.running > 0, LastReport: s.last}
	s.mu.RUnlock()

	if status.LastReport == nil && s.reports != nil {
		last, err := s.reports.LastReport(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("last report: %w", err)
		}
		status.LastReport = last
	}
	return status, nil
}

// locked runs fn under the sync lock key with status tracking and report bookkeeping.
// The report is returned even when fn fails so callers can see partial progress.
func (s *SmartSynchronizer) locked(
	ctx context.Context,
	key string,
	fn func(ctx context.Context, report *domain.SyncReport) error,
) (*domain.SyncReport, error) {
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx, key)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("release sync lock %s: %v", key, err)
			}
		}()
	}

	s.mu.Lock()
	s.running++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running--
		s.mu.Unlock()
	}()

	report := &domain.SyncReport{
		RunID:     uuid.NewString(),
		StartedAt: s.now(),
		Changes:   []domain.ChangeRecord{},
	}

	err := fn(ctx, report)

	report.FinishedAt = s.now()
	sort.SliceStable(report.Changes, func(i, j int) bool {
		return report.Changes[i].SourceID < report.Changes[j].SourceID
	})

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if s.reports != nil {
		if saveErr := s.reports.SaveReport(context.WithoutCancel(ctx), report); saveErr != nil {
			logger.Warn("save sync report: %v", saveErr)
		}
	}

	if err != nil {
		logger.Error("Sync aborted after %s: %v", report.FinishedAt.Sub(report.StartedAt), err)
		return report, err
	}
	logger.Info("Sync complete: %d added, %d updated, %d deleted, %d unchanged, %d skipped, %d failed, %d chunks",
		report.Added, report.Updated, report.Deleted, report.Unchanged, report.Skipped, report.Failed, report.TotalChunks)
	return report, nil
}

// task is the work planned for one document.
type task struct {
	action     domain.ChangeAction
	sourceID   string
	sourceType domain.SourceType
	doc        *domain.NormalizedDocument
	err        error
}

// reconcile classifies docs against the stored sync state and applies the
// resulting plan. When scope is non-nil only that source ID is considered,
// otherwise docs is the complete live set and anything else tracked is deleted.
func (s *SmartSynchronizer) reconcile(
	ctx context.Context,
	docs []domain.SourceDocument,
	scope *string,
	report *domain.SyncReport,
) error {
	states, err := s.store.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("read sync state: %w", err)
	}
	if scope != nil {
		scoped := make(map[string]domain.SyncState, 1)
		if st, ok := states[*scope]; ok {
			scoped[*scope] = st
		}
		states = scoped
	}

	tasks := s.plan(docs, states)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	var mu sync.Mutex
	record := func(c domain.ChangeRecord) {
		mu.Lock()
		report.Record(c)
		mu.Unlock()
	}

	for _, t := range tasks {
		switch t.action {
		case domain.ChangeUnchanged, domain.ChangeSkipped, domain.ChangeFailed:
			c := domain.ChangeRecord{SourceID: t.sourceID, SourceType: t.sourceType, Action: t.action}
			if t.action == domain.ChangeUnchanged {
				c.Chunks = states[t.sourceID].ChunkCount
			}
			if t.err != nil {
				c.Error = t.err.Error()
			}
			record(c)
			continue
		}

		t := t
		g.Go(func() error {
			var (
				c   domain.ChangeRecord
				err error
			)
			if t.action == domain.ChangeDeleted {
				c, err = s.remove(gctx, t)
			} else {
				c, err = s.index(gctx, t)
			}
			if err != nil {
				if domain.IsFatal(err) || gctx.Err() != nil {
					return fmt.Errorf("sync %s: %w", t.sourceID, err)
				}
				logger.Warn("Failed to sync %s: %v", t.sourceID, err)
				c = domain.ChangeRecord{
					SourceID:   t.sourceID,
					SourceType: t.sourceType,
					Action:     domain.ChangeFailed,
					Error:      err.Error(),
				}
			}
			record(c)
			return nil
		})
	}

	return g.Wait()
}

// plan normalises docs and classifies each against states.
// Tasks are returned in source ID order.
func (s *SmartSynchronizer) plan(docs []domain.SourceDocument, states map[string]domain.SyncState) []task {
	byID := make(map[string]task, len(docs))
	for _, d := range docs {
		if !s.allowed(d.Type) {
			continue
		}

		norm, err := s.normaliser.Normalise(d)
		switch {
		case err != nil:
			byID[d.ID] = task{action: domain.ChangeFailed, sourceID: d.ID, sourceType: d.Type, err: err}
			continue
		case norm == nil:
			// Nothing indexable. A tracked document is removed below as absent.
			if _, tracked := states[d.ID]; !tracked {
				byID[d.ID] = task{action: domain.ChangeSkipped, sourceID: d.ID, sourceType: d.Type}
			}
			continue
		}

		t := task{sourceID: d.ID, sourceType: d.Type, doc: norm}
		prev, tracked := states[d.ID]
		switch {
		case !tracked:
			t.action = domain.ChangeAdded
		case prev.ContentHash == norm.ContentHash:
			t.action = domain.ChangeUnchanged
		default:
			t.action = domain.ChangeUpdated
		}
		byID[d.ID] = t
	}

	for id, st := range states {
		if _, live := byID[id]; !live {
			byID[id] = task{action: domain.ChangeDeleted, sourceID: id, sourceType: st.SourceType}
		}
	}

	tasks := make([]task, 0, len(byID))
	for _, t := range byID {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].sourceID < tasks[j].sourceID })
	return tasks
}

func (s *SmartSynchronizer) allowed(t domain.SourceType) bool {
	if len(s.cfg.AllowedTypes) == 0 {
		return true
	}
	for _, a := range s.cfg.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// index chunks, embeds and stores an added or updated document, then records
// its sync state. State is only written after the chunks are stored.
func (s *SmartSynchronizer) index(ctx context.Context, t task) (domain.ChangeRecord, error) {
	chunks, err := s.pipeline.Process(ctx, t.doc)
	if err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("chunk: %w", err)
	}

	if len(chunks) == 0 {
		// Nothing to index. A previously indexed version must not linger.
		if _, err := s.remove(ctx, t); err != nil {
			return domain.ChangeRecord{}, err
		}
		return domain.ChangeRecord{SourceID: t.sourceID, SourceType: t.sourceType, Action: domain.ChangeSkipped}, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.ChangeRecord{}, fmt.Errorf("embed: expected %d vectors, got %d", len(chunks), len(vectors))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	// Clear every chunk of the previous version before inserting, so a
	// shrinking chunk count leaves no stale tail. For additions this also
	// clears chunks left by an earlier run that failed before recording state.
	if err := s.store.DeleteBySource(ctx, t.sourceID); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("delete old chunks: %w", err)
	}
	if err := s.store.UpsertChunks(ctx, chunks); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("upsert chunks: %w", err)
	}
	if err := s.store.SetSyncState(ctx, domain.SyncState{
		SourceID:    t.sourceID,
		SourceType:  t.sourceType,
		ContentHash: t.doc.ContentHash,
		ChunkCount:  len(chunks),
		SyncedAt:    s.now(),
	}); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("save sync state: %w", err)
	}

	logger.Debug("%s %s (%d chunks)", t.action, t.sourceID, len(chunks))
	return domain.ChangeRecord{
		SourceID:   t.sourceID,
		SourceType: t.sourceType,
		Action:     t.action,
		Chunks:     len(chunks),
	}, nil
}

// remove deletes a document's chunks and then its sync state.
func (s *SmartSynchronizer) remove(ctx context.Context, t task) (domain.ChangeRecord, error) {
	if err := s.store.DeleteBySource(ctx, t.sourceID); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.store.DeleteSyncState(ctx, t.sourceID); err != nil {
		return domain.ChangeRecord{}, fmt.Errorf("delete sync state: %w", err)
	}
	logger.Debug("deleted %s", t.sourceID)
	return domain.ChangeRecord{SourceID: t.sourceID, SourceType: t.sourceType, Action: domain.ChangeDeleted}, nil
}
