// Package filesystem reads CMS documents from a local Sanity export: a single
// NDJSON file, or a directory of .json and .ndjson files.
package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/portfolio-rag/internal/connectors"
	"github.com/custodia-labs/portfolio-rag/internal/core/domain"
	"github.com/custodia-labs/portfolio-rag/internal/core/ports/driven"
	"github.com/custodia-labs/portfolio-rag/internal/logger"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.ContentSource  = (*Connector)(nil)
	_ driven.ContentWatcher = (*Connector)(nil)
)

const (
	// maxLineSize bounds a single NDJSON document.
	maxLineSize = 8 << 20

	// defaultDebounce is the quiet period after the last file event before
	// the export is reloaded.
	defaultDebounce = 250 * time.Millisecond
)

// Connector reads documents from path.
type Connector struct {
	path     string
	types    []domain.SourceType
	debounce time.Duration
}

// New creates a filesystem connector. types restricts List to those
// document types; nil keeps every supported type.
func New(path string, types []domain.SourceType) *Connector {
	if len(types) == 0 {
		types = domain.AllSourceTypes()
	}
	return &Connector{path: path, types: types, debounce: defaultDebounce}
}

// Name returns the connector name.
func (c *Connector) Name() string {
	return "filesystem"
}

// Validate checks that the export path exists.
func (c *Connector) Validate() error {
	if c.path == "" {
		return fmt.Errorf("%w: content export path is empty", domain.ErrContentSourceUnavailable)
	}
	if _, err := os.Stat(c.path); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrContentSourceUnavailable, err)
	}
	return nil
}

// List returns every published document of the configured types, sorted by ID.
// When an ID appears more than once the last occurrence wins.
func (c *Connector) List(_ context.Context) ([]domain.SourceDocument, error) {
	snap, err := c.load()
	if err != nil {
		return nil, err
	}
	return snap.documents(), nil
}

// Get returns one document by ID.
func (c *Connector) Get(ctx context.Context, id string) (*domain.SourceDocument, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// snapshot holds the documents read from disk with a fingerprint per ID.
type snapshot struct {
	docs         map[string]domain.SourceDocument
	fingerprints map[string][32]byte
}

func (s snapshot) documents() []domain.SourceDocument {
	out := make([]domain.SourceDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Connector) load() (snapshot, error) {
	if err := c.Validate(); err != nil {
		return snapshot{}, err
	}

	files, err := c.files()
	if err != nil {
		return snapshot{}, err
	}

	snap := snapshot{
		docs:         make(map[string]domain.SourceDocument),
		fingerprints: make(map[string][32]byte),
	}
	for _, f := range files {
		if err := readFile(f, func(line []byte) error {
			var raw map[string]any
			if err := json.Unmarshal(line, &raw); err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			doc, err := connectors.DecodeDocument(raw)
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			kept := connectors.Filter([]domain.SourceDocument{doc}, c.types)
			if len(kept) == 0 {
				return nil
			}
			snap.docs[doc.ID] = doc
			snap.fingerprints[doc.ID] = sha256.Sum256(line)
			return nil
		}); err != nil {
			return snapshot{}, err
		}
	}
	return snap, nil
}

// files returns the export files in a stable order.
func (c *Connector) files() ([]string, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrContentSourceUnavailable, err)
	}
	if !info.IsDir() {
		return []string{c.path}, nil
	}

	entries, err := os.ReadDir(c.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrContentSourceUnavailable, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isExportFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(c.path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// readFile calls fn once per document. A .json file holds one document or
// an array of documents; anything else is read as NDJSON.
func readFile(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrContentSourceUnavailable, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			return nil
		}
		if data[0] != '[' {
			return fn(data)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for _, item := range items {
			if err := fn(item); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func isExportFile(name string) bool {
	if isHidden(name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".json" || ext == ".ndjson"
}

// isHidden returns true for dotfiles, which editors use for swap and temp files.
func isHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".")
}

// Watch emits a ContentEvent for every document added, changed or removed
// on disk. Bursts of file events are coalesced so a file that is still being
// written is not diffed half way. The channel is closed when ctx is cancelled.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.ContentEvent, error) {
	prev, err := c.load()
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watching the parent directory survives editors that replace the file.
	dir := c.path
	if info, err := os.Stat(c.path); err == nil && !info.IsDir() {
		dir = filepath.Dir(c.path)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	events := make(chan domain.ContentEvent)
	go func() {
		defer close(events)
		defer watcher.Close()

		quiet := time.NewTimer(c.debounce)
		quiet.Stop()
		defer quiet.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if c.handleFsEvent(ev) {
					quiet.Reset(c.debounce)
				}
			case <-quiet.C:
				next, err := c.load()
				if err != nil {
					logger.Warn("filesystem: reload of %s failed: %v", c.path, err)
					continue
				}
				for _, change := range diff(prev, next) {
					select {
					case events <- change:
					case <-ctx.Done():
						return
					}
				}
				prev = next
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("filesystem: watcher error: %v", err)
			}
		}
	}()

	return events, nil
}

// handleFsEvent reports whether ev may have changed the export.
func (c *Connector) handleFsEvent(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	if isHidden(ev.Name) {
		return false
	}
	if info, err := os.Stat(c.path); err == nil && !info.IsDir() {
		return filepath.Clean(ev.Name) == filepath.Clean(c.path)
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return false
	}
	return isExportFile(ev.Name)
}

// diff returns events for documents that differ between two snapshots, sorted by ID.
func diff(prev, next snapshot) []domain.ContentEvent {
	var out []domain.ContentEvent
	for id, fp := range next.fingerprints {
		if old, ok := prev.fingerprints[id]; !ok || old != fp {
			out = append(out, domain.ContentEvent{SourceID: id})
		}
	}
	for id := range prev.fingerprints {
		if _, ok := next.fingerprints[id]; !ok {
			out = append(out, domain.ContentEvent{SourceID: id, Deleted: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}
