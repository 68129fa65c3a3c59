// Package contentwatcher watches a persona content root and reports batches
// of changed documents once edits settle.
package contentwatcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/personacheck/source"
	"github.com/fsnotify/fsnotify"
)

const (
	// batchChannelBuffer is the size of the batch channel.
	batchChannelBuffer = 16

	defaultDebounce = 500 * time.Millisecond
)

// Config configures content watching.
type Config struct {
	// Debounce is how long to wait for more changes before emitting a batch.
	Debounce time.Duration

	// Extensions lists watched file extensions.
	Extensions []string

	// ExcludeDirs lists directory names to skip.
	ExcludeDirs []string
}

// DefaultConfig returns default watch configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:    defaultDebounce,
		Extensions:  []string{".md", ".markdown", ".yaml", ".yml", ".txt"},
		ExcludeDirs: []string{".git", "node_modules"},
	}
}

// Operation indicates the type of file change.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the change types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Change is one changed document.
type Change struct {
	// Path is relative to the content root, slash-separated.
	Path      string
	Operation Operation
}

// Batch is the set of changes observed during one debounce window, sorted by
// path.
type Batch []Change

// Paths returns the changed paths.
func (b Batch) Paths() []string {
	out := make([]string, len(b))
	for i, c := range b {
		out[i] = c.Path
	}
	return out
}

// Watcher watches a content root for document changes.
type Watcher struct {
	config     Config
	root       string
	watcher    *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection, keyed by relative path
	hashMu sync.RWMutex
	hashes map[string]string

	batches chan Batch

	droppedBatches atomic.Int64
}

// New creates a watcher for root.
func New(config Config, root string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = defaultDebounce
	}

	defaults := DefaultConfig()
	if len(config.Extensions) == 0 {
		config.Extensions = defaults.Extensions
	}
	if len(config.ExcludeDirs) == 0 {
		config.ExcludeDirs = defaults.ExcludeDirs
	}

	extensions := make(map[string]bool, len(config.Extensions))
	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}
	excludes := make(map[string]bool, len(config.ExcludeDirs))
	for _, dir := range config.ExcludeDirs {
		excludes[dir] = true
	}

	return &Watcher{
		config:     config,
		root:       root,
		watcher:    fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
		hashes:     make(map[string]string),
		batches:    make(chan Batch, batchChannelBuffer),
	}, nil
}

// Batches returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Batches() <-chan Batch {
	return w.batches
}

// Start seeds the content hashes and begins watching. The root must exist.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.root); err != nil {
		return &source.NotFoundError{Path: w.root}
	}

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Content watcher started",
		"root", w.root,
		"debounce", w.config.Debounce,
		"files", w.hashCount())

	return nil
}

// Stop stops the watcher. The batch channel is closed by processEvents when
// it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// DroppedBatches returns the number of batches dropped because the consumer
// fell behind.
func (w *Watcher) DroppedBatches() int64 {
	return w.droppedBatches.Load()
}

func (w *Watcher) hashCount() int {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	return len(w.hashes)
}

// addWatchesRecursive watches every directory and records the hash of every
// watched file so that touching a file without changing it is ignored.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			if w.watched(path) {
				if content, err := os.ReadFile(path); err == nil {
					w.setHash(w.rel(path), source.ContentHash(content))
				}
			}
			return nil
		}

		base := d.Name()
		if path != root && (w.excludes[base] || strings.HasPrefix(base, ".")) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

func (w *Watcher) watched(path string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.batches)
	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent records a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !w.watched(path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Content change detected",
		"path", w.rel(path),
		"op", event.Op.String())
}

// handleNewDirectory watches a newly created directory and queues the files
// it already holds.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
		return
	}
	w.logger.Debug("Added watch for new directory", "path", path)

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	for _, e := range entries {
		p := filepath.Join(path, e.Name())
		if !e.IsDir() && w.watched(p) {
			w.pending[p] |= fsnotify.Create
		}
	}
}

// flushPending turns accumulated events into a batch of real content
// changes.
func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var batch Batch
	for path := range toProcess {
		rel := w.rel(path)

		content, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				w.logger.Warn("Failed to read changed file",
					"path", rel,
					"error", err)
				continue
			}
			if _, had := w.hash(rel); had {
				w.deleteHash(rel)
				batch = append(batch, Change{Path: rel, Operation: OpDelete})
			}
			continue
		}

		newHash := source.ContentHash(content)
		oldHash, had := w.hash(rel)
		if had && oldHash == newHash {
			continue
		}
		w.setHash(rel, newHash)

		op := OpModify
		if !had {
			op = OpCreate
		}
		batch = append(batch, Change{Path: rel, Operation: op})
	}

	if len(batch) == 0 {
		return
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	w.sendBatch(batch)
}

func (w *Watcher) hash(rel string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	h, ok := w.hashes[rel]
	return h, ok
}

func (w *Watcher) setHash(rel, h string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[rel] = h
}

func (w *Watcher) deleteHash(rel string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	delete(w.hashes, rel)
}

// sendBatch sends a batch without blocking the event loop.
func (w *Watcher) sendBatch(batch Batch) {
	select {
	case w.batches <- batch:
		w.logger.Debug("Sent change batch", "changes", len(batch))
	default:
		dropped := w.droppedBatches.Add(1)
		w.logger.Warn("Batch channel full, dropping batch",
			"changes", len(batch),
			"total_dropped", dropped)
	}
}
