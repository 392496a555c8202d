package dlp

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"

	audit "regulus/pkg/platform/audit"
)

const defaultDebounce = 500 * time.Millisecond

// AuditAppender records configuration changes.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) (audit.Entry, error)
}

// Watcher reloads the policy file into a Registry when it changes on disk.
// The parent directory is watched so editors that replace files by rename
// are picked up.
type Watcher struct {
	path     string
	registry *Registry
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	auditor  AuditAppender
	debounce time.Duration
	reloaded chan struct{}
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func WithWatcherAudit(a AuditAppender) WatcherOption {
	return func(w *Watcher) {
		w.auditor = a
	}
}

// WithDebounce sets how long to wait after the last write before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher watches path and reloads it into registry.
func NewWatcher(path string, registry *Registry, opts ...WatcherOption) (*Watcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("policy registry is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		registry: registry,
		watcher:  fw,
		logger:   slog.Default(),
		debounce: defaultDebounce,
		reloaded: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Reloaded signals after each successful reload. Used by tests.
func (w *Watcher) Reloaded() <-chan struct{} {
	return w.reloaded
}

// Run watches for changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(w.debounce, func() {
					w.reload(ctx)
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WarnContext(ctx, "dlp policy watcher error", "error", err)
		}
	}
}

// reload keeps the previous snapshot when the new file does not compile.
func (w *Watcher) reload(ctx context.Context) {
	next, err := LoadFile(w.path)
	if err != nil {
		w.logger.ErrorContext(ctx, "dlp policy reload failed, keeping previous policy",
			"path", w.path,
			"error", err,
		)
		return
	}
	prev := w.registry.Swap(next)

	prevVersion := 0
	if prev != nil {
		prevVersion = prev.Version
	}
	w.logger.InfoContext(ctx, "dlp policy reloaded",
		"path", w.path,
		"version", next.Version,
		"previous_version", prevVersion,
		"resource_types", next.ResourceTypes(),
	)

	if w.auditor != nil {
		_, err := w.auditor.Append(ctx, audit.Entry{
			ActorID:    "system",
			ActorRole:  "system",
			Action:     audit.ActionConfigChanged,
			Resource:   "dlp_policy",
			ResourceID: filepath.Base(w.path),
			Success:    true,
			Reason:     "policy file reloaded",
			Metadata: map[string]string{
				"version":          strconv.Itoa(next.Version),
				"previous_version": strconv.Itoa(prevVersion),
			},
		})
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to audit dlp policy reload", "error", err)
		}
	}

	select {
	case w.reloaded <- struct{}{}:
	default:
	}
}
