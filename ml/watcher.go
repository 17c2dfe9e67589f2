package ml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 500 * time.Millisecond

// ArtifactWatcher reloads the artifact file when it changes on disk and swaps
// the new predictor into a ModelHandle. A failed reload keeps the previous one.
type ArtifactWatcher struct {
	path     string
	handle   *ModelHandle
	opts     []BuilderOption
	logger   *zap.Logger
	debounce time.Duration
	onReload func(*Predictor)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewArtifactWatcher(path string, handle *ModelHandle, logger *zap.Logger, opts ...BuilderOption) (*ArtifactWatcher, error) {
	if handle == nil {
		return nil, errors.New("model handle is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &ArtifactWatcher{
		path:     abs,
		handle:   handle,
		opts:     opts,
		logger:   logger,
		debounce: defaultReloadDebounce,
	}, nil
}

// SetDebounce changes how long the watcher waits for writes to settle.
func (w *ArtifactWatcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounce = d
}

// OnReload registers a callback invoked after each successful reload.
func (w *ArtifactWatcher) OnReload(fn func(*Predictor)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Start watches the artifact's directory; editors and SaveArtifact replace the
// file by rename, which a watch on the file itself would miss.
func (w *ArtifactWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.watcher = watcher
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.run(ctx, w.debounce)

	w.logger.Info("watching model artifact", zap.String("path", w.path))
	return nil
}

func (w *ArtifactWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
}

// Reload loads the artifact now and swaps it in on success.
func (w *ArtifactWatcher) Reload() error {
	artifact, err := LoadArtifact(w.path)
	if err != nil {
		return err
	}
	next := NewPredictor(artifact, w.opts...)
	prev := w.handle.Swap(next)

	fields := []zap.Field{zap.String("digest", artifact.Digest), zap.String("type", artifact.ModelType())}
	if prev != nil {
		fields = append(fields, zap.String("previous_digest", prev.Artifact().Digest))
	}
	w.logger.Info("model artifact reloaded", fields...)

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(next)
	}
	return nil
}

func (w *ArtifactWatcher) run(ctx context.Context, debounce time.Duration) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			if err := w.Reload(); err != nil {
				w.logger.Warn("model artifact reload failed, keeping previous model",
					zap.String("path", w.path), zap.Error(err))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}
