package monitoring

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher watches the trained model file on disk. The loaded model
// is immutable for the lifetime of the process, so the watcher never
// triggers a reload; it only flags that the serving model has diverged
// from the file, which the health endpoint reports.
type ArtifactWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	stale   atomic.Bool
	done    chan struct{}
	logger  *zap.Logger
}

// NewArtifactWatcher starts watching the directory containing path.
// Watching the directory rather than the file survives the common
// rename-over-replace that trainers do on save.
func NewArtifactWatcher(path string, logger *zap.Logger) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ArtifactWatcher{
		path:    abs,
		watcher: watcher,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if w.stale.CompareAndSwap(false, true) {
					w.logger.Warn("model artifact changed on disk; serving model is stale until restart",
						zap.String("path", w.path),
						zap.String("op", event.Op.String()))
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

// Stale reports whether the artifact file changed after the model was
// loaded.
func (w *ArtifactWatcher) Stale() bool {
	return w.stale.Load()
}

func (w *ArtifactWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
