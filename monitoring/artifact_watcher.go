package monitoring

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reports when the model artifact changes on disk. The
// loaded model is never swapped; the notice only tells operators that a
// restart is needed for the new file to take effect.
type ArtifactWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	onChange func(fsnotify.Op)
	done     chan struct{}
}

// WatchArtifact watches the directory holding path, since editors and
// deploy tools usually replace the file rather than write in place.
func WatchArtifact(path string, logger *zap.Logger, onChange func(fsnotify.Op)) (*ArtifactWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, err
	}
	aw := &ArtifactWatcher{
		path:     abs,
		watcher:  w,
		logger:   logger,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go aw.loop()
	return aw, nil
}

func (aw *ArtifactWatcher) loop() {
	defer close(aw.done)
	for {
		select {
		case event, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != aw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			artifactChanged.Set(1)
			aw.logger.Warn("model artifact changed on disk; restart to load it",
				zap.String("path", aw.path),
				zap.String("op", event.Op.String()))
			if aw.onChange != nil {
				aw.onChange(event.Op)
			}
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			aw.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}

func (aw *ArtifactWatcher) Close() error {
	err := aw.watcher.Close()
	<-aw.done
	return err
}
