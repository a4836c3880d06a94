package devserver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/insightpipe/pkg/logger"
)

const defaultDebounce = 200 * time.Millisecond

// watcher calls onChange once file events under root have been quiet for
// the debounce interval. A rebuild touching many files counts once.
type watcher struct {
	root     string
	debounce time.Duration
	logger   logger.Logger
	onChange func()

	mu    sync.Mutex
	fsw   *fsnotify.Watcher
	timer *time.Timer
}

func newWatcher(root string, debounce time.Duration, l logger.Logger, onChange func()) *watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &watcher{root: root, debounce: debounce, logger: l, onChange: onChange}
}

// start watches root and every directory below it. Events are processed
// until stop is called.
func (w *watcher) start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatch, err)
	}
	if err := addTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("%w: %s: %w", ErrWatch, w.root, err)
	}

	w.mu.Lock()
	w.fsw = fsw
	w.mu.Unlock()

	go w.run(context.WithoutCancel(ctx), fsw)
	return nil
}

func (w *watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, fsw, ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "watch error", logger.Error(err))
		}
	}
}

func (w *watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addTree(fsw, ev.Name); err != nil {
				w.logger.Warn(ctx, "watch new directory failed", logger.String("path", ev.Name), logger.Error(err))
			}
		}
	}
	w.logger.Debug(ctx, "ui file event", logger.String("op", ev.Op.String()), logger.String("path", ev.Name))
	w.schedule()
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw == nil {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}

// stop releases the fsnotify handle and drops any pending notification.
func (w *watcher) stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if w.fsw == nil {
		return nil
	}
	err := w.fsw.Close()
	w.fsw = nil
	return err
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return fsw.Add(path)
	})
}
