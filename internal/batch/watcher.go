package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sketch-sprite/internal/config"
	"sketch-sprite/internal/logger"
	"sketch-sprite/internal/models"
	"sketch-sprite/internal/pipeline"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

const defaultSettle = 500 * time.Millisecond

// Watcher processes images as they land in an inbox directory. A file is
// picked up once no write event has been seen for the settle period, so
// partially copied files are not read.
type Watcher struct {
	proc   Processor
	input  config.InputConfig
	settle time.Duration
	logger logger.Logger
}

func NewWatcher(proc Processor, input config.InputConfig, log logger.Logger) *Watcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{proc: proc, input: input, settle: defaultSettle, logger: log}
}

// WithSettle overrides the quiet period before a file is processed.
func (w *Watcher) WithSettle(d time.Duration) *Watcher {
	w.settle = d
	return w
}

// Watch blocks until ctx is cancelled, calling onResult for every processed
// file. Files already present when Watch starts are ignored. Files inside
// outputDir are never processed.
func (w *Watcher) Watch(ctx context.Context, inboxDir, outputDir string, onResult func(*models.ProcessResult)) error {
	inAbs, _ := filepath.Abs(inboxDir)
	outAbs, _ := filepath.Abs(outputDir)
	if inAbs == outAbs {
		return fmt.Errorf("output directory must differ from the inbox %s", inboxDir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(inboxDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", inboxDir, err)
	}

	sessionID := uuid.NewString()
	w.logger.Info("InboxWatcher", "watching inbox", map[string]interface{}{
		"run_id": sessionID,
		"inbox":  inboxDir,
		"output": outputDir,
	})

	pending := make(map[string]time.Time)
	namer := pipeline.NewNamer()

	tick := w.settle / 2
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("InboxWatcher", "watch stopped", map[string]interface{}{
				"run_id":  sessionID,
				"pending": len(pending),
			})
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.accepts(event.Name, outAbs) {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("InboxWatcher", err, map[string]interface{}{"run_id": sessionID})

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, path)

				if info, err := os.Stat(path); err != nil || info.IsDir() {
					continue
				}

				res := w.proc.ProcessCharacterImage(path, outputDir, namer.Name(path))
				w.logger.Debug("InboxWatcher", "inbox file processed", map[string]interface{}{
					"run_id":  sessionID,
					"input":   path,
					"success": res.Success,
				})
				if onResult != nil {
					onResult(res)
				}

				if ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (w *Watcher) accepts(path, outAbs string) bool {
	if !w.input.IsSupportedExtension(filepath.Ext(path)) {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(outAbs, abs)
	if err != nil {
		return true
	}
	inside := rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
	return !inside
}
