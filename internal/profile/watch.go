package profile

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/orizon-lang/tierforge/internal/logging"
)

// Watch reloads the profile at file whenever it changes and hands the result
// to fn (with the parse error, if any). It watches the parent directory so
// that editors replacing the file by rename are seen. Watch blocks until ctx
// is done and returns nil then.
func Watch(ctx context.Context, file string, log *zap.Logger, fn func(*Profile, error)) error {
	log = logging.OrNop(log)

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	const reload = fsnotify.Create | fsnotify.Write

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != abs || ev.Op&reload == 0 {
				continue
			}

			p, err := LoadFile(abs)
			if err != nil {
				log.Warn("profile reload failed", zap.String("file", abs), zap.Error(err))
			} else {
				log.Info("profile reloaded", zap.String("file", abs), zap.String("profile", p.Name))
			}

			fn(p, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			log.Warn("profile watcher error", zap.Error(err))
		}
	}
}
