package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gyaneshwarpardhi/hintscan/internal/event"
)

// watch keeps the scan open after the initial pass. Every change is fetched
// again and followed by scan::end and a host notification. It returns when
// ctx is done or the connector is closed, after clearing the problems.
func (c *Connector) watch(ctx context.Context, root string, isDir bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("local connector: watcher: %w", err)
	}
	defer w.Close()

	var m *matcher
	if isDir {
		if m, err = newMatcher(root, c.opts.Pattern, c.logger); err != nil {
			return err
		}
		if err := addTree(w, root, root, m); err != nil {
			return err
		}
	} else if err := w.Add(filepath.Dir(root)); err != nil {
		return fmt.Errorf("local connector: watch %s: %w", root, err)
	}

	if err := c.notify(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.host.Clear()
			return nil
		case <-c.done:
			c.host.Clear()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				c.host.Clear()
				return nil
			}
			if err := c.handle(ctx, w, root, m, ev); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				c.host.Clear()
				return nil
			}
			c.logger.Error("watch failed", "root", root, "err", err)
			return fmt.Errorf("local connector: watch: %w", err)
		}
	}
}

// handle reacts to one filesystem event. m is nil for a single file target.
func (c *Connector) handle(ctx context.Context, w *fsnotify.Watcher, root string, m *matcher, ev fsnotify.Event) error {
	if c.closed() {
		return nil
	}
	path := filepath.Clean(ev.Name)
	if m == nil && path != filepath.Clean(root) {
		return nil
	}
	if m != nil {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if ev.Has(fsnotify.Create) && !m.skipDir(rel) {
				return addTree(w, root, path, m)
			}
			return nil
		}
		if !m.match(rel) {
			return nil
		}
	}

	resource := fileURL(path)
	switch {
	case ev.Has(fsnotify.Create):
		c.logger.Info("file added", "file", path)
		c.host.Clean(resource)
		if err := c.fetch(ctx, path); err != nil {
			return err
		}
	case ev.Has(fsnotify.Write):
		c.logger.Info("file changed", "file", path)
		c.host.Clean(resource)
		if err := c.fetch(ctx, path); err != nil {
			return err
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		c.logger.Info("file deleted", "file", path)
		c.host.Clean(resource)
	default:
		return nil
	}
	return c.notify(ctx)
}

// notify closes one watch cycle. Nothing is emitted once the connector is
// closed.
func (c *Connector) notify(ctx context.Context) error {
	if c.closed() {
		return nil
	}
	c.mu.RLock()
	href := c.href
	c.mu.RUnlock()

	if err := c.host.EmitAsync(ctx, event.TypeScanEnd, event.Event{Resource: href}); err != nil {
		return err
	}
	c.host.Notify(ctx, href)
	c.logger.Info("watching for changes", "target", href)
	return nil
}

// addTree watches dir and every directory below it that the matcher does
// not exclude. Paths are matched relative to root.
func addTree(w *fsnotify.Watcher, root, dir string, m *matcher) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(root, path); err == nil && rel != "." && m.skipDir(rel) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("local connector: watch %s: %w", path, err)
		}
		return nil
	})
}
