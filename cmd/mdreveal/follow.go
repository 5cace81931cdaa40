package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"pkt.systems/mdreveal"
)

type followRequest struct {
	path    string
	writer  io.Writer
	width   int
	theme   mdreveal.Theme
	options []mdreveal.RenderOption
	logger  *slog.Logger
	// clock overrides the wall clock in tests.
	clock mdreveal.Clock
	// ready is closed once the watcher is running.
	ready chan struct{}
}

// follow reveals the file at path and keeps revealing it as it grows, until ctx is
// cancelled. A rewrite that does not extend the previous content starts a new stream.
// It returns the markdown revealed when it stopped.
func follow(ctx context.Context, req followRequest) (string, error) {
	if req.logger == nil {
		req.logger = slog.New(slog.DiscardHandler)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(req.path)); err != nil {
		return "", fmt.Errorf("watch %s: %w", filepath.Dir(req.path), err)
	}

	src, err := readSnapshot(req.path)
	if err != nil {
		return "", err
	}
	opts := append([]mdreveal.RenderOption{mdreveal.WithRedraw(true)}, req.options...)
	doc := mdreveal.PrepareDocument(src, opts...)
	renderer := mdreveal.NewANSIRenderer(req.writer, req.width, req.theme, opts...)
	sched := mdreveal.NewScheduler(doc,
		mdreveal.WithSink(renderer),
		mdreveal.WithClock(req.clock),
		mdreveal.WithSchedulerLogger(req.logger),
	)
	sched.Start()
	if req.ready != nil {
		close(req.ready)
	}

	for {
		select {
		case <-ctx.Done():
			return sched.Stop(), nil
		case event, ok := <-watcher.Events:
			if !ok {
				return sched.Stop(), nil
			}
			if filepath.Clean(event.Name) != req.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			src, err := readSnapshot(req.path)
			if err != nil {
				req.logger.Warn("follow: read failed", "path", req.path, "err", err)
				continue
			}
			next := doc.Extend(mdreveal.Prepare(src, req.options...))
			if next == doc {
				continue
			}
			if next.ID != doc.ID {
				req.logger.Debug("follow: file rewritten", "path", req.path)
			}
			doc = next
			sched.Load(doc)
		case err, ok := <-watcher.Errors:
			if !ok {
				return sched.Stop(), nil
			}
			req.logger.Warn("follow: watcher error", "err", err)
		}
	}
}

func readSnapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
