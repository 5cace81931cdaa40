package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// source is one command line input. It is opened when the reader reaches it, so a
// slow URL does not delay revealing the files before it.
type source struct {
	name string
	open func(context.Context) (io.ReadCloser, error)
}

// concatReader reads its sources in order and closes each one at EOF.
type concatReader struct {
	ctx     context.Context
	sources []source
	cur     io.ReadCloser
}

func (c *concatReader) Read(p []byte) (int, error) {
	for {
		if c.cur == nil {
			if len(c.sources) == 0 {
				return 0, io.EOF
			}
			src := c.sources[0]
			c.sources = c.sources[1:]
			rc, err := src.open(c.ctx)
			if err != nil {
				return 0, fmt.Errorf("input %s: %w", src.name, err)
			}
			c.cur = rc
		}
		n, err := c.cur.Read(p)
		if errors.Is(err, io.EOF) {
			_ = c.cur.Close()
			c.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *concatReader) Close() error {
	c.sources = nil
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}

// openInputs returns a reader over args, or stdin when there are none. Arguments are
// file paths, file:// URLs or http(s) URLs fetched with client.
func openInputs(ctx context.Context, client *http.Client, args []string) (io.Reader, io.Closer, error) {
	if len(args) == 0 {
		return os.Stdin, nil, nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	r := &concatReader{ctx: ctx}
	for _, raw := range args {
		src, err := parseSource(client, raw)
		if err != nil {
			return nil, nil, err
		}
		r.sources = append(r.sources, src)
	}
	return r, r, nil
}

func parseSource(client *http.Client, raw string) (source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return source{}, errors.New("empty input argument")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return fileSource(raw), nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return source{name: raw, open: func(ctx context.Context) (io.ReadCloser, error) {
			return fetch(ctx, client, raw)
		}}, nil
	case "file":
		path := u.Path
		if path == "" {
			path = u.Host
		}
		return fileSource(path), nil
	default:
		return fileSource(raw), nil
	}
}

func fileSource(path string) source {
	clean := normalizePath(path)
	return source{name: clean, open: func(context.Context) (io.ReadCloser, error) {
		return os.Open(clean)
	}}
}

func fetch(ctx context.Context, client *http.Client, raw string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.5")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return resp.Body, nil
}

// resolveOutput opens path for writing, creating parent directories, or returns stdout
// when path is empty.
func resolveOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" {
		return stdout, nil, nil
	}
	clean := normalizePath(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

// normalizePath expands a leading ~ and makes path absolute.
func normalizePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
