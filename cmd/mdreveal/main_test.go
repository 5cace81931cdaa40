package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"

	"pkt.systems/mdreveal"
)

func TestOpenInputFileAndURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.md")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	reader, closer, err := openInputs(context.Background(), nil, []string{path})
	if err != nil {
		t.Fatalf("openInputs file: %v", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	buf, _ := io.ReadAll(reader)
	if string(buf) != "hello" {
		t.Fatalf("unexpected file content: %q", string(buf))
	}

	fileURL := "file://" + path
	reader, closer, err = openInputs(context.Background(), nil, []string{fileURL})
	if err != nil {
		t.Fatalf("openInputs file URL: %v", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	buf, _ = io.ReadAll(reader)
	if string(buf) != "hello" {
		t.Fatalf("unexpected file URL content: %q", string(buf))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stream"))
	}))
	defer srv.Close()
	reader, closer, err = openInputs(context.Background(), srv.Client(), []string{srv.URL})
	if err != nil {
		t.Fatalf("openInputs http: %v", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	buf, _ = io.ReadAll(reader)
	if string(buf) != "stream" {
		t.Fatalf("unexpected http content: %q", string(buf))
	}
}

func TestOpenInputsConcatenates(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.md")
	second := filepath.Join(dir, "b.md")
	if err := os.WriteFile(first, []byte("one "), 0o644); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := os.WriteFile(second, []byte("two"), 0o644); err != nil {
		t.Fatalf("write second: %v", err)
	}
	reader, closer, err := openInputs(context.Background(), nil, []string{first, second})
	if err != nil {
		t.Fatalf("openInputs concat: %v", err)
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}
	buf, _ := io.ReadAll(reader)
	if string(buf) != "one two" {
		t.Fatalf("unexpected concatenated content: %q", string(buf))
	}
}

func TestOpenInputsRejectsEmptyArgument(t *testing.T) {
	if _, _, err := openInputs(context.Background(), nil, []string{"  "}); err == nil {
		t.Fatalf("expected error for empty input argument")
	}
}

func TestOpenInputsDefersErrors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	missing := filepath.Join(t.TempDir(), "missing.md")

	for _, arg := range []string{missing, srv.URL + "/gone.md"} {
		reader, closer, err := openInputs(context.Background(), srv.Client(), []string{arg})
		if err != nil {
			t.Fatalf("openInputs(%q) failed early: %v", arg, err)
		}
		if _, err := io.ReadAll(reader); err == nil {
			t.Fatalf("expected read error for %q", arg)
		}
		_ = closer.Close()
	}
}

func TestResolveOSC8(t *testing.T) {
	cases := map[string]bool{
		"on":  true,
		"off": false,
		"1":   true,
		"0":   false,
		"yes": true,
		"No":  false,
	}
	for input, want := range cases {
		got, err := resolveOSC8(input)
		if err != nil {
			t.Fatalf("resolveOSC8(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("resolveOSC8(%q)=%v want %v", input, got, want)
		}
	}
	if _, err := resolveOSC8("nope"); err == nil {
		t.Fatalf("expected error for invalid osc8 value")
	}
}

func TestResolveWidth(t *testing.T) {
	if got := resolveWidth(72, &bytes.Buffer{}); got != 72 {
		t.Fatalf("expected explicit width, got %d", got)
	}
	t.Setenv("COLUMNS", "101")
	if got := resolveWidth(0, &bytes.Buffer{}); got != 101 {
		t.Fatalf("expected COLUMNS width, got %d", got)
	}
	t.Setenv("COLUMNS", "")
	if got := resolveWidth(0, &bytes.Buffer{}); got != defaultWidth {
		t.Fatalf("expected default width, got %d", got)
	}
}

func TestColorProfileOfNonTerminal(t *testing.T) {
	if got := colorProfile(&bytes.Buffer{}); got != termenv.Ascii {
		t.Fatalf("expected Ascii profile, got %v", got)
	}
}

// isolateConfig points the default config location at an empty directory.
func isolateConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{"MDREVEAL_THEME", "MDREVEAL_OSC8", "MDREVEAL_WIDTH", "MDREVEAL_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
}

func TestRunListThemes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--list-themes"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	got := strings.Fields(stdout.String())
	want := mdreveal.AvailableThemes()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected themes %v, want %v", got, want)
	}
}

func TestRunRendersToWriter(t *testing.T) {
	isolateConfig(t)
	input := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(input, []byte("---\ntitle: x\n---\n# Hi\n\nbody\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--osc8", "off", input}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if got := stdout.String(); got != "# Hi\n\nbody\n\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunWritesOutputFile(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "doc.md")
	output := filepath.Join(dir, "out", "doc.txt")
	if err := os.WriteFile(input, []byte("one\ntwo\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--instant", "--join-paragraphs", "-o", output, input}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "one\n\ntwo\n\n" {
		t.Fatalf("unexpected output %q", string(data))
	}
	if stdout.Len() != 0 {
		t.Fatalf("unexpected stdout %q", stdout.String())
	}
}

func TestRunUsesConfigFile(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("strip_front_matter = false\nosc8 = \"off\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	input := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(input, []byte("+++\ntitle = \"kept\"\n+++\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-c", cfgPath, input}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "title = \"kept\"") {
		t.Fatalf("front matter was stripped: %q", stdout.String())
	}
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	isolateConfig(t)
	cases := [][]string{
		{"--theme", "neon", "x.md"},
		{"--osc8", "sometimes", "x.md"},
		{"--width", "-3", "x.md"},
		{"--no-such-flag"},
		{"--config", filepath.Join(t.TempDir(), "missing.toml"), "x.md"},
	}
	for _, args := range cases {
		var stdout, stderr bytes.Buffer
		if code := run(context.Background(), args, &stdout, &stderr); code != 2 {
			t.Fatalf("run(%v) exit code %d, want 2; stderr: %s", args, code, stderr.String())
		}
	}
}

func TestRunMissingInput(t *testing.T) {
	isolateConfig(t)
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "missing.md")
	if code := run(context.Background(), []string{missing}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit code %d, want 1", code)
	}
}

func TestSaveTruncated(t *testing.T) {
	var stderr bytes.Buffer
	if code := saveTruncated("", "ignored", &stderr); code != 130 {
		t.Fatalf("exit code %d, want 130", code)
	}
	path := filepath.Join(t.TempDir(), "nested", "partial.md")
	if code := saveTruncated(path, "# Partial", &stderr); code != 130 {
		t.Fatalf("exit code %d, want 130: %s", code, stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read truncated: %v", err)
	}
	if string(data) != "# Partial\n" {
		t.Fatalf("unexpected truncated file %q", string(data))
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowRevealsAppendedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.md")
	if err := os.WriteFile(path, []byte("Hello\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	ready := make(chan struct{})
	type result struct {
		truncated string
		err       error
	}
	done := make(chan result, 1)
	go func() {
		truncated, err := follow(ctx, followRequest{
			path:    normalizePath(path),
			writer:  out,
			theme:   mdreveal.BoringTheme(),
			options: []mdreveal.RenderOption{mdreveal.WithTiming(mdreveal.Timing{})},
			ready:   ready,
		})
		done <- result{truncated, err}
	}()

	select {
	case <-ready:
	case res := <-done:
		t.Fatalf("follow returned early: %v", res.err)
	case <-time.After(5 * time.Second):
		t.Fatalf("follow did not start")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := f.WriteString("\nworld\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(out.String(), "world") {
		if time.Now().After(deadline) {
			t.Fatalf("appended text not revealed, output %q", out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	res := <-done
	if res.err != nil {
		t.Fatalf("follow: %v", res.err)
	}
	if res.truncated != "Hello\n\nworld" {
		t.Fatalf("unexpected truncated markdown %q", res.truncated)
	}
}

func TestFollowMissingFile(t *testing.T) {
	_, err := follow(context.Background(), followRequest{
		path:   filepath.Join(t.TempDir(), "missing.md"),
		writer: io.Discard,
		theme:  mdreveal.BoringTheme(),
	})
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}
