package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/log/level"
	"github.com/mitchellh/cli"

	"github.com/matteocacciola/cheshirecat-go-sdk/cattest"
)

func setup(t *testing.T) (*cli.MockUi, *cattest.Server) {
	t.Helper()
	s := cattest.NewServer()
	t.Cleanup(s.Close)
	t.Setenv("CCAT_BASE_URL", s.URL)
	t.Setenv("CCAT_API_KEY", "")
	return cli.NewMockUi(), s
}

func TestStatus(t *testing.T) {
	ui, s := setup(t)
	s.AddPoint("declarative", "cats purr", nil)

	if code := run([]string{"status"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	out := ui.OutputWriter.String()
	for _, want := range []string{
		"We're all mad here",
		"collections: 3, points: 1",
		"plugins: 1 installed, 1 active",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("want %q in output, have %q", want, out)
		}
	}
	if want, have := 3, len(s.Requests()); want != have {
		t.Errorf("want %d requests, have %d", want, have)
	}
}

func TestStatusFailure(t *testing.T) {
	ui, s := setup(t)
	s.FailNext(500, 500, 500)
	if code := run([]string{"status"}, ui); code != 1 {
		t.Errorf("want exit 1, have %d", code)
	}
	if ui.ErrorWriter.String() == "" {
		t.Error("want an error reported")
	}
}

func TestCollections(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"collections", "-agent", "agentA"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := 3, strings.Count(ui.OutputWriter.String(), "\n"); want != have {
		t.Errorf("want %d lines, have %d", want, have)
	}
}

func TestPlugins(t *testing.T) {
	ui, s := setup(t)
	if code := run([]string{"plugins", "-query", "core"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "* core_plugin", ui.OutputWriter.String(); !strings.HasPrefix(have, want) {
		t.Errorf("want prefix %q, have %q", want, have)
	}
	if want, have := "query=core", s.LastRequest().RawQuery; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestUpload(t *testing.T) {
	ui, s := setup(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.md")
	for _, name := range []string{a, b} {
		if err := os.WriteFile(name, []byte("content"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if code := run([]string{"upload", "-chunk-size", "64", a}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "/rabbithole/", s.LastRequest().Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	if code := run([]string{"upload", a, b}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "/rabbithole/batch", s.LastRequest().Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := 3, s.PointCount("declarative"); want != have {
		t.Errorf("want %d points, have %d", want, have)
	}
}

func TestUploadRequiresArguments(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"upload"}, ui); code != cliUsage {
		t.Errorf("want exit %d, have %d", cliUsage, code)
	}
}

func TestChat(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"chat", "hello", "there"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "echo: hello there\n", ui.OutputWriter.String(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestChatStream(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"chat", "-stream", "hi"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "echo:\nhi\n", ui.OutputWriter.String(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "thinking\n", ui.ErrorWriter.String(); want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestUnknownLogLevel(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"status", "-log-level", "loud"}, ui); code != 1 {
		t.Errorf("want exit 1, have %d", code)
	}
}

func TestStats(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"status", "-stats"}, ui); code != 0 {
		t.Fatalf("want exit 0, have %d: %s", code, ui.ErrorWriter.String())
	}
	if want, have := "requests: 3, p50: ", ui.OutputWriter.String(); !strings.Contains(have, want) {
		t.Errorf("want %q in output, have %q", want, have)
	}
}

func TestJSONLogs(t *testing.T) {
	b := newBase(cli.NewMockUi(), "test")
	var buf bytes.Buffer
	b.stderr = &buf
	if _, ok := b.parse([]string{"-log-format", "json", "-log-level", "info"}); !ok {
		t.Fatal("parse failed")
	}
	logger, err := b.logger()
	if err != nil {
		t.Fatal(err)
	}
	level.Debug(logger).Log("dropped", true)
	level.Info(logger).Log("base_url", "http://cat", "msg", "loaded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("want one JSON entry, have %q (%v)", buf.String(), err)
	}
	for k, want := range map[string]interface{}{"level": "info", "msg": "loaded", "base_url": "http://cat"} {
		if have := entry[k]; want != have {
			t.Errorf("%s: want %v, have %v", k, want, have)
		}
	}
}

func TestUnknownLogFormat(t *testing.T) {
	ui, _ := setup(t)
	if code := run([]string{"status", "-log-format", "xml"}, ui); code != 1 {
		t.Errorf("want exit 1, have %d", code)
	}
}

func TestContentType(t *testing.T) {
	for name, want := range map[string]string{
		"a.txt":  "text/plain",
		"b.json": "application/json",
		"c":      "application/octet-stream",
	} {
		if have := contentType(name); want != have {
			t.Errorf("%s: want %q, have %q", name, want, have)
		}
	}
}
