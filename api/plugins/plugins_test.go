package plugins_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/matteocacciola/cheshirecat-go-sdk/api/plugins"
	"github.com/matteocacciola/cheshirecat-go-sdk/cattest"
	"github.com/matteocacciola/cheshirecat-go-sdk/client"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

func newEndpoint(t *testing.T) (*plugins.Endpoint, *cattest.Server) {
	t.Helper()
	s := cattest.NewServer()
	t.Cleanup(s.Close)
	cfg := client.DefaultConfig()
	cfg.BaseURL = s.URL
	c, err := client.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return c.Plugins(), s
}

func TestInstallFromZip(t *testing.T) {
	p, s := newEndpoint(t)
	ctx := context.Background()

	res, err := p.PostInstallPluginFromZip(ctx, "weather.zip", bytes.NewReader([]byte("PK\x03\x04")), transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "weather.zip", res.Filename; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "application/zip", res.ContentType; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if ct := s.LastRequest().Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Errorf("want multipart request, have %q", ct)
	}

	list, err := p.GetAvailablePlugins(ctx, "weather", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(list.Installed); want != have {
		t.Fatalf("want %d plugin, have %d", want, have)
	}
	if want, have := "weather", list.Installed[0].ID; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "weather", list.Filters.Query; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if want, have := "query=weather", s.LastRequest().RawQuery; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}

func TestListWithoutQuery(t *testing.T) {
	p, s := newEndpoint(t)
	list, err := p.GetAvailablePlugins(context.Background(), "", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(list.Installed); want != have {
		t.Errorf("want %d plugin, have %d", want, have)
	}
	if have := s.LastRequest().RawQuery; have != "" {
		t.Errorf("want no query, have %q", have)
	}
}

func TestInstallFromRegistry(t *testing.T) {
	p, s := newEndpoint(t)
	res, err := p.PostInstallPluginFromRegistry(context.Background(), "https://github.com/cat/translator", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "https://github.com/cat/translator", res.URL; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if !s.PluginActive("translator") {
		t.Error("want translator installed and active")
	}
}

func TestToggle(t *testing.T) {
	p, s := newEndpoint(t)
	ctx := context.Background()
	if _, err := p.PutTogglePlugin(ctx, "core_plugin", transport.DefaultScope); err != nil {
		t.Fatal(err)
	}
	if s.PluginActive("core_plugin") {
		t.Error("want core_plugin inactive after toggle")
	}
	if _, err := p.PutTogglePlugin(ctx, "core_plugin", transport.DefaultScope); err != nil {
		t.Fatal(err)
	}
	if !s.PluginActive("core_plugin") {
		t.Error("want core_plugin active after second toggle")
	}

	_, err := p.PutTogglePlugin(ctx, "missing", transport.DefaultScope)
	if want, have := http.StatusNotFound, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d", want, have)
	}
}

func TestSettings(t *testing.T) {
	p, s := newEndpoint(t)
	ctx := context.Background()

	put, err := p.PutPluginSettings(ctx, "core_plugin", map[string]interface{}{"language": "it"}, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "it", put.Value["language"]; want != have {
		t.Errorf("want %v, have %v", want, have)
	}

	one, err := p.GetPluginSettings(ctx, "core_plugin", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "core_plugin", one.Name; want != have {
		t.Errorf("want %q, have %q", want, have)
	}

	all, err := p.GetPluginsSettings(ctx, transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := 1, len(all.Settings); want != have {
		t.Errorf("want %d, have %d", want, have)
	}

	if _, err := p.PutPluginSettings(ctx, "core_plugin", nil, transport.DefaultScope); err != nil {
		t.Fatal(err)
	}
	if want, have := "{}", strings.TrimSpace(string(s.LastRequest().Body)); want != have {
		t.Errorf("want empty object for nil settings, have %s", have)
	}
}

func TestDetailsAndDelete(t *testing.T) {
	p, s := newEndpoint(t)
	ctx := context.Background()

	details, err := p.GetPluginDetails(ctx, "core_plugin", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "core_plugin", details.Data.ID; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if !details.Data.Active {
		t.Error("want active")
	}

	del, err := p.DeletePlugin(ctx, "core_plugin", transport.DefaultScope)
	if err != nil {
		t.Fatal(err)
	}
	if want, have := "core_plugin", del.Deleted; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
	if s.PluginActive("core_plugin") {
		t.Error("want core_plugin gone")
	}
}

func TestInstallationWideCallsRunAsSystem(t *testing.T) {
	p, s := newEndpoint(t)
	ctx := context.Background()

	for name, call := range map[string]func(transport.Scope) error{
		"zip": func(scope transport.Scope) error {
			_, err := p.PostInstallPluginFromZip(ctx, "weather.zip", bytes.NewReader([]byte("PK")), scope)
			return err
		},
		"registry": func(scope transport.Scope) error {
			_, err := p.PostInstallPluginFromRegistry(ctx, "https://github.com/cat/translator", scope)
			return err
		},
	} {
		if err := call(transport.DefaultScope); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if want, have := transport.SystemID, s.LastRequest().Header.Get("X-Agent-ID"); want != have {
			t.Errorf("%s: want %q, have %q", name, want, have)
		}
		if err := call(transport.ForAgent("agentA")); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if want, have := "agentA", s.LastRequest().Header.Get("X-Agent-ID"); want != have {
			t.Errorf("%s: want %q, have %q", name, want, have)
		}
	}

	if _, err := p.PutTogglePlugin(ctx, "core_plugin", transport.DefaultScope); err != nil {
		t.Fatal(err)
	}
	if have := s.LastRequest().Header.Get("X-Agent-ID"); have != "" {
		t.Errorf("toggle: want the default agent, have %q", have)
	}
}

func TestPluginIDStaysInItsSegment(t *testing.T) {
	p, s := newEndpoint(t)
	_, err := p.GetPluginDetails(context.Background(), "../users", transport.DefaultScope)
	if want, have := http.StatusNotFound, transport.StatusCode(err); want != have {
		t.Errorf("want %d, have %d (%v)", want, have, err)
	}
	if want, have := "/plugins/..%2Fusers", s.LastRequest().Path; want != have {
		t.Errorf("want %q, have %q", want, have)
	}
}
