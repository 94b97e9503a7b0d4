// Package plugins installs, configures and toggles backend plugins.
package plugins

import (
	"context"
	"io"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path under which every plugin route lives.
const Prefix = "plugins"

// Endpoint groups the plugin routes. Installing and uninstalling act on the
// whole installation: a scope naming no agent is sent as transport.SystemID.
// Toggles and settings stay per agent.
type Endpoint struct {
	endpoint.Base
}

// New returns the plugins endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// GetAvailablePlugins lists installed plugins and the registry. A non-empty
// query filters both.
func (e *Endpoint) GetAvailablePlugins(ctx context.Context, query string, scope transport.Scope) (Collection, error) {
	var q transport.Query
	if query != "" {
		q = transport.QueryOf(map[string]interface{}{"query": query})
	}
	return endpoint.Get[Collection](ctx, e.Base, "", scope, q)
}

// PostInstallPluginFromZip uploads a zipped plugin.
func (e *Endpoint) PostInstallPluginFromZip(ctx context.Context, filename string, zip io.Reader, scope transport.Scope) (Install, error) {
	return endpoint.PostMultipart[Install](ctx, e.Base, "upload", []transport.MultipartItem{{
		Name:        "file",
		Content:     zip,
		Filename:    filename,
		ContentType: "application/zip",
	}}, scope.System())
}

// PostInstallPluginFromRegistry installs the registry plugin published at url.
func (e *Endpoint) PostInstallPluginFromRegistry(ctx context.Context, url string, scope transport.Scope) (InstallFromRegistry, error) {
	return endpoint.PostJSON[InstallFromRegistry](ctx, e.Base, "upload/registry", map[string]string{"url": url}, scope.System())
}

// PutTogglePlugin activates an inactive plugin, and the other way round.
func (e *Endpoint) PutTogglePlugin(ctx context.Context, id string, scope transport.Scope) (Toggle, error) {
	return endpoint.Put[Toggle](ctx, e.Base, "toggle/"+transport.PathSegment(id), nil, scope)
}

// GetPluginsSettings returns the settings of every plugin.
func (e *Endpoint) GetPluginsSettings(ctx context.Context, scope transport.Scope) (SettingsList, error) {
	return endpoint.Get[SettingsList](ctx, e.Base, "settings", scope, nil)
}

// GetPluginSettings returns the settings of one plugin.
func (e *Endpoint) GetPluginSettings(ctx context.Context, id string, scope transport.Scope) (Settings, error) {
	return endpoint.Get[Settings](ctx, e.Base, "settings/"+transport.PathSegment(id), scope, nil)
}

// PutPluginSettings replaces the settings of one plugin.
func (e *Endpoint) PutPluginSettings(ctx context.Context, id string, values map[string]interface{}, scope transport.Scope) (Settings, error) {
	if values == nil {
		values = map[string]interface{}{}
	}
	return endpoint.Put[Settings](ctx, e.Base, "settings/"+transport.PathSegment(id), values, scope)
}

// GetPluginDetails returns the manifest of one plugin.
func (e *Endpoint) GetPluginDetails(ctx context.Context, id string, scope transport.Scope) (Details, error) {
	return endpoint.Get[Details](ctx, e.Base, transport.PathSegment(id), scope, nil)
}

// DeletePlugin uninstalls one plugin.
func (e *Endpoint) DeletePlugin(ctx context.Context, id string, scope transport.Scope) (Delete, error) {
	return endpoint.Delete[Delete](ctx, e.Base, transport.PathSegment(id), scope.System(), nil)
}
