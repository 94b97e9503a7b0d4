// Package settings reads and writes the backend's key/value settings.
package settings

import (
	"context"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path under which every settings route lives.
const Prefix = "settings"

// Endpoint groups the settings routes.
type Endpoint struct {
	endpoint.Base
}

// New returns the settings endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// Setting is a stored setting. SettingID and UpdatedAt are set by the
// backend.
type Setting struct {
	SettingID string      `json:"setting_id,omitempty"`
	Name      string      `json:"name"`
	Value     interface{} `json:"value"`
	Category  string      `json:"category,omitempty"`
	UpdatedAt float64     `json:"updated_at,omitempty"`
}

type List struct {
	Settings []Setting `json:"settings"`
}

type Response struct {
	Setting Setting `json:"setting"`
}

type Delete struct {
	Deleted string `json:"deleted"`
}

// GetSettings lists the settings whose name contains search. An empty
// search lists them all.
func (e *Endpoint) GetSettings(ctx context.Context, search string, scope transport.Scope) (List, error) {
	var q transport.Query
	if search != "" {
		q = transport.QueryOf(map[string]interface{}{"search": search})
	}
	return endpoint.Get[List](ctx, e.Base, "", scope, q)
}

// PostSetting creates a setting.
func (e *Endpoint) PostSetting(ctx context.Context, s Setting, scope transport.Scope) (Response, error) {
	return endpoint.PostJSON[Response](ctx, e.Base, "", s, scope)
}

// GetSetting returns one setting.
func (e *Endpoint) GetSetting(ctx context.Context, id string, scope transport.Scope) (Response, error) {
	return endpoint.Get[Response](ctx, e.Base, transport.PathSegment(id), scope, nil)
}

// PutSetting replaces one setting.
func (e *Endpoint) PutSetting(ctx context.Context, id string, s Setting, scope transport.Scope) (Response, error) {
	return endpoint.Put[Response](ctx, e.Base, transport.PathSegment(id), s, scope)
}

// DeleteSetting removes one setting.
func (e *Endpoint) DeleteSetting(ctx context.Context, id string, scope transport.Scope) (Delete, error) {
	return endpoint.Delete[Delete](ctx, e.Base, transport.PathSegment(id), scope, nil)
}
