// Package users administers the backend's user accounts.
package users

import (
	"context"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path under which every user route lives.
const Prefix = "users"

// Endpoint groups the user routes. Users belong to the installation, so a
// scope naming no agent is sent as transport.SystemID.
type Endpoint struct {
	endpoint.Base
}

// New returns the users endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// Permissions maps a resource to the operations granted on it, e.g.
// "MEMORY": ["READ", "LIST"].
type Permissions map[string][]string

type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Permissions Permissions `json:"permissions"`
}

type Create struct {
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	Permissions Permissions `json:"permissions,omitempty"`
}

// Update replaces the given fields. Empty fields are kept.
type Update struct {
	Username    string      `json:"username,omitempty"`
	Password    string      `json:"password,omitempty"`
	Permissions Permissions `json:"permissions,omitempty"`
}

// Paging selects a page of users. Zero fields are left to the backend.
type Paging struct {
	Skip  int `query:"skip,omitempty"`
	Limit int `query:"limit,omitempty"`
}

// PostUser creates a user.
func (e *Endpoint) PostUser(ctx context.Context, user Create, scope transport.Scope) (User, error) {
	return endpoint.PostJSON[User](ctx, e.Base, "", user, scope.System())
}

// GetUsers lists a page of users.
func (e *Endpoint) GetUsers(ctx context.Context, paging Paging, scope transport.Scope) ([]User, error) {
	q, err := transport.QueryFrom(paging)
	if err != nil {
		return nil, err
	}
	return endpoint.Get[[]User](ctx, e.Base, "", scope.System(), q)
}

// GetUser returns one user.
func (e *Endpoint) GetUser(ctx context.Context, id string, scope transport.Scope) (User, error) {
	return endpoint.Get[User](ctx, e.Base, transport.PathSegment(id), scope.System(), nil)
}

// PutUser updates one user.
func (e *Endpoint) PutUser(ctx context.Context, id string, user Update, scope transport.Scope) (User, error) {
	return endpoint.Put[User](ctx, e.Base, transport.PathSegment(id), user, scope.System())
}

// DeleteUser removes one user and returns it.
func (e *Endpoint) DeleteUser(ctx context.Context, id string, scope transport.Scope) (User, error) {
	return endpoint.Delete[User](ctx, e.Base, transport.PathSegment(id), scope.System(), nil)
}
