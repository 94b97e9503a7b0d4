// Package memory manages the backend's vector memory: collections, points,
// recall and the conversation history of the current user.
package memory

import (
	"context"
	"encoding/json"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path under which every memory route lives.
const Prefix = "memory"

// Endpoint groups the memory routes.
type Endpoint struct {
	endpoint.Base
}

// New returns the memory endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// GetCollections lists the collections with their point counts.
func (e *Endpoint) GetCollections(ctx context.Context, scope transport.Scope) (CollectionsList, error) {
	return endpoint.Get[CollectionsList](ctx, e.Base, "collections", scope, nil)
}

// DeleteAllCollectionPoints wipes every collection.
func (e *Endpoint) DeleteAllCollectionPoints(ctx context.Context, scope transport.Scope) (CollectionsWipe, error) {
	return endpoint.Delete[CollectionsWipe](ctx, e.Base, "collections", scope, nil)
}

// DeleteAllSingleCollectionPoints wipes one collection.
func (e *Endpoint) DeleteAllSingleCollectionPoints(ctx context.Context, collection Collection, scope transport.Scope) (CollectionsWipe, error) {
	return endpoint.Delete[CollectionsWipe](ctx, e.Base, "collections/"+transport.PathSegment(string(collection)), scope, nil)
}

// GetConversationHistory returns the conversation of the scope's user.
func (e *Endpoint) GetConversationHistory(ctx context.Context, scope transport.Scope) (ConversationHistory, error) {
	return endpoint.Get[ConversationHistory](ctx, e.Base, "conversation_history", scope, nil)
}

// DeleteConversationHistory clears the conversation of the scope's user.
func (e *Endpoint) DeleteConversationHistory(ctx context.Context, scope transport.Scope) (ConversationHistoryWipe, error) {
	return endpoint.Delete[ConversationHistoryWipe](ctx, e.Base, "conversation_history", scope, nil)
}

// PostConversationHistory appends a message to the conversation of the
// scope's user.
func (e *Endpoint) PostConversationHistory(ctx context.Context, item ConversationItem, scope transport.Scope) (ConversationHistory, error) {
	return endpoint.PostJSON[ConversationHistory](ctx, e.Base, "conversation_history", item, scope)
}

// GetMemoryRecall searches every collection for the points closest to text.
func (e *Endpoint) GetMemoryRecall(ctx context.Context, text string, opts RecallOptions, scope transport.Scope) (Recall, error) {
	q, err := opts.query(text)
	if err != nil {
		return Recall{}, err
	}
	return endpoint.Get[Recall](ctx, e.Base, "recall", scope, q)
}

// PostMemoryPoint stores a new point in collection.
func (e *Endpoint) PostMemoryPoint(ctx context.Context, collection Collection, point Point, scope transport.Scope) (PointOutput, error) {
	return endpoint.PostJSON[PointOutput](ctx, e.Base, "collections/"+transport.PathSegment(string(collection))+"/points", point, scope)
}

// PutMemoryPoint replaces the point id of collection.
func (e *Endpoint) PutMemoryPoint(ctx context.Context, collection Collection, id string, point Point, scope transport.Scope) (PointOutput, error) {
	return endpoint.Put[PointOutput](ctx, e.Base, "collections/"+transport.PathSegment(string(collection))+"/points/"+transport.PathSegment(id), point, scope)
}

// DeleteMemoryPoint removes the point id of collection.
func (e *Endpoint) DeleteMemoryPoint(ctx context.Context, collection Collection, id string, scope transport.Scope) (PointDelete, error) {
	return endpoint.Delete[PointDelete](ctx, e.Base, "collections/"+transport.PathSegment(string(collection))+"/points/"+transport.PathSegment(id), scope, nil)
}

// DeleteMemoryPointsByMetadata removes the points of collection whose
// metadata matches every given key. Nil metadata sends no criteria.
func (e *Endpoint) DeleteMemoryPointsByMetadata(ctx context.Context, collection Collection, metadata map[string]interface{}, scope transport.Scope) (PointsDeleteByMetadata, error) {
	return endpoint.Delete[PointsDeleteByMetadata](ctx, e.Base, "collections/"+transport.PathSegment(string(collection))+"/points", scope, metadata)
}

// GetMemoryPoints pages through the points of collection.
func (e *Endpoint) GetMemoryPoints(ctx context.Context, collection Collection, opts PointsOptions, scope transport.Scope) (Points, error) {
	q, err := transport.QueryFrom(opts)
	if err != nil {
		return Points{}, err
	}
	return endpoint.Get[Points](ctx, e.Base, "collections/"+transport.PathSegment(string(collection))+"/points", scope, q)
}

// RecallOptions narrows a recall. Zero fields are left to the backend.
type RecallOptions struct {
	K        int                    `query:"k,omitempty"`
	Metadata map[string]interface{} `query:"-"`
}

func (o RecallOptions) query(text string) (transport.Query, error) {
	q, err := transport.QueryFrom(o)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = transport.Query{}
	}
	q["text"] = []string{text}
	if len(o.Metadata) > 0 {
		b, err := json.Marshal(o.Metadata)
		if err != nil {
			return nil, err
		}
		q["metadata"] = []string{string(b)}
	}
	return q, nil
}

// PointsOptions pages through a collection.
type PointsOptions struct {
	Limit  int    `query:"limit,omitempty"`
	Offset string `query:"offset,omitempty"`
}
