// Package rabbithole ingests documents, web pages and memory exports into the
// backend's declarative memory.
package rabbithole

import (
	"context"
	"encoding/json"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/matteocacciola/cheshirecat-go-sdk/endpoint"
	"github.com/matteocacciola/cheshirecat-go-sdk/transport"
)

// Prefix is the path under which every ingestion route lives.
const Prefix = "rabbithole"

// Endpoint groups the ingestion routes.
type Endpoint struct {
	endpoint.Base
}

// New returns the rabbithole endpoint over caps.
func New(caps endpoint.Capabilities) *Endpoint {
	return &Endpoint{Base: endpoint.NewBase(Prefix, caps)}
}

// File is a document to upload. ContentType may be left empty.
type File struct {
	Name        string
	Content     io.Reader
	ContentType string
}

// Options tunes how an ingested document is split and tagged. Nil fields are
// left to the backend.
type Options struct {
	ChunkSize    *int
	ChunkOverlap *int
	Metadata     map[string]interface{}
}

// PostFile ingests one document.
func (e *Endpoint) PostFile(ctx context.Context, file File, opts Options, scope transport.Scope) (Upload, error) {
	parts, err := opts.parts(filePart("file", file))
	if err != nil {
		return Upload{}, err
	}
	return endpoint.PostMultipart[Upload](ctx, e.Base, "", parts, scope)
}

// PostFiles ingests several documents in one request. The answer is keyed by
// file name.
func (e *Endpoint) PostFiles(ctx context.Context, files []File, opts Options, scope transport.Scope) (map[string]Upload, error) {
	if len(files) == 0 {
		return nil, errors.New("rabbithole: no files to upload")
	}
	items := make([]transport.MultipartItem, 0, len(files))
	for _, f := range files {
		items = append(items, filePart("files", f))
	}
	parts, err := opts.parts(items...)
	if err != nil {
		return nil, err
	}
	return endpoint.PostMultipart[map[string]Upload](ctx, e.Base, "batch", parts, scope)
}

// PostWeb ingests the page at url.
func (e *Endpoint) PostWeb(ctx context.Context, url string, opts Options, scope transport.Scope) (WebUpload, error) {
	return endpoint.PostJSON[WebUpload](ctx, e.Base, "web", webRequest{
		URL:          url,
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		Metadata:     opts.Metadata,
	}, scope)
}

// PostMemory restores a memory export, as produced by the backend, into
// declarative memory.
func (e *Endpoint) PostMemory(ctx context.Context, file File, scope transport.Scope) (Upload, error) {
	if file.ContentType == "" {
		file.ContentType = "application/json"
	}
	return endpoint.PostMultipart[Upload](ctx, e.Base, "memory", []transport.MultipartItem{filePart("file", file)}, scope)
}

// GetAllowedMimeTypes lists the content types the backend can ingest.
func (e *Endpoint) GetAllowedMimeTypes(ctx context.Context, scope transport.Scope) (AllowedMimeTypes, error) {
	return endpoint.Get[AllowedMimeTypes](ctx, e.Base, "allowed-mimetypes", scope, nil)
}

func filePart(name string, f File) transport.MultipartItem {
	return transport.MultipartItem{
		Name:        name,
		Content:     f.Content,
		Filename:    f.Name,
		ContentType: f.ContentType,
	}
}

func (o Options) parts(files ...transport.MultipartItem) ([]transport.MultipartItem, error) {
	parts := files
	if o.ChunkSize != nil {
		parts = append(parts, transport.MultipartItem{Name: "chunk_size", Content: strconv.Itoa(*o.ChunkSize)})
	}
	if o.ChunkOverlap != nil {
		parts = append(parts, transport.MultipartItem{Name: "chunk_overlap", Content: strconv.Itoa(*o.ChunkOverlap)})
	}
	if len(o.Metadata) > 0 {
		b, err := json.Marshal(o.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "rabbithole: metadata")
		}
		parts = append(parts, transport.MultipartItem{Name: "metadata", Content: b})
	}
	return parts, nil
}

type webRequest struct {
	URL          string                 `json:"url"`
	ChunkSize    *int                   `json:"chunk_size,omitempty"`
	ChunkOverlap *int                   `json:"chunk_overlap,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Info        string `json:"info"`
}

type WebUpload struct {
	URL  string `json:"url"`
	Info string `json:"info"`
}

type AllowedMimeTypes struct {
	Allowed []string `json:"allowed"`
}
