package cattest

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

const maxUpload = 32 << 20

// AllowedMimeTypes are the content types the rabbit hole accepts.
var AllowedMimeTypes = []string{"application/json", "application/pdf", "text/markdown", "text/plain"}

func allowed(contentType string) bool {
	for _, t := range AllowedMimeTypes {
		if t == contentType {
			return true
		}
	}
	return contentType == "application/octet-stream"
}

// ingest stores the content of fh in declarative memory as one point, tagged
// with the form's metadata and chunking options.
func (s *Server) ingest(fh *multipart.FileHeader, form *multipart.Form) (map[string]interface{}, int, error) {
	contentType := fh.Header.Get("Content-Type")
	if !allowed(contentType) {
		return nil, http.StatusBadRequest, errUnsupported(contentType)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	metadata := map[string]interface{}{"source": fh.Filename}
	if raw := formValue(form, "metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, http.StatusBadRequest, err
		}
		metadata["source"] = fh.Filename
	}
	for _, key := range []string{"chunk_size", "chunk_overlap"} {
		if raw := formValue(form, key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			metadata[key] = float64(n)
		}
	}

	s.mtx.Lock()
	s.collections["declarative"].add(newID(), point{content: string(content), metadata: metadata})
	s.mtx.Unlock()

	return map[string]interface{}{
		"filename":     fh.Filename,
		"content_type": contentType,
		"info":         "File is being ingested asynchronously",
	}, http.StatusOK, nil
}

func formValue(form *multipart.Form, key string) string {
	if vs := form.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

type errUnsupported string

func (e errUnsupported) Error() string {
	return "MIME type " + string(e) + " not supported"
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		writeError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}
	out, code, err := s.ingest(files[0], r.MultipartForm)
	if err != nil {
		writeError(w, code, err.Error())
		return
	}
	writeJSON(w, code, out)
}

func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out := map[string]interface{}{}
	for _, fh := range r.MultipartForm.File["files"] {
		res, code, err := s.ingest(fh, r.MultipartForm)
		if err != nil {
			writeError(w, code, err.Error())
			return
		}
		out[fh.Filename] = res
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) uploadURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string                 `json:"url"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	metadata := map[string]interface{}{}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["source"] = req.URL

	s.mtx.Lock()
	s.collections["declarative"].add(newID(), point{content: "content of " + req.URL, metadata: metadata})
	s.mtx.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":  req.URL,
		"info": "URL is being ingested asynchronously",
	})
}

func (s *Server) uploadMemory(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	var export struct {
		Collections map[string][]struct {
			PageContent string                 `json:"page_content"`
			Metadata    map[string]interface{} `json:"metadata"`
		} `json:"collections"`
	}
	if err := json.NewDecoder(file).Decode(&export); err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory export: "+err.Error())
		return
	}

	s.mtx.Lock()
	for _, p := range export.Collections["declarative"] {
		s.collections["declarative"].add(newID(), point{content: p.PageContent, metadata: p.Metadata})
	}
	s.mtx.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename":     header.Filename,
		"content_type": header.Header.Get("Content-Type"),
		"info":         "Memory is being ingested asynchronously",
	})
}

func (s *Server) allowedMimeTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"allowed": AllowedMimeTypes})
}
