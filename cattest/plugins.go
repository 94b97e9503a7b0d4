package cattest

import (
	"net/http"
	"path"
	"strings"
)

type plugin struct {
	id       string
	active   bool
	settings map[string]interface{}
}

func (p *plugin) manifest() map[string]interface{} {
	return map[string]interface{}{
		"id":          p.id,
		"name":        p.id,
		"description": "Plugin " + p.id,
		"author_name": "cattest",
		"version":     "0.0.1",
		"active":      p.active,
	}
}

// installPlugin registers a plugin. The caller must hold s.mtx, or be
// NewServer.
func (s *Server) installPlugin(id string, active bool) {
	if _, ok := s.plugins[id]; !ok {
		s.pluginOrder = append(s.pluginOrder, id)
	}
	s.plugins[id] = &plugin{id: id, active: active, settings: map[string]interface{}{}}
}

// PluginActive reports whether the plugin id is installed and active.
func (s *Server) PluginActive(id string) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.plugins[id]
	return ok && p.active
}

// pluginOf returns the plugin named in the route, writing a 404 if there is
// none. The caller must hold s.mtx.
func (s *Server) pluginOf(w http.ResponseWriter, r *http.Request) (*plugin, bool) {
	p, ok := s.plugins[vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "plugin not found")
	}
	return p, ok
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	s.mtx.Lock()
	defer s.mtx.Unlock()
	installed := []map[string]interface{}{}
	for _, id := range s.pluginOrder {
		if query == "" || contains(id, query) {
			installed = append(installed, s.plugins[id].manifest())
		}
	}
	filters := map[string]interface{}{}
	if query != "" {
		filters["query"] = query
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filters":   filters,
		"installed": installed,
		"registry":  []interface{}{},
	})
}

func (s *Server) uploadPlugin(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	file.Close()
	if !strings.HasSuffix(header.Filename, ".zip") {
		writeError(w, http.StatusBadRequest, "plugin must be a zip file")
		return
	}
	s.mtx.Lock()
	s.installPlugin(strings.TrimSuffix(header.Filename, ".zip"), true)
	s.mtx.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"filename":     header.Filename,
		"content_type": header.Header.Get("Content-Type"),
		"info":         "Plugin is being installed asynchronously",
	})
}

func (s *Server) installFromRegistry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mtx.Lock()
	s.installPlugin(path.Base(req.URL), true)
	s.mtx.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":  req.URL,
		"info": "Plugin is being installed asynchronously",
	})
}

func (s *Server) togglePlugin(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.pluginOf(w, r)
	if !ok {
		return
	}
	p.active = !p.active
	writeJSON(w, http.StatusOK, map[string]interface{}{"info": "Plugin " + p.id + " toggled"})
}

func (p *plugin) settingsOutput() map[string]interface{} {
	return map[string]interface{}{
		"name":   p.id,
		"value":  p.settings,
		"schema": map[string]interface{}{"type": "object"},
	}
}

func (s *Server) pluginsSettings(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	list := []map[string]interface{}{}
	for _, id := range s.pluginOrder {
		list = append(list, s.plugins[id].settingsOutput())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": list})
}

func (s *Server) pluginSettings(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.pluginOf(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p.settingsOutput())
}

func (s *Server) putPluginSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]interface{}
	if !decode(w, r, &values) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.pluginOf(w, r)
	if !ok {
		return
	}
	p.settings = values
	writeJSON(w, http.StatusOK, p.settingsOutput())
}

func (s *Server) pluginDetails(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.pluginOf(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": p.manifest()})
}

func (s *Server) deletePlugin(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	p, ok := s.pluginOf(w, r)
	if !ok {
		return
	}
	delete(s.plugins, p.id)
	for i, id := range s.pluginOrder {
		if id == p.id {
			s.pluginOrder = append(s.pluginOrder[:i], s.pluginOrder[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": p.id})
}
