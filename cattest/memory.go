package cattest

import (
	"encoding/json"
	"net/http"
	"reflect"
	"time"
)

type point struct {
	content  string
	metadata map[string]interface{}
}

type collection struct {
	ids    []string
	points map[string]point
}

func newCollection() *collection {
	return &collection{points: map[string]point{}}
}

func (c *collection) add(id string, p point) {
	if _, ok := c.points[id]; !ok {
		c.ids = append(c.ids, id)
	}
	c.points[id] = p
}

func (c *collection) remove(id string) bool {
	if _, ok := c.points[id]; !ok {
		return false
	}
	delete(c.points, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	return true
}

func (p point) matches(metadata map[string]interface{}) bool {
	for k, v := range metadata {
		if !reflect.DeepEqual(p.metadata[k], v) {
			return false
		}
	}
	return true
}

func (p point) output(id string) map[string]interface{} {
	return map[string]interface{}{
		"id":       id,
		"content":  p.content,
		"metadata": p.metadata,
		"vector":   []float64{0.1, 0.2, 0.3},
	}
}

// AddPoint stores a point directly, bypassing the HTTP surface.
func (s *Server) AddPoint(collectionName, content string, metadata map[string]interface{}) string {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collections[collectionName]
	if !ok {
		c = newCollection()
		s.collections[collectionName] = c
	}
	id := newID()
	c.add(id, point{content: content, metadata: metadata})
	return id
}

// PointCount returns the number of points in a collection.
func (s *Server) PointCount(collectionName string) int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if c, ok := s.collections[collectionName]; ok {
		return len(c.ids)
	}
	return 0
}

// collectionOf returns the collection named in the route, writing a 404 if
// there is none. The caller must hold s.mtx.
func (s *Server) collectionOf(w http.ResponseWriter, r *http.Request) (*collection, bool) {
	c, ok := s.collections[vars(r)["collection"]]
	if !ok {
		writeError(w, http.StatusNotFound, "collection not found")
	}
	return c, ok
}

func (s *Server) getCollections(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	list := []map[string]interface{}{}
	for _, name := range sortedKeys(s.collections) {
		list = append(list, map[string]interface{}{
			"name":          name,
			"vectors_count": len(s.collections[name].ids),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": list})
}

func (s *Server) wipeCollections(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	deleted := map[string]bool{}
	for name := range s.collections {
		s.collections[name] = newCollection()
		deleted[name] = true
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": deleted})
}

func (s *Server) wipeCollection(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if _, ok := s.collectionOf(w, r); !ok {
		return
	}
	name := vars(r)["collection"]
	s.collections[name] = newCollection()
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": map[string]bool{name: true}})
}

type pointRequest struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s *Server) postPoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decode(w, r, &req) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collectionOf(w, r)
	if !ok {
		return
	}
	id := newID()
	p := point{content: req.Content, metadata: req.Metadata}
	c.add(id, p)
	writeJSON(w, http.StatusOK, p.output(id))
}

func (s *Server) putPoint(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decode(w, r, &req) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collectionOf(w, r)
	if !ok {
		return
	}
	id := vars(r)["id"]
	if _, ok := c.points[id]; !ok {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}
	p := point{content: req.Content, metadata: req.Metadata}
	c.add(id, p)
	writeJSON(w, http.StatusOK, p.output(id))
}

func (s *Server) deletePoint(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collectionOf(w, r)
	if !ok {
		return
	}
	id := vars(r)["id"]
	if !c.remove(id) {
		writeError(w, http.StatusNotFound, "point not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

func (s *Server) deletePointsByMetadata(w http.ResponseWriter, r *http.Request) {
	var metadata map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
		metadata = nil
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collectionOf(w, r)
	if !ok {
		return
	}
	for _, id := range append([]string(nil), c.ids...) {
		if c.points[id].matches(metadata) {
			c.remove(id)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

func (s *Server) getPoints(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	c, ok := s.collectionOf(w, r)
	if !ok {
		return
	}
	limit := atoi(r.URL.Query().Get("limit"), 100)
	start := 0
	if offset := r.URL.Query().Get("offset"); offset != "" {
		start = len(c.ids)
		for i, id := range c.ids {
			if id == offset {
				start = i
				break
			}
		}
	}
	end := start + limit
	if end > len(c.ids) {
		end = len(c.ids)
	}
	points := []map[string]interface{}{}
	for _, id := range c.ids[start:end] {
		p := c.points[id]
		points = append(points, map[string]interface{}{
			"id":      id,
			"payload": map[string]interface{}{"page_content": p.content, "metadata": p.metadata},
		})
	}
	next := ""
	if end < len(c.ids) {
		next = c.ids[end]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"points": points, "next_offset": next})
}

func (s *Server) recall(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	k := atoi(r.URL.Query().Get("k"), 10)
	var metadata map[string]interface{}
	if raw := r.URL.Query().Get("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			writeError(w, http.StatusBadRequest, "metadata: "+err.Error())
			return
		}
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	collections := map[string][]map[string]interface{}{}
	for _, name := range sortedKeys(s.collections) {
		c := s.collections[name]
		found := []map[string]interface{}{}
		for _, id := range c.ids {
			p := c.points[id]
			if len(found) == k || !contains(p.content, text) || !p.matches(metadata) {
				continue
			}
			found = append(found, map[string]interface{}{
				"id":           id,
				"page_content": p.content,
				"metadata":     p.metadata,
				"score":        1.0,
			})
		}
		collections[name] = found
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":   map[string]interface{}{"text": text, "vector": []float64{0.1, 0.2, 0.3}},
		"vectors": map[string]interface{}{"embedder": "FakeEmbedder", "collections": collections},
	})
}

func historyKey(r *http.Request) string {
	agent, user := agentOf(r)
	return agent + "/" + user
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	h := s.history[historyKey(r)]
	if h == nil {
		h = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": h})
}

func (s *Server) postHistory(w http.ResponseWriter, r *http.Request) {
	var item map[string]interface{}
	if !decode(w, r, &item) {
		return
	}
	if _, ok := item["when"]; !ok {
		item["when"] = float64(time.Now().Unix())
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	key := historyKey(r)
	s.history[key] = append(s.history[key], item)
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": s.history[key]})
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.history, historyKey(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}
