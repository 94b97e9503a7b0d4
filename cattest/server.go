// Package cattest provides an in-memory backend for tests. It serves the
// routes the SDK calls, keeps just enough state for them to be observable,
// and records every request it receives.
package cattest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// DefaultAgent is the agent a request without X-Agent-ID is served as.
const DefaultAgent = "agent"

// Request is a request received by the Server.
type Request struct {
	Method   string
	Path     string // escaped
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Server is a running fake backend. Its exported fields must be set before
// the first request.
type Server struct {
	*httptest.Server

	// APIKey, when set, is required as a bearer token, or as the token
	// parameter of a channel.
	APIKey string

	mtx      sync.Mutex
	requests []Request
	failures []int

	collections map[string]*collection
	history     map[string][]map[string]interface{}
	plugins     map[string]*plugin
	pluginOrder []string
	users       map[string]map[string]interface{}
	settings    map[string]map[string]interface{}
}

// NewServer starts a Server. Close it when done.
func NewServer() *Server {
	s := &Server{
		collections: map[string]*collection{},
		history:     map[string][]map[string]interface{}{},
		plugins:     map[string]*plugin{},
		users:       map[string]map[string]interface{}{},
		settings:    map[string]map[string]interface{}{},
	}
	for _, name := range []string{"declarative", "episodic", "procedural"} {
		s.collections[name] = newCollection()
	}
	s.installPlugin("core_plugin", true)
	s.Server = httptest.NewServer(s.routes())
	return s
}

// Requests returns the requests received so far, channel handshakes
// included.
func (s *Server) Requests() []Request {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the last request received.
func (s *Server) LastRequest() Request {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// FailNext makes the next len(codes) requests fail with the given statuses,
// in order.
func (s *Server) FailNext(codes ...int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.failures = append(s.failures, codes...)
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter().UseEncodedPath()
	r.Use(s.record, s.authenticate, s.fail)

	r.HandleFunc("/", s.status).Methods("GET")

	m := r.PathPrefix("/memory").Subrouter()
	m.HandleFunc("/collections", s.getCollections).Methods("GET")
	m.HandleFunc("/collections", s.wipeCollections).Methods("DELETE")
	m.HandleFunc("/collections/{collection}", s.wipeCollection).Methods("DELETE")
	m.HandleFunc("/collections/{collection}/points", s.postPoint).Methods("POST")
	m.HandleFunc("/collections/{collection}/points", s.getPoints).Methods("GET")
	m.HandleFunc("/collections/{collection}/points", s.deletePointsByMetadata).Methods("DELETE")
	m.HandleFunc("/collections/{collection}/points/{id}", s.putPoint).Methods("PUT")
	m.HandleFunc("/collections/{collection}/points/{id}", s.deletePoint).Methods("DELETE")
	m.HandleFunc("/conversation_history", s.getHistory).Methods("GET")
	m.HandleFunc("/conversation_history", s.postHistory).Methods("POST")
	m.HandleFunc("/conversation_history", s.deleteHistory).Methods("DELETE")
	m.HandleFunc("/recall", s.recall).Methods("GET")

	p := r.PathPrefix("/plugins").Subrouter()
	r.HandleFunc("/plugins{slash:/?}", s.listPlugins).Methods("GET")
	p.HandleFunc("/upload", s.uploadPlugin).Methods("POST")
	p.HandleFunc("/upload/registry", s.installFromRegistry).Methods("POST")
	p.HandleFunc("/toggle/{id}", s.togglePlugin).Methods("PUT")
	p.HandleFunc("/settings", s.pluginsSettings).Methods("GET")
	p.HandleFunc("/settings/{id}", s.pluginSettings).Methods("GET")
	p.HandleFunc("/settings/{id}", s.putPluginSettings).Methods("PUT")
	p.HandleFunc("/{id}", s.pluginDetails).Methods("GET")
	p.HandleFunc("/{id}", s.deletePlugin).Methods("DELETE")

	h := r.PathPrefix("/rabbithole").Subrouter()
	r.HandleFunc("/rabbithole{slash:/?}", s.uploadFile).Methods("POST")
	h.HandleFunc("/batch", s.uploadFiles).Methods("POST")
	h.HandleFunc("/web", s.uploadURL).Methods("POST")
	h.HandleFunc("/memory", s.uploadMemory).Methods("POST")
	h.HandleFunc("/allowed-mimetypes", s.allowedMimeTypes).Methods("GET")

	u := r.PathPrefix("/users").Subrouter()
	r.HandleFunc("/users{slash:/?}", s.createUser).Methods("POST")
	r.HandleFunc("/users{slash:/?}", s.listUsers).Methods("GET")
	u.HandleFunc("/{id}", s.getUser).Methods("GET")
	u.HandleFunc("/{id}", s.updateUser).Methods("PUT")
	u.HandleFunc("/{id}", s.deleteUser).Methods("DELETE")

	st := r.PathPrefix("/settings").Subrouter()
	r.HandleFunc("/settings{slash:/?}", s.listSettings).Methods("GET")
	r.HandleFunc("/settings{slash:/?}", s.createSetting).Methods("POST")
	st.HandleFunc("/{id}", s.getSetting).Methods("GET")
	st.HandleFunc("/{id}", s.updateSetting).Methods("PUT")
	st.HandleFunc("/{id}", s.deleteSetting).Methods("DELETE")

	r.HandleFunc("/message{slash:/?}", s.message).Methods("POST")
	r.HandleFunc("/ws", s.chat)
	r.HandleFunc("/ws/{agent}", s.chat)
	r.HandleFunc("/ws/{agent}/{user}", s.chat)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found: "+r.Method+" "+r.URL.EscapedPath())
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "We're all mad here, you and me.",
		"version": "test",
	})
}

// agentOf returns the agent and user a request is served as.
func agentOf(r *http.Request) (agent, user string) {
	agent, user = r.Header.Get("X-Agent-ID"), r.Header.Get("X-User-ID")
	if v := vars(r); v["agent"] != "" {
		agent, user = v["agent"], v["user"]
	}
	if agent == "" {
		agent = DefaultAgent
	}
	if user == "" {
		user = "user"
	}
	return agent, user
}

// vars returns the unescaped route variables of r. Routes match on the
// escaped path, so an encoded separator stays inside its segment.
func vars(r *http.Request) map[string]string {
	out := map[string]string{}
	for k, v := range mux.Vars(r) {
		if u, err := url.PathUnescape(v); err == nil {
			v = u
		}
		out[k] = v
	}
	return out
}

func newID() string { return uuid.NewString() }

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]interface{}{"detail": map[string]string{"error": detail}})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
