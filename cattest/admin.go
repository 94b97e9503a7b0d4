package cattest

import (
	"net/http"
	"strings"
	"time"
)

// publicUser drops the password before a user is written out.
func publicUser(u map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range u {
		if k != "password" {
			out[k] = v
		}
	}
	return out
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u map[string]interface{}
	if !decode(w, r, &u) {
		return
	}
	name, _ := u["username"].(string)
	if name == "" {
		writeError(w, http.StatusUnprocessableEntity, "username is required")
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, other := range s.users {
		if other["username"] == name {
			writeError(w, http.StatusForbidden, "cannot duplicate user")
			return
		}
	}
	u["id"] = newID()
	if _, ok := u["permissions"]; !ok {
		u["permissions"] = map[string]interface{}{}
	}
	s.users[u["id"].(string)] = u
	writeJSON(w, http.StatusOK, publicUser(u))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	skip := atoi(r.URL.Query().Get("skip"), 0)
	limit := atoi(r.URL.Query().Get("limit"), 100)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := []map[string]interface{}{}
	for i, id := range sortedKeys(s.users) {
		if i < skip || len(out) == limit {
			continue
		}
		out = append(out, publicUser(s.users[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userOf(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	u, ok := s.users[vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
	}
	return u, ok
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if u, ok := s.userOf(w, r); ok {
		writeJSON(w, http.StatusOK, publicUser(u))
	}
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var update map[string]interface{}
	if !decode(w, r, &update) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	u, ok := s.userOf(w, r)
	if !ok {
		return
	}
	for k, v := range update {
		if k != "id" {
			u[k] = v
		}
	}
	writeJSON(w, http.StatusOK, publicUser(u))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	u, ok := s.userOf(w, r)
	if !ok {
		return
	}
	delete(s.users, u["id"].(string))
	writeJSON(w, http.StatusOK, publicUser(u))
}

func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	s.mtx.Lock()
	defer s.mtx.Unlock()
	out := []map[string]interface{}{}
	for _, id := range sortedKeys(s.settings) {
		st := s.settings[id]
		if name, _ := st["name"].(string); search == "" || strings.Contains(name, search) {
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"settings": out})
}

func (s *Server) createSetting(w http.ResponseWriter, r *http.Request) {
	var st map[string]interface{}
	if !decode(w, r, &st) {
		return
	}
	if name, _ := st["name"].(string); name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	st["setting_id"] = newID()
	st["updated_at"] = float64(time.Now().Unix())
	s.mtx.Lock()
	s.settings[st["setting_id"].(string)] = st
	s.mtx.Unlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{"setting": st})
}

func (s *Server) settingOf(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	st, ok := s.settings[vars(r)["id"]]
	if !ok {
		writeError(w, http.StatusNotFound, "setting not found")
	}
	return st, ok
}

func (s *Server) getSetting(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if st, ok := s.settingOf(w, r); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"setting": st})
	}
}

func (s *Server) updateSetting(w http.ResponseWriter, r *http.Request) {
	var update map[string]interface{}
	if !decode(w, r, &update) {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	st, ok := s.settingOf(w, r)
	if !ok {
		return
	}
	id := st["setting_id"]
	for k := range st {
		delete(st, k)
	}
	for k, v := range update {
		st[k] = v
	}
	st["setting_id"] = id
	st["updated_at"] = float64(time.Now().Unix())
	writeJSON(w, http.StatusOK, map[string]interface{}{"setting": st})
}

func (s *Server) deleteSetting(w http.ResponseWriter, r *http.Request) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	st, ok := s.settingOf(w, r)
	if !ok {
		return
	}
	id := st["setting_id"].(string)
	delete(s.settings, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}
