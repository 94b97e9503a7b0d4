package cattest

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mtx.Lock()
		s.requests = append(s.requests, Request{
			Method:   r.Method,
			Path:     r.URL.EscapedPath(),
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     body,
		})
		s.mtx.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if strings.HasPrefix(r.URL.Path, "/ws") {
			token = r.URL.Query().Get("token")
		}
		if token != s.APIKey {
			writeError(w, http.StatusForbidden, "invalid credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) fail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mtx.Lock()
		code := 0
		if len(s.failures) > 0 {
			code, s.failures = s.failures[0], s.failures[1:]
		}
		s.mtx.Unlock()

		if code != 0 {
			writeError(w, code, http.StatusText(code))
			return
		}
		next.ServeHTTP(w, r)
	})
}
