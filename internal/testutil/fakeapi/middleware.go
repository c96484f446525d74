package fakeapi

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// recoverer превращает панику обработчика в 500 без деталей.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
			}
		}()

		s.mu.Lock()
		panics := s.panicOn[strings.TrimPrefix(r.URL.Path, Prefix)]
		s.mu.Unlock()
		if panics {
			panic("fakeapi: forced panic")
		}

		next.ServeHTTP(w, r)
	})
}

// requestID отражает X-Request-Id клиента в ответ, при отсутствии генерирует свой.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-Id", id)
		}
		w.Header().Set("X-Request-Id", id)

		next.ServeHTTP(w, r)
	})
}

// record учитывает вызов: счётчик, заголовок Authorization, X-Request-Id.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, Prefix)

		s.mu.Lock()
		s.calls[r.Method+" "+path]++
		s.authSeen[path] = append(s.authSeen[path], strings.Join(r.Header.Values("Authorization"), "|"))
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-Id"))
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}
