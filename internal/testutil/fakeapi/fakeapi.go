// fakeapi - поддельный REST-бэкенд планировщика маршрутов для тестов.
// Выдаёт JWT access-токены (HS256, с поколением gen для принудительного
// «истечения»), непрозрачные refresh-токены и хранит пароли в bcrypt.
// Все вызовы учитываются, чтобы тесты могли проверять число запросов.
package fakeapi

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/route-planner/internal/models"
)

// Prefix - базовый путь API на сервере.
const Prefix = "/api"

type account struct {
	user     models.User
	passHash []byte
}

type accessClaims struct {
	UserID int64 `json:"uid"`
	Gen    int   `json:"gen"`
	jwt.RegisteredClaims
}

// Server - поддельный бэкенд поверх httptest.Server.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	secret     []byte
	gen        int
	accounts   map[string]*account // по email
	byID       map[int64]*account
	refresh    map[string]int64 // refresh -> user id
	routes     map[int64]*routeRec
	nextID     int64
	calls      map[string]int
	authSeen   map[string][]string
	requestIDs []string
	panicOn    map[string]bool
	unauth401  int

	rejectAll     bool
	failRefresh   bool
	rotateRefresh bool
	refreshGate   int
}

// New запускает сервер; закрывается через t.Cleanup.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:   []byte("fakeapi-secret"),
		accounts: make(map[string]*account),
		byID:     make(map[int64]*account),
		refresh:  make(map[string]int64),
		routes:   make(map[int64]*routeRec),
		calls:    make(map[string]int),
		authSeen: make(map[string][]string),
		panicOn:  make(map[string]bool),
	}

	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)

	return s
}

// BaseURL - адрес API для gateway.Options.BaseURL.
func (s *Server) BaseURL() string { return s.URL + Prefix }

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverer, s.requestID, s.record)

	r.Route(Prefix, func(r chi.Router) {
		r.Post("/auth/login/", s.login)
		r.Post("/auth/register/", s.register)
		r.Post("/auth/refresh/", s.refreshToken)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccess)

			r.Get("/auth/me/", s.me)
			r.Put("/auth/profile/", s.updateProfile)

			r.Get("/routes/", s.listRoutes)
			r.Post("/routes/", s.createRoute)
			r.Get("/routes/favorites/", s.favorites)
			r.Post("/routes/generate/", s.generateRoute)
			r.Get("/routes/{id}/", s.getRoute)
			r.Put("/routes/{id}/", s.updateRoute)
			r.Delete("/routes/{id}/", s.deleteRoute)
			r.Post("/routes/{id}/optimize/", s.optimizeRoute)
			r.Post("/routes/{id}/toggle_favorite/", s.toggleFavorite)

			r.Get("/attractions/", s.listAttractions)
			r.Get("/attractions/nearby/", s.nearbyAttractions)
			r.Get("/attractions/{id}/", s.getAttraction)

			r.Get("/analytics/popular/", s.popular)
			r.Get("/analytics/stats/", s.stats)
			r.Get("/analytics/attractions/stats/", s.attractionStats)
			r.Get("/analytics/charts/{kind}/", s.chart)
			r.Get("/analytics/user/", s.userAnalytics)
		})
	})

	return r
}

// --- управление сценариями ---

// AddUser регистрирует пользователя напрямую.
func (s *Server) AddUser(email, username, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addUserLocked(email, username, password).user
}

// IssueTokens выдаёт пару токенов существующему пользователю (посев хранилища).
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[strings.ToLower(email)]
	if acc == nil {
		panic("fakeapi: unknown user " + email)
	}

	return s.issueLocked(acc.user.ID)
}

// ExpireAccessTokens делает недействительными все выданные access-токены.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// RejectAllAccess - бэкенд отвергает любой access-токен, даже свежий.
func (s *Server) RejectAllAccess(v bool) {
	s.mu.Lock()
	s.rejectAll = v
	s.mu.Unlock()
}

// FailRefresh - обмен refresh-токена всегда отклоняется.
func (s *Server) FailRefresh(v bool) {
	s.mu.Lock()
	s.failRefresh = v
	s.mu.Unlock()
}

// RotateRefresh - обмен выдаёт и новый refresh-токен.
func (s *Server) RotateRefresh(v bool) {
	s.mu.Lock()
	s.rotateRefresh = v
	s.mu.Unlock()
}

// HoldRefreshUntil задерживает ответы /auth/refresh/ до тех пор, пока сервер
// не отдаст n ответов 401 защищённым эндпоинтам.
func (s *Server) HoldRefreshUntil(n int) {
	s.mu.Lock()
	s.refreshGate = n
	s.mu.Unlock()
}

// PanicOn заставляет обработчик пути path паниковать (ответ 500).
func (s *Server) PanicOn(path string) {
	s.mu.Lock()
	s.panicOn[path] = true
	s.mu.Unlock()
}

// RequestIDs - X-Request-Id всех вызовов в порядке поступления.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.requestIDs...)
}

// Calls - число вызовов "METHOD /path" (путь без префикса API).
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[method+" "+path]
}

// TotalCalls - общее число вызовов.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		n += c
	}

	return n
}

// AuthHeaders - значения Authorization у всех вызовов пути по порядку.
// Каждый элемент - все значения заголовка одного вызова, склеенные через "|".
func (s *Server) AuthHeaders(path string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.authSeen[path]...)
}

// --- middleware ---

type ctxUserKey struct{}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "

		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) {
			s.unauthorized(w, "Authentication credentials were not provided.")
			return
		}

		uid, ok := s.validateAccess(strings.TrimPrefix(auth, prefix))
		if !ok {
			s.unauthorized(w, "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), uid)))
	})
}

func (s *Server) unauthorized(w http.ResponseWriter, detail string) {
	s.mu.Lock()
	s.unauth401++
	s.mu.Unlock()

	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": detail,
		"code":   "token_not_valid",
	})
}

// --- токены ---

func (s *Server) issueLocked(uid int64) (string, string) {
	now := time.Now()
	claims := accessClaims{
		UserID: uid,
		Gen:    s.gen,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        randToken(8),
		},
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		panic(err)
	}

	refresh := randToken(32)
	s.refresh[refresh] = uid

	return access, refresh
}

func (s *Server) accessLocked(uid int64) string {
	access, refresh := s.issueLocked(uid)
	delete(s.refresh, refresh)
	return access
}

func (s *Server) validateAccess(tok string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectAll {
		return 0, false
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Gen != s.gen {
		return 0, false
	}

	if _, ok := s.byID[claims.UserID]; !ok {
		return 0, false
	}

	return claims.UserID, true
}

func (s *Server) addUserLocked(email, username, password string) *account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.nextID++
	acc := &account{
		user: models.User{
			ID:        s.nextID,
			Email:     strings.ToLower(email),
			Username:  username,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		passHash: hash,
	}

	s.accounts[acc.user.Email] = acc
	s.byID[acc.user.ID] = acc

	return acc
}

func randToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
