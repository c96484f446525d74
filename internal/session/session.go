// session владеет состоянием сессии пользователя: кто вошёл и завершена ли
// загрузка при старте. Потребители получают Reader и только читают,
// менять состояние может лишь Manager.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	apierrors "github.com/pribylovaa/route-planner/internal/errors"
	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/models"
	"github.com/pribylovaa/route-planner/internal/pkg/redact"
)

// Сообщения по умолчанию, когда бэкенд не прислал своего.
const (
	MsgLoginFailed    = "Ошибка входа"
	MsgRegisterFailed = "Ошибка регистрации"
	MsgProfileFailed  = "Ошибка обновления профиля"
	MsgLoadFailed     = "Не удалось загрузить профиль"
)

// ErrNotAuthenticated - операция требует входа.
var ErrNotAuthenticated = errors.New("not authenticated")

// State - состояние сессии.
type State int

const (
	Bootstrapping State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Bootstrapping:
		return "bootstrapping"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session - снимок состояния.
type Session struct {
	User    *models.User
	Loading bool
}

// State выводит состояние из снимка.
func (s Session) State() State {
	switch {
	case s.Loading:
		return Bootstrapping
	case s.User == nil:
		return Anonymous
	default:
		return Authenticated
	}
}

// Reader - доступ к сессии только на чтение.
type Reader interface {
	Current() Session
}

//go:generate mockgen -destination=../../mocks/mock_auth.go -package=mocks github.com/pribylovaa/route-planner/internal/session AuthAPI
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*models.AuthPayload, error)
	Register(ctx context.Context, in models.RegisterInput) (*models.AuthPayload, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error)
}

//go:generate mockgen -destination=../../mocks/mock_credentials.go -package=mocks github.com/pribylovaa/route-planner/internal/session Credentials
type Credentials interface {
	HasAccess() bool
	SaveCredentials(access, refresh string)
	ClearCredentials()
}

// Failure - неуспех операции с текстом для показа пользователю.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func fail(err error, fallback string) *Failure {
	return &Failure{Message: apierrors.DisplayMessage(err, fallback), Err: err}
}

// Manager - единственный владелец Session.
type Manager struct {
	auth  AuthAPI
	creds Credentials
	log   *slog.Logger

	mu      sync.RWMutex
	user    *models.User
	loading bool

	boot sync.Once
}

var _ Reader = (*Manager)(nil)

func New(auth AuthAPI, creds Credentials, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}

	return &Manager{
		auth:    auth,
		creds:   creds,
		log:     log.With(slog.String("component", "session")),
		loading: true,
	}
}

// Current возвращает копию текущего состояния.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Session{User: cloneUser(m.user), Loading: m.loading}
}

// RestoreSession восстанавливает сессию из сохранённых учётных данных.
// Без access-токена сеть не трогается. Любая ошибка загрузки профиля
// считает сохранённые данные недействительными и очищает оба слота.
// Loading снимается ровно один раз; повторные вызовы ничего не делают.
func (m *Manager) RestoreSession(ctx context.Context) (*models.User, bool) {
	m.boot.Do(func() {
		defer m.finishBoot()

		if !m.creds.HasAccess() {
			m.log.Debug("session_restore_skipped")
			return
		}

		u, err := m.auth.Me(ctx)
		if err != nil {
			m.creds.ClearCredentials()
			m.log.Info("session_restore_failed", slog.String("err", err.Error()))
			return
		}

		m.setUser(u)
		m.log.Info("session_restored", slog.Int64("user_id", u.ID))
	})

	s := m.Current()
	return s.User, s.User != nil
}

func (m *Manager) finishBoot() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}

// Login - вход по email и паролю.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	out, err := m.auth.Login(ctx, email, password)
	if err == nil {
		err = checkPayload(out)
	}
	if err != nil {
		m.log.Info("login_failed", slog.String("email", redact.Email(email)), slog.String("err", err.Error()))
		return fail(err, MsgLoginFailed)
	}

	m.establish(out)
	m.log.Info("login_succeeded", slog.String("email", redact.Email(email)), slog.Int64("user_id", out.User.ID))

	return nil
}

// Register - регистрация; контракт тот же, что у Login.
func (m *Manager) Register(ctx context.Context, in models.RegisterInput) error {
	out, err := m.auth.Register(ctx, in)
	if err == nil {
		err = checkPayload(out)
	}
	if err != nil {
		m.log.Info("register_failed", slog.String("email", redact.Email(in.Email)), slog.String("err", err.Error()))
		return fail(err, MsgRegisterFailed)
	}

	m.establish(out)
	m.log.Info("register_succeeded", slog.String("email", redact.Email(in.Email)), slog.Int64("user_id", out.User.ID))

	return nil
}

var errIncompletePayload = errors.New("incomplete auth payload")

func checkPayload(p *models.AuthPayload) error {
	if p == nil || p.Access == "" || p.Refresh == "" || p.User == nil {
		return errIncompletePayload
	}

	return nil
}

// establish сохраняет пару и пользователя. Явный вход завершает загрузку:
// последующий RestoreSession уже ничего не делает.
func (m *Manager) establish(p *models.AuthPayload) {
	m.creds.SaveCredentials(p.Access, p.Refresh)
	m.boot.Do(func() {})

	m.mu.Lock()
	m.user = cloneUser(p.User)
	m.loading = false
	m.mu.Unlock()
}

// Logout завершает сессию локально. Идемпотентен, в сеть не ходит.
func (m *Manager) Logout() {
	m.creds.ClearCredentials()
	m.setUser(nil)
	m.log.Info("logout")
}

// Reload перечитывает профиль. Unauthorized означает, что шлюз уже
// завершил сессию, - пользователь сбрасывается.
func (m *Manager) Reload(ctx context.Context) error {
	if m.Current().User == nil {
		return &Failure{Message: MsgLoadFailed, Err: ErrNotAuthenticated}
	}

	u, err := m.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, apierrors.ErrUnauthorized) {
			m.setUser(nil)
		}
		return fail(err, MsgLoadFailed)
	}

	m.setUser(u)
	return nil
}

// UpdateProfile меняет поля профиля и заменяет пользователя ответом бэкенда.
func (m *Manager) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) error {
	if m.Current().User == nil {
		return &Failure{Message: MsgProfileFailed, Err: ErrNotAuthenticated}
	}

	u, err := m.auth.UpdateProfile(ctx, upd)
	if err != nil {
		if errors.Is(err, apierrors.ErrUnauthorized) {
			m.setUser(nil)
		}
		return fail(err, MsgProfileFailed)
	}

	m.setUser(u)
	m.log.Info("profile_updated", slog.Int64("user_id", u.ID))

	return nil
}

// Watch переводит сессию в Anonymous при каждом уведомлении шлюза
// о неустранимом отказе авторизации. Блокируется до отмены ctx или
// закрытия канала.
func (m *Manager) Watch(ctx context.Context, events <-chan gateway.Invalidation) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			m.setUser(nil)
			m.log.Warn("session_ended",
				slog.String("reason", ev.Reason),
				slog.String("request_id", ev.RequestID),
			)
		}
	}
}

func (m *Manager) setUser(u *models.User) {
	m.mu.Lock()
	m.user = cloneUser(u)
	m.mu.Unlock()
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}

	c := *u
	return &c
}
