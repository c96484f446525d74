// gateway - единая точка исходящих вызовов к REST-бэкенду маршрутов.
//
// Основные аспекты:
//   - к каждому вызову прикладывается текущий access-токен (Bearer);
//   - 401 на первой попытке запускает ровно один цикл refresh-and-retry;
//   - исчерпанное восстановление (нет refresh, обмен отклонён, 401 после retry)
//     очищает оба слота, публикует Invalidation подписчикам и возвращает
//     терминальную ошибку вида Unauthorized;
//   - прочие ошибки возвращаются типизированными значениями (internal/errors),
//     сессию они не трогают. Это касается и отмены ctx вызывающего во время
//     refresh: результат - сетевая ошибка, слоты остаются.
//
// Gateway безопасен для конкурентного использования: каждый логический
// запрос несёт собственную запись попытки, общим состоянием остаётся только
// хранилище учётных данных (слоты перезаписываются целиком).
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pribylovaa/route-planner/internal/credentials"
	apierrors "github.com/pribylovaa/route-planner/internal/errors"
	"github.com/pribylovaa/route-planner/internal/gateway/transport"
	"github.com/pribylovaa/route-planner/internal/models"
	logctx "github.com/pribylovaa/route-planner/internal/pkg/log"
	"github.com/pribylovaa/route-planner/internal/pkg/redact"
)

// RefreshPath - эндпоинт обмена refresh-токена на новый access.
const RefreshPath = "/auth/refresh/"

// maxBodySize ограничивает тело ответа, читаемое в память.
const maxBodySize = 8 << 20

// defaultRefreshTimeout ограничивает общий обмен refresh, если таймаут попытки не задан.
const defaultRefreshTimeout = 30 * time.Second

var (
	// ErrNoRefreshToken - слот refresh пуст, восстановить сессию нечем.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrRefreshRejected - бэкенд отклонил обмен или вернул пустой access.
	ErrRefreshRejected = errors.New("refresh rejected")
	// ErrRejectedAfterRefresh - повторная попытка со свежим access снова получила 401.
	ErrRejectedAfterRefresh = errors.New("rejected after refresh")
)

// Причины инвалидации сессии.
const (
	ReasonNoRefreshToken       = "no_refresh_token"
	ReasonRefreshFailed        = "refresh_failed"
	ReasonRejectedAfterRefresh = "rejected_after_refresh"
)

// Invalidation - уведомление о принудительном завершении сессии.
// Навигацию на экран входа решает слой представления.
type Invalidation struct {
	Reason    string
	RequestID string
	At        time.Time
}

// Call - логический запрос.
// Body кодируется в JSON, если не nil. Public-вызовы (вход, регистрация)
// не несут Bearer и не запускают refresh: 401 там - отказ в учётных данных,
// а не истёкшая сессия.
type Call struct {
	Method string
	Path   string
	Body   any
	Query  url.Values
	Public bool
}

// Response - успешный (или не-401) ответ бэкенда.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode раскладывает JSON-тело в v. Пустое тело - no-op.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("gateway.Response.Decode: %w", err)
	}

	return nil
}

// Options - параметры сборки шлюза.
type Options struct {
	BaseURL   string
	UserAgent string
	// Timeout - таймаут одной попытки; не переопределяет дедлайн вызывающего.
	Timeout time.Duration
	// CoalesceRefresh объединяет одновременные обмены одного refresh-токена.
	CoalesceRefresh bool
	Logger          *slog.Logger
	Metrics         *Metrics
	// Transport - базовый RoundTripper (nil - http.DefaultTransport).
	Transport http.RoundTripper
}

// Gateway - реализация Request Gateway.
type Gateway struct {
	base     string
	client   *http.Client
	store    credentials.Store
	log      *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
	coalesce bool
	flight   singleflight.Group

	mu   sync.Mutex
	subs map[chan Invalidation]struct{}
}

// attempt - неизменяемая запись попытки логического запроса.
// access - токен, с которым уходит попытка (пустой - без Bearer).
type attempt struct {
	number int
	access string
}

func (a attempt) retried() bool { return a.number > 1 }

func (a attempt) next(access string) attempt {
	return attempt{number: a.number + 1, access: access}
}

// New собирает шлюз: цепочка транспорта metadata -> logging -> instrument.
func New(store credentials.Store, opts Options) (*Gateway, error) {
	const op = "gateway.New"

	if store == nil {
		return nil, fmt.Errorf("%s: nil credentials store", op)
	}

	u, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: parse base url: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: base url %q must be http(s)", op, opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "gateway"))

	rt := transport.Chain(opts.Transport,
		transport.WithMetadata(opts.UserAgent),
		transport.Logging(log),
		transport.Instrument(opts.Metrics),
	)

	return &Gateway{
		base:     strings.TrimRight(u.String(), "/"),
		client:   &http.Client{Transport: rt},
		store:    store,
		log:      log,
		metrics:  opts.Metrics,
		timeout:  opts.Timeout,
		coalesce: opts.CoalesceRefresh,
		subs:     make(map[chan Invalidation]struct{}),
	}, nil
}

// Request выполняет логический запрос по алгоритму refresh-and-retry.
// Ошибка всегда *errors.Error (кроме ошибок кодирования тела/URL).
func (g *Gateway) Request(ctx context.Context, call Call) (*Response, error) {
	const op = "gateway.Request"

	rid := transport.RequestID(ctx)
	if rid == "" {
		rid = uuid.NewString()
		ctx = transport.WithRequestID(ctx, rid)
	}

	body, err := encodeBody(call.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: encode body: %w", op, err)
	}

	target, err := g.url(call.Path, call.Query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	first := attempt{number: 1}
	if !call.Public {
		first.access, _ = g.store.Get(credentials.Access)
	}

	return g.send(ctx, call, target, body, first)
}

func (g *Gateway) send(ctx context.Context, call Call, target string, body []byte, at attempt) (*Response, error) {
	rid := transport.RequestID(ctx)

	resp, err := g.do(ctx, call.Method, target, body, at.access)
	if err != nil {
		return nil, apierrors.Network(rid, err)
	}

	if resp.Status != http.StatusUnauthorized || call.Public {
		if e := apierrors.FromResponse(resp.Status, resp.Body, rid); e != nil {
			return nil, e
		}
		return resp, nil
	}

	// 401 на повторной попытке: второго refresh не будет.
	if at.retried() {
		g.invalidate(ctx, ReasonRejectedAfterRefresh)
		return nil, apierrors.Unauthorized(resp.Body, rid, ErrRejectedAfterRefresh)
	}

	access, err := g.refresh(ctx)
	if err != nil {
		// отмена или дедлайн вызывающего - не отказ авторизации: сессию не трогаем
		if canceled(ctx, err) {
			return nil, apierrors.Network(rid, err)
		}

		reason := ReasonRefreshFailed
		if errors.Is(err, ErrNoRefreshToken) {
			reason = ReasonNoRefreshToken
		}
		g.invalidate(ctx, reason)
		return nil, apierrors.Unauthorized(resp.Body, rid, err)
	}

	return g.send(ctx, call, target, body, at.next(access))
}

// do - одна попытка HTTP-вызова с полным чтением тела под таймаутом.
func (g *Gateway) do(ctx context.Context, method, target string, body []byte, access string) (*Response, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	ctx = transport.WithAuthToken(ctx, access)

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// refresh получает новый access-токен. С CoalesceRefresh одновременные
// обмены одного и того же refresh-токена схлопываются в один вызов.
func (g *Gateway) refresh(ctx context.Context) (string, error) {
	tok, ok := g.store.Get(credentials.Refresh)
	if !ok {
		g.metrics.refresh(refreshAbsent)
		return "", ErrNoRefreshToken
	}

	if !g.coalesce {
		return g.exchange(ctx, tok)
	}

	// Общий обмен не наследует отмену ведущего: его результат получат все
	// присоединившиеся вызовы. Каждый вызывающий ждёт только в пределах своего ctx.
	ch := g.flight.DoChan(tok, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout())
		defer cancel()

		return g.exchange(fctx, tok)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (g *Gateway) refreshTimeout() time.Duration {
	if g.timeout > 0 {
		return g.timeout
	}

	return defaultRefreshTimeout
}

// canceled - ошибка вызвана отменой (или дедлайном) самого ctx вызывающего.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// exchange - вызов /auth/refresh/ без Bearer. Любой неуспех - ErrRefreshRejected
// (или ошибка транспорта); новый access (и ротированный refresh) сохраняются.
func (g *Gateway) exchange(ctx context.Context, refreshTok string) (string, error) {
	const op = "gateway.exchange"

	lg := logctx.From(ctx, g.log)

	body, err := json.Marshal(models.RefreshRequest{Refresh: refreshTok})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	target, err := g.url(RefreshPath, nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	resp, err := g.do(ctx, http.MethodPost, target, body, "")
	if err != nil {
		if canceled(ctx, err) {
			g.metrics.refresh(refreshCanceled)
			lg.Info("refresh_canceled", slog.String("err", err.Error()))
			return "", fmt.Errorf("%s: %w", op, err)
		}
		g.metrics.refresh(refreshFailed)
		lg.Warn("refresh_failed", slog.String("err", err.Error()))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if resp.Status < 200 || resp.Status > 299 {
		g.metrics.refresh(refreshFailed)
		lg.Warn("refresh_rejected", slog.Int("status", resp.Status))
		return "", fmt.Errorf("%s: status %d: %w", op, resp.Status, ErrRefreshRejected)
	}

	var out models.RefreshPayload
	if err := resp.Decode(&out); err != nil || out.Access == "" {
		g.metrics.refresh(refreshFailed)
		lg.Warn("refresh_bad_payload")
		return "", fmt.Errorf("%s: empty access token: %w", op, ErrRefreshRejected)
	}

	g.store.Set(credentials.Access, out.Access)
	if out.Refresh != "" {
		g.store.Set(credentials.Refresh, out.Refresh)
	}

	g.metrics.refresh(refreshOK)
	lg.Debug("token_refreshed", slog.String("access", redact.Token(out.Access)))

	return out.Access, nil
}

// invalidate - неустранимый отказ авторизации: очистка слотов и уведомление.
func (g *Gateway) invalidate(ctx context.Context, reason string) {
	credentials.ClearAll(g.store)
	g.metrics.invalidated()

	ev := Invalidation{
		Reason:    reason,
		RequestID: transport.RequestID(ctx),
		At:        time.Now().UTC(),
	}

	logctx.From(ctx, g.log).Warn("session_invalidated", slog.String("reason", reason))

	g.mu.Lock()
	defer g.mu.Unlock()

	for ch := range g.subs {
		// Неблокирующая отправка: одно непрочитанное уведомление уже означает
		// «сессия завершена», дубли не нужны.
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe возвращает канал уведомлений об инвалидации и функцию отписки.
func (g *Gateway) Subscribe() (<-chan Invalidation, func()) {
	ch := make(chan Invalidation, 1)

	g.mu.Lock()
	g.subs[ch] = struct{}{}
	g.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, ch)
			g.mu.Unlock()
		})
	}

	return ch, cancel
}

// HasAccess сообщает, есть ли сохранённый access-токен.
func (g *Gateway) HasAccess() bool {
	_, ok := g.store.Get(credentials.Access)
	return ok
}

// SaveCredentials сохраняет пару, полученную при входе/регистрации.
func (g *Gateway) SaveCredentials(access, refresh string) {
	g.store.Set(credentials.Access, access)
	g.store.Set(credentials.Refresh, refresh)
}

// ClearCredentials очищает оба слота без уведомления подписчиков.
func (g *Gateway) ClearCredentials() {
	credentials.ClearAll(g.store)
}

func (g *Gateway) url(path string, query url.Values) (string, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("path %q must start with '/'", path)
	}

	target := g.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	return target, nil
}

func encodeBody(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	return json.Marshal(v)
}

// withTimeout навешивает таймаут d, если у ctx ещё нет дедлайна.
// d <= 0 - контекст не меняется.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, d)
}
