// transport предоставляет набор middleware для исходящих HTTP-вызовов
// (обёртки над http.RoundTripper): метаданные запроса, логирование, метрики.
package transport

import (
	"context"
	"net/http"
)

// Middleware - обёртка над RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Func - адаптер функции к http.RoundTripper.
type Func func(*http.Request) (*http.Response, error)

func (f Func) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Chain оборачивает base так, что mws[0] выполняется первым.
// nil base заменяется на http.DefaultTransport.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}

	return base
}

type CtxKey string

const (
	CtxRequestID CtxKey = "request_id"
	CtxAuthToken CtxKey = "auth_token"
)

// WithRequestID кладёт X-Request-Id логического запроса в контекст.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxRequestID, id)
}

// RequestID достаёт X-Request-Id из контекста.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(CtxRequestID).(string)
	return id
}

// WithAuthToken кладёт access-токен попытки в контекст.
// Пустой токен означает неаутентифицированный вызов.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, CtxAuthToken, token)
}

func authToken(ctx context.Context) string {
	tok, _ := ctx.Value(CtxAuthToken).(string)
	return tok
}
