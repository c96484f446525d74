// log хранит request-scoped логгер в контексте: транспорт исходящих вызовов
// обогащает его request_id/method/path, а шлюз и менеджер сессии пишут через него.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает fallback, а без него - slog.Default()).
func From(ctx context.Context, fallback ...*slog.Logger) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	for _, l := range fallback {
		if l != nil {
			return l
		}
	}

	return slog.Default()
}

// With возвращает контекст с логгером, дополненным attrs.
func With(ctx context.Context, base *slog.Logger, attrs ...any) (context.Context, *slog.Logger) {
	l := From(ctx, base).With(attrs...)
	return Into(ctx, l), l
}
