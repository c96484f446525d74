package transport

import (
	"log/slog"
	"net/http"
	"time"

	logctx "github.com/pribylovaa/route-planner/internal/pkg/log"
)

// Logging - логирование исходящих HTTP-вызовов.
// Поведение:
//   - добавляет поля request_id/method/path к логгеру из контекста (или base);
//   - пишет одну итоговую запись msg="http_call": status (0 при ошибке транспорта), dur;
//   - ошибки транспорта пишутся уровнем Warn с полем err.
//
// Безопасность: не логирует тела и заголовок Authorization.
func Logging(base *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			ctx, l := logctx.With(r.Context(), base,
				slog.String("request_id", RequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			r = r.WithContext(ctx)

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.LogAttrs(ctx, slog.LevelWarn, "http_call",
					slog.Int("status", 0),
					slog.Duration("dur", time.Since(start)),
					slog.String("err", err.Error()),
				)
				return nil, err
			}

			l.LogAttrs(ctx, slog.LevelInfo, "http_call",
				slog.Int("status", resp.StatusCode),
				slog.Duration("dur", time.Since(start)),
			)

			return resp, nil
		})
	}
}
