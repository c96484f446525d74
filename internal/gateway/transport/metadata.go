package transport

import "net/http"

// WithMetadata - добавляет в исходящий запрос заголовки:
//   - X-Request-Id (если есть в контексте),
//   - Authorization: Bearer <token> (если есть в контексте),
//   - User-Agent (если передан параметром).
//
// Заголовки выставляются через Set: Authorization присутствует ровно один раз,
// даже если запрос отправляется повторно.
func WithMetadata(userAgent string) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return Func(func(r *http.Request) (*http.Response, error) {
			ctx := r.Context()

			// RoundTripper не должен менять исходный запрос.
			r = r.Clone(ctx)

			if rid := RequestID(ctx); rid != "" {
				r.Header.Set("X-Request-Id", rid)
			}

			if tok := authToken(ctx); tok != "" {
				r.Header.Set("Authorization", "Bearer "+tok)
			} else {
				r.Header.Del("Authorization")
			}

			if userAgent != "" {
				r.Header.Set("User-Agent", userAgent)
			}

			return next.RoundTrip(r)
		})
	}
}
