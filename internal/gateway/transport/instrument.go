package transport

import (
	"net/http"
	"time"
)

// Observer получает итог каждого HTTP-вызова; status == 0 - ошибка транспорта.
type Observer interface {
	ObserveCall(method string, status int, dur time.Duration)
}

// Instrument сообщает наблюдателю о каждом вызове. nil obs - no-op.
func Instrument(obs Observer) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		if obs == nil {
			return next
		}

		return Func(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			status := 0
			if err == nil {
				status = resp.StatusCode
			}
			obs.ObserveCall(r.Method, status, time.Since(start))

			return resp, err
		})
	}
}
