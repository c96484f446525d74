package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logctx "github.com/pribylovaa/route-planner/internal/pkg/log"
	"github.com/stretchr/testify/require"
)

// capHandler - тестовый slog.Handler: копит attrs последней записи и счётчик сообщений.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
	count   map[string]int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})
	if h.count == nil {
		h.count = make(map[string]int)
	}
	h.count[r.Message]++
	h.lastMsg = r.Message
	h.lastLvl = r.Level
	h.attrs = out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.base = append(h.base, attrs...)
	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

// okBase - конечный RoundTripper, запоминающий последний запрос.
func okBase(seen **http.Request, status int) http.RoundTripper {
	return Func(func(r *http.Request) (*http.Response, error) {
		*seen = r
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
			Request:    r,
		}, nil
	})
}

func newReq(t *testing.T, ctx context.Context) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://api.local/api/routes/", nil)
	require.NoError(t, err)
	return req
}

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return Func(func(r *http.Request) (*http.Response, error) {
				order = append(order, name+"-begin")
				resp, err := next.RoundTrip(r)
				order = append(order, name+"-end")
				return resp, err
			})
		}
	}

	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusOK), mw("m1"), mw("m2"))

	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.Equal(t, []string{"m1-begin", "m2-begin", "m2-end", "m1-end"}, order)
}

func TestWithMetadata_SetsHeaders(t *testing.T) {
	t.Parallel()

	const rid = "rid-123"
	const tok = "token-xyz"
	const ua = "route-planner"

	ctx := WithRequestID(context.Background(), rid)
	ctx = WithAuthToken(ctx, tok)

	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusOK), WithMetadata(ua))

	orig := newReq(t, ctx)
	_, err := rt.RoundTrip(orig)
	require.NoError(t, err)

	require.Equal(t, rid, seen.Header.Get("X-Request-Id"))
	require.Equal(t, []string{"Bearer " + tok}, seen.Header.Values("Authorization"))
	require.Equal(t, ua, seen.Header.Get("User-Agent"))

	// Исходный запрос не модифицирован.
	require.Empty(t, orig.Header.Get("Authorization"))
}

func TestWithMetadata_ReplacesStaleAuthorization(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusOK), WithMetadata(""))

	req := newReq(t, WithAuthToken(context.Background(), "fresh"))
	req.Header.Add("Authorization", "Bearer stale")

	_, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, []string{"Bearer fresh"}, seen.Header.Values("Authorization"))
}

func TestWithMetadata_SkipEmptyValues(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusOK), WithMetadata(""))

	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.Empty(t, seen.Header.Get("X-Request-Id"))
	require.Empty(t, seen.Header.Values("Authorization"))
}

func TestLogging_WritesRecordAndPutsLoggerIntoContext(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	logger := slog.New(h)

	base := Func(func(r *http.Request) (*http.Response, error) {
		logctx.From(r.Context()).Info("inner_call")
		return &http.Response{StatusCode: http.StatusCreated, Body: http.NoBody, Header: http.Header{}}, nil
	})

	ctx := WithRequestID(context.Background(), "rid-456")
	ctx = WithAuthToken(ctx, "secret-token")
	rt := Chain(base, Logging(logger))

	_, err := rt.RoundTrip(newReq(t, ctx))
	require.NoError(t, err)

	require.Equal(t, 1, h.count["inner_call"])
	require.Equal(t, "http_call", h.lastMsg)
	require.Equal(t, slog.LevelInfo, h.lastLvl)
	require.Equal(t, "rid-456", h.attrs["request_id"])
	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/api/routes/", h.attrs["path"])
	require.EqualValues(t, http.StatusCreated, h.attrs["status"])

	for _, v := range h.attrs {
		if s, ok := v.(string); ok {
			require.NotContains(t, s, "secret-token")
		}
	}
}

func TestLogging_TransportErrorIsWarn(t *testing.T) {
	t.Parallel()

	h := &capHandler{}
	base := Func(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	rt := Chain(base, Logging(slog.New(h)))
	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.Error(t, err)

	require.Equal(t, slog.LevelWarn, h.lastLvl)
	require.EqualValues(t, 0, h.attrs["status"])
	require.Equal(t, "connection refused", h.attrs["err"])
}

type obsRecorder struct {
	method string
	status int
	dur    time.Duration
	calls  int
}

func (o *obsRecorder) ObserveCall(method string, status int, dur time.Duration) {
	o.method, o.status, o.dur = method, status, dur
	o.calls++
}

func TestInstrument_ReportsStatus(t *testing.T) {
	t.Parallel()

	obs := &obsRecorder{}
	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusTeapot), Instrument(obs))

	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.Equal(t, 1, obs.calls)
	require.Equal(t, http.MethodGet, obs.method)
	require.Equal(t, http.StatusTeapot, obs.status)
}

func TestInstrument_NilObserverPassThrough(t *testing.T) {
	t.Parallel()

	var seen *http.Request
	rt := Chain(okBase(&seen, http.StatusOK), Instrument(nil))
	_, err := rt.RoundTrip(newReq(t, context.Background()))
	require.NoError(t, err)
	require.NotNil(t, seen)
}

// Сквозная проверка с настоящим сервером: заголовки доходят до бэкенда.
func TestChain_AgainstHTTPTestServer(t *testing.T) {
	t.Parallel()

	var gotAuth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Values("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client := &http.Client{Transport: Chain(http.DefaultTransport, WithMetadata("ua"), Logging(slog.New(&capHandler{})))}

	req, err := http.NewRequestWithContext(WithAuthToken(context.Background(), "t1"), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, []string{"Bearer t1"}, gotAuth)
}
