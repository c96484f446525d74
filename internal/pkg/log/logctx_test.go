package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// Тесты меняют slog.Default(), поэтому без t.Parallel().

func silent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func swapDefault(t *testing.T) *slog.Logger {
	t.Helper()

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	def := silent()
	slog.SetDefault(def)

	return def
}

func TestFrom_Priority(t *testing.T) {
	def := swapDefault(t)
	inCtx, fb := silent(), silent()

	var nilLogger *slog.Logger

	tests := []struct {
		name     string
		ctx      context.Context
		fallback []*slog.Logger
		want     *slog.Logger
	}{
		{"context wins", Into(context.Background(), inCtx), []*slog.Logger{fb}, inCtx},
		{"first non-nil fallback", context.Background(), []*slog.Logger{nil, fb}, fb},
		{"default", context.Background(), nil, def},
		{"nil in context", Into(context.Background(), nilLogger), nil, def},
		{"foreign value", context.WithValue(context.Background(), ctxKey{}, "route-planner"), []*slog.Logger{fb}, fb},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Same(t, tt.want, From(tt.ctx, tt.fallback...))
		})
	}
}

func TestWith_AccumulatesAttrs(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx, _ := With(context.Background(), base, slog.String("request_id", "rid-7"))
	ctx, l := With(ctx, nil, slog.String("path", "/auth/me/"))

	require.Same(t, l, From(ctx))

	From(ctx).Info("http_call")
	out := buf.String()
	require.Contains(t, out, "request_id=rid-7")
	require.Contains(t, out, "path=/auth/me/")
	require.Contains(t, out, "msg=http_call")
}

func TestInto_KeepsParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	child := Into(parent, silent())

	cancel()

	<-child.Done()
	require.ErrorIs(t, child.Err(), context.Canceled)
}
