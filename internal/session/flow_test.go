package session_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/route-planner/internal/api"
	"github.com/pribylovaa/route-planner/internal/credentials"
	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/session"
	"github.com/pribylovaa/route-planner/internal/testutil/fakeapi"
)

func wire(t *testing.T, srv *fakeapi.Server, store credentials.Store) (*session.Manager, *gateway.Gateway, *api.Client) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	gw, err := gateway.New(store, gateway.Options{BaseURL: srv.BaseURL(), Timeout: 5 * time.Second, Logger: log})
	require.NoError(t, err)

	client := api.New(gw)
	return session.New(client.Auth, gw, log), gw, client
}

func TestFlow_LoginSurvivesRestart(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t)
	srv.AddUser("anna@example.com", "anna", "correct-horse")

	store := credentials.NewFile(t.TempDir()+"/credentials.json", slog.New(slog.NewTextHandler(io.Discard, nil)))

	m, _, _ := wire(t, srv, store)
	_, ok := m.RestoreSession(context.Background())
	require.False(t, ok)
	require.Zero(t, srv.TotalCalls())

	require.NoError(t, m.Login(context.Background(), "anna@example.com", "correct-horse"))
	require.Equal(t, session.Authenticated, m.Current().State())

	// «перезапуск»: новый менеджер поверх того же хранилища
	m2, _, _ := wire(t, srv, store)
	u, ok := m2.RestoreSession(context.Background())
	require.True(t, ok)
	require.Equal(t, "anna", u.Username)
	require.Equal(t, 1, srv.Calls(http.MethodGet, "/auth/me/"))
}

func TestFlow_RestoreWithRejectedCredential(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t)
	srv.AddUser("anna@example.com", "anna", "correct-horse")
	access, refresh := srv.IssueTokens("anna@example.com")
	srv.RejectAllAccess(true)

	store := credentials.NewMemory()
	store.Set(credentials.Access, access)
	store.Set(credentials.Refresh, refresh)

	m, _, _ := wire(t, srv, store)
	u, ok := m.RestoreSession(context.Background())
	require.False(t, ok)
	require.Nil(t, u)

	s := m.Current()
	require.False(t, s.Loading)
	require.Equal(t, session.Anonymous, s.State())

	_, ok = store.Get(credentials.Access)
	require.False(t, ok)
	_, ok = store.Get(credentials.Refresh)
	require.False(t, ok)
}

func TestFlow_InvalidationEndsSession(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t)
	srv.AddUser("anna@example.com", "anna", "correct-horse")

	m, gw, client := wire(t, srv, credentials.NewMemory())
	m.RestoreSession(context.Background())
	require.NoError(t, m.Login(context.Background(), "anna@example.com", "correct-horse"))

	events, cancel := gw.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go m.Watch(ctx, events)

	srv.ExpireAccessTokens()
	srv.FailRefresh(true)

	_, err := client.Routes.List(context.Background())
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return m.Current().State() == session.Anonymous
	}, time.Second, 5*time.Millisecond)
	require.False(t, gw.HasAccess())
}

func TestFlow_LoginFailureMessage(t *testing.T) {
	t.Parallel()

	srv := fakeapi.New(t)
	srv.AddUser("anna@example.com", "anna", "correct-horse")

	store := credentials.NewMemory()
	m, _, _ := wire(t, srv, store)
	m.RestoreSession(context.Background())

	err := m.Login(context.Background(), "anna@example.com", "wrong")

	var f *session.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, "Invalid password", f.Message)
	require.Equal(t, session.Anonymous, m.Current().State())

	_, ok := store.Get(credentials.Access)
	require.False(t, ok)
}
