package api_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/route-planner/internal/api"
	"github.com/pribylovaa/route-planner/internal/credentials"
	apierrors "github.com/pribylovaa/route-planner/internal/errors"
	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/models"
	"github.com/pribylovaa/route-planner/internal/testutil/fakeapi"
)

const (
	email    = "anna@example.com"
	password = "correct-horse"
)

type env struct {
	srv   *fakeapi.Server
	store *credentials.Memory
	gw    *gateway.Gateway
	api   *api.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()

	srv := fakeapi.New(t)
	srv.AddUser(email, "anna", password)

	store := credentials.NewMemory()
	gw, err := gateway.New(store, gateway.Options{
		BaseURL: srv.BaseURL(),
		Timeout: 5 * time.Second,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &env{srv: srv, store: store, gw: gw, api: api.New(gw)}
}

// login входит и сохраняет токены так же, как это делает менеджер сессии.
func (e *env) login(t *testing.T) {
	t.Helper()

	out, err := e.api.Auth.Login(context.Background(), email, password)
	require.NoError(t, err)
	e.gw.SaveCredentials(out.Access, out.Refresh)
}

func TestAuth_LoginMeUpdate(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	out, err := e.api.Auth.Login(ctx, email, password)
	require.NoError(t, err)
	require.NotEmpty(t, out.Access)
	require.NotEmpty(t, out.Refresh)
	require.Equal(t, "anna", out.User.Username)
	require.Equal(t, []string{""}, e.srv.AuthHeaders("/auth/login/"))

	e.gw.SaveCredentials(out.Access, out.Refresh)

	u, err := e.api.Auth.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, email, u.Email)

	bio := "люблю музеи"
	u, err = e.api.Auth.UpdateProfile(ctx, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, bio, u.Bio)
	require.Empty(t, u.Phone)
}

func TestAuth_LoginFailure(t *testing.T) {
	t.Parallel()

	e := newEnv(t)

	_, err := e.api.Auth.Login(context.Background(), email, "wrong")
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "Invalid password", apierrors.DisplayMessage(err, "fallback"))
}

func TestAuth_Register(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	ctx := context.Background()

	out, err := e.api.Auth.Register(ctx, models.RegisterInput{
		Email:     "boris@example.com",
		Username:  "boris",
		Password:  "long-enough",
		Password2: "long-enough",
		FirstName: "Борис",
	})
	require.NoError(t, err)
	require.Equal(t, "Борис", out.User.FirstName)

	_, err = e.api.Auth.Register(ctx, models.RegisterInput{Email: email, Username: "x", Password: "long-enough"})
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "user with this email already exists.", apierrors.DisplayMessage(err, "fallback"))

	_, err = e.api.Auth.Register(ctx, models.RegisterInput{Email: "c@example.com", Username: "c", Password: "short"})
	require.Equal(t, "This password is too short.", apierrors.DisplayMessage(err, "fallback"))
}

func TestAttractions(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)
	ctx := context.Background()

	page, err := e.api.Attractions.List(ctx, models.AttractionFilter{})
	require.NoError(t, err)
	require.Equal(t, len(fakeapi.Attractions), page.Count)

	page, err = e.api.Attractions.List(ctx, models.AttractionFilter{Category: "museum"})
	require.NoError(t, err)
	require.Equal(t, 2, page.Count)

	page, err = e.api.Attractions.List(ctx, models.AttractionFilter{Search: "сад", Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	require.Equal(t, int64(3), page.Results[0].ID)

	page, err = e.api.Attractions.List(ctx, models.AttractionFilter{Page: 2})
	require.NoError(t, err)
	require.Empty(t, page.Results)

	a, err := e.api.Attractions.Get(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, "Исаакиевский собор", a.Name)

	lat, err := a.Latitude.Float64()
	require.NoError(t, err)
	require.InDelta(t, 59.934, lat, 0.001)

	_, err = e.api.Attractions.Get(ctx, 404)
	require.Error(t, err)
	require.Equal(t, "Not found.", apierrors.DisplayMessage(err, "fallback"))

	// Эрмитаж и Исаакий в пределах километра, остальные дальше
	near, err := e.api.Attractions.Nearby(ctx, 59.9375, 30.310, 1)
	require.NoError(t, err)
	require.Len(t, near, 2)
}

func TestRoutes_Lifecycle(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)
	ctx := context.Background()

	generated, err := e.api.Routes.Generate(ctx, models.GenerateRouteInput{DurationHours: 4})
	require.NoError(t, err)
	require.Equal(t, 3, generated.AttractionsCount)
	require.Equal(t, "Маршрут на 4 ч", generated.Name)

	created, err := e.api.Routes.Create(ctx, models.RouteInput{Name: "Музеи", Attractions: []int64{1, 4}})
	require.NoError(t, err)

	routes, err := e.api.Routes.List(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	updated, err := e.api.Routes.Update(ctx, created.ID, models.RouteInput{Name: "Музеи и собор", DurationHours: 3, Attractions: []int64{1, 4, 2}})
	require.NoError(t, err)
	require.Equal(t, "Музеи и собор", updated.Name)
	require.Equal(t, 3, updated.AttractionsCount)

	optimized, err := e.api.Routes.Optimize(ctx, generated.ID)
	require.NoError(t, err)
	var order []int64
	for _, p := range optimized.RouteAttractions {
		order = append(order, p.Attraction.ID)
	}
	require.Equal(t, []int64{3, 1, 4}, order)

	fav, err := e.api.Routes.ToggleFavorite(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, fav)

	favorites, err := e.api.Routes.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, created.ID, favorites[0].ID)

	got, err := e.api.Routes.Get(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, got.IsFavorite)

	require.NoError(t, e.api.Routes.Delete(ctx, created.ID))

	_, err = e.api.Routes.Get(ctx, created.ID)
	require.Error(t, err)

	favorites, err = e.api.Routes.Favorites(ctx)
	require.NoError(t, err)
	require.Empty(t, favorites)
}

func TestRoutes_GenerateValidation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)

	_, err := e.api.Routes.Generate(context.Background(), models.GenerateRouteInput{
		GeneratorType: models.GeneratorLLM,
	})
	require.ErrorIs(t, err, apierrors.ErrValidation)
	require.Equal(t, "Ensure this value is greater than 0.", apierrors.DisplayMessage(err, "fallback"))

	_, err = e.api.Routes.Generate(context.Background(), models.GenerateRouteInput{
		DurationHours: 2,
		GeneratorType: "magic",
	})
	require.Equal(t, `"magic" is not a valid choice.`, apierrors.DisplayMessage(err, "fallback"))
}

func TestAnalytics(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)
	ctx := context.Background()

	for range 3 {
		_, err := e.api.Routes.Generate(ctx, models.GenerateRouteInput{DurationHours: 2})
		require.NoError(t, err)
	}

	popular, err := e.api.Analytics.PopularRoutes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, popular, 2)

	stats, err := e.api.Analytics.RouteStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalRoutes)
	require.Equal(t, "2.00", stats.AvgDuration.String())

	as, err := e.api.Analytics.AttractionStats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, len(fakeapi.Attractions), as["total_attractions"])

	ua, err := e.api.Analytics.UserAnalytics(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, ua["routes_created"])

	chart, err := e.api.Analytics.RatingChart(ctx)
	require.NoError(t, err)
	require.Equal(t, fakeapi.ChartImage("ratings"), chart.Image)

	d, err := e.api.Analytics.Dashboard(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, d.Stats.TotalRoutes)
	require.EqualValues(t, 3, d.User["routes_created"])
	require.Equal(t, fakeapi.ChartImage("popularity"), d.Popularity.Image)
	require.Equal(t, fakeapi.ChartImage("categories"), d.Categories.Image)
	require.Equal(t, fakeapi.ChartImage("ratings"), d.Ratings.Image)
	require.Equal(t, 1, e.srv.Calls(http.MethodGet, "/analytics/charts/popularity/"))
}

func TestAnalytics_DashboardAfterExpiry(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)
	e.srv.ExpireAccessTokens()

	_, err := e.api.Analytics.Dashboard(context.Background())
	require.NoError(t, err)

	// каждый параллельный запрос восстанавливается сам
	refreshes := e.srv.Calls(http.MethodPost, gateway.RefreshPath)
	require.GreaterOrEqual(t, refreshes, 1)
	require.LessOrEqual(t, refreshes, 5)
	require.True(t, e.gw.HasAccess())
}

// failingLeg пропускает вызовы в шлюз, а path отвечает 500, как только
// бэкенд начал обмен refresh.
type failingLeg struct {
	api.Doer
	srv  *fakeapi.Server
	path string
}

func (f failingLeg) Request(ctx context.Context, c gateway.Call) (*gateway.Response, error) {
	if c.Path != f.path {
		return f.Doer.Request(ctx, c)
	}

	for f.srv.Calls(http.MethodPost, gateway.RefreshPath) == 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}

	return nil, apierrors.FromResponse(http.StatusInternalServerError, []byte(`{"error":"internal"}`), "")
}

func TestAnalytics_DashboardServerErrorDuringRefreshKeepsSession(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.login(t)
	e.srv.ExpireAccessTokens()
	// обмен держится, пока errgroup не отменит оставшиеся запросы
	e.srv.HoldRefreshUntil(1000)

	events, unsubscribe := e.gw.Subscribe()
	defer unsubscribe()

	client := api.New(failingLeg{Doer: e.gw, srv: e.srv, path: "/analytics/stats/"})

	_, err := client.Analytics.Dashboard(context.Background())
	require.ErrorIs(t, err, apierrors.ErrServer)
	require.NotErrorIs(t, err, apierrors.ErrUnauthorized)

	select {
	case ev := <-events:
		t.Fatalf("session invalidated: %+v", ev)
	default:
	}

	require.True(t, e.gw.HasAccess())
	_, ok := e.store.Get(credentials.Refresh)
	require.True(t, ok)
}

// stubDoer отвечает заранее заданными телами по пути.
type stubDoer struct {
	bodies map[string]string
	errs   map[string]error
}

func (s stubDoer) Request(_ context.Context, c gateway.Call) (*gateway.Response, error) {
	if err := s.errs[c.Path]; err != nil {
		return nil, err
	}

	return &gateway.Response{Status: http.StatusOK, Body: []byte(s.bodies[c.Path])}, nil
}

func TestList_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want int
		err  bool
	}{
		{"page", `{"count":1,"results":[{"id":1,"name":"A"}]}`, 1, false},
		{"bare array", `[{"id":1},{"id":2}]`, 2, false},
		{"null results", `{"count":0,"results":null}`, 0, false},
		{"empty body", ``, 0, false},
		{"broken array", `[{"id":`, 0, true},
		{"broken page", `{"results":`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := api.New(stubDoer{bodies: map[string]string{"/routes/": tt.body}})

			routes, err := c.Routes.List(context.Background())
			if tt.err {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, routes)
			require.Len(t, routes, tt.want)
		})
	}
}

func TestDashboard_FirstErrorWins(t *testing.T) {
	t.Parallel()

	boom := apierrors.FromResponse(http.StatusInternalServerError, []byte("oops"), "rid")
	c := api.New(stubDoer{
		bodies: map[string]string{
			"/analytics/stats/": `{"total_routes":1,"avg_duration":"1.0"}`,
			"/analytics/user/":  `{}`,
		},
		errs: map[string]error{"/analytics/charts/ratings/": boom},
	})

	_, err := c.Analytics.Dashboard(context.Background())
	require.ErrorIs(t, err, apierrors.ErrServer)
	require.True(t, errors.Is(err, boom))
	require.True(t, strings.HasPrefix(err.Error(), "api.Analytics.Dashboard: api.Analytics.RatingChart"))
}
