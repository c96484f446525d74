package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/pribylovaa/route-planner/internal/models"
)

const analyticsPath = "/analytics/"

// DashboardChartLimit - сколько маршрутов попадает на график популярности.
const DashboardChartLimit = 10

type Analytics struct {
	d Doer
}

func limitQuery(limit int) url.Values {
	if limit <= 0 {
		return nil
	}

	return url.Values{"limit": {strconv.Itoa(limit)}}
}

func (a *Analytics) PopularRoutes(ctx context.Context, limit int) ([]models.Route, error) {
	const op = "api.Analytics.PopularRoutes"

	page, err := list[models.Route](ctx, a.d, analyticsPath+"popular/", limitQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page.Results, nil
}

func (a *Analytics) RouteStats(ctx context.Context) (*models.RouteStats, error) {
	const op = "api.Analytics.RouteStats"

	var out models.RouteStats
	if err := get(ctx, a.d, analyticsPath+"stats/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (a *Analytics) AttractionStats(ctx context.Context) (models.Stats, error) {
	const op = "api.Analytics.AttractionStats"

	var out models.Stats
	if err := get(ctx, a.d, analyticsPath+"attractions/stats/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (a *Analytics) UserAnalytics(ctx context.Context) (models.Stats, error) {
	const op = "api.Analytics.UserAnalytics"

	var out models.Stats
	if err := get(ctx, a.d, analyticsPath+"user/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (a *Analytics) PopularityChart(ctx context.Context, limit int) (*models.Chart, error) {
	return a.chart(ctx, "api.Analytics.PopularityChart", "popularity", limitQuery(limit))
}

func (a *Analytics) CategoryChart(ctx context.Context) (*models.Chart, error) {
	return a.chart(ctx, "api.Analytics.CategoryChart", "categories", nil)
}

func (a *Analytics) RatingChart(ctx context.Context) (*models.Chart, error) {
	return a.chart(ctx, "api.Analytics.RatingChart", "ratings", nil)
}

func (a *Analytics) chart(ctx context.Context, op, kind string, q url.Values) (*models.Chart, error) {
	var out models.Chart
	if err := get(ctx, a.d, analyticsPath+"charts/"+kind+"/", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Dashboard загружает экран аналитики: пять независимых запросов
// параллельно. Первая ошибка отменяет остальные.
func (a *Analytics) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	const op = "api.Analytics.Dashboard"

	var (
		out        models.Dashboard
		stats      *models.RouteStats
		popularity *models.Chart
		categories *models.Chart
		ratings    *models.Chart
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats, err = a.RouteStats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.User, err = a.UserAnalytics(gctx)
		return err
	})
	g.Go(func() (err error) {
		popularity, err = a.PopularityChart(gctx, DashboardChartLimit)
		return err
	})
	g.Go(func() (err error) {
		categories, err = a.CategoryChart(gctx)
		return err
	})
	g.Go(func() (err error) {
		ratings, err = a.RatingChart(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out.Stats = *stats
	out.Popularity = *popularity
	out.Categories = *categories
	out.Ratings = *ratings

	return &out, nil
}
