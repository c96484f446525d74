package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pribylovaa/route-planner/internal/models"
)

const attractionsPath = "/attractions/"

type Attractions struct {
	d Doer
}

// List - каталог с фильтрами; пустые поля фильтра не отправляются.
func (a *Attractions) List(ctx context.Context, f models.AttractionFilter) (*models.Page[models.Attraction], error) {
	const op = "api.Attractions.List"

	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}

	page, err := list[models.Attraction](ctx, a.d, attractionsPath, q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

func (a *Attractions) Get(ctx context.Context, id int64) (*models.Attraction, error) {
	const op = "api.Attractions.Get"

	var out models.Attraction
	if err := get(ctx, a.d, itemPath(attractionsPath, id, ""), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Nearby - достопримечательности в радиусе radius км от точки.
func (a *Attractions) Nearby(ctx context.Context, lat, lng, radius float64) ([]models.Attraction, error) {
	const op = "api.Attractions.Nearby"

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	if radius > 0 {
		q.Set("radius", strconv.FormatFloat(radius, 'f', -1, 64))
	}

	page, err := list[models.Attraction](ctx, a.d, attractionsPath+"nearby/", q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page.Results, nil
}
