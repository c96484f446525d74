package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/models"
)

const routesPath = "/routes/"

type Routes struct {
	d Doer
}

func (r *Routes) List(ctx context.Context) ([]models.Route, error) {
	const op = "api.Routes.List"

	page, err := list[models.Route](ctx, r.d, routesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page.Results, nil
}

func (r *Routes) Get(ctx context.Context, id int64) (*models.Route, error) {
	const op = "api.Routes.Get"

	var out models.Route
	if err := get(ctx, r.d, itemPath(routesPath, id, ""), nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *Routes) Create(ctx context.Context, in models.RouteInput) (*models.Route, error) {
	const op = "api.Routes.Create"

	var out models.Route
	if err := call(ctx, r.d, gateway.Call{Method: http.MethodPost, Path: routesPath, Body: in}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *Routes) Update(ctx context.Context, id int64, in models.RouteInput) (*models.Route, error) {
	const op = "api.Routes.Update"

	var out models.Route
	err := call(ctx, r.d, gateway.Call{Method: http.MethodPut, Path: itemPath(routesPath, id, ""), Body: in}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *Routes) Delete(ctx context.Context, id int64) error {
	const op = "api.Routes.Delete"

	if err := call(ctx, r.d, gateway.Call{Method: http.MethodDelete, Path: itemPath(routesPath, id, "")}, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Generate - автоматическая генерация маршрута (алгоритм, LLM или гибрид).
func (r *Routes) Generate(ctx context.Context, in models.GenerateRouteInput) (*models.Route, error) {
	const op = "api.Routes.Generate"

	if in.GeneratorType == "" {
		in.GeneratorType = models.GeneratorHybrid
	}

	var out models.Route
	err := call(ctx, r.d, gateway.Call{Method: http.MethodPost, Path: routesPath + "generate/", Body: in}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Optimize - переупорядочивание точек маршрута на бэкенде.
func (r *Routes) Optimize(ctx context.Context, id int64) (*models.Route, error) {
	const op = "api.Routes.Optimize"

	var out models.Route
	err := call(ctx, r.d, gateway.Call{Method: http.MethodPost, Path: itemPath(routesPath, id, "optimize/")}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (r *Routes) Favorites(ctx context.Context) ([]models.Route, error) {
	const op = "api.Routes.Favorites"

	page, err := list[models.Route](ctx, r.d, routesPath+"favorites/", nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return page.Results, nil
}

// ToggleFavorite переключает отметку «избранное» и возвращает новое значение.
func (r *Routes) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	const op = "api.Routes.ToggleFavorite"

	var out struct {
		IsFavorite bool `json:"is_favorite"`
	}
	err := call(ctx, r.d, gateway.Call{Method: http.MethodPost, Path: itemPath(routesPath, id, "toggle_favorite/")}, &out)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return out.IsFavorite, nil
}
