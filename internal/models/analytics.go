package models

import "encoding/json"

// Stats - произвольная статистика без фиксированной схемы
// (аналитика пользователя, статистика достопримечательностей).
type Stats map[string]any

// RouteStats - сводная статистика маршрутов.
type RouteStats struct {
	TotalRoutes  int         `json:"total_routes"  yaml:"total_routes"`
	PublicRoutes int         `json:"public_routes" yaml:"public_routes"`
	TotalViews   int         `json:"total_views"   yaml:"total_views"`
	AvgDuration  json.Number `json:"avg_duration"  yaml:"avg_duration"`
}

// Chart - график, отрисованный бэкендом (base64-картинка).
type Chart struct {
	Image string `json:"image" yaml:"-"`
}

// Dashboard - данные экрана аналитики, загружаемые параллельно.
type Dashboard struct {
	Stats      RouteStats `json:"stats"      yaml:"stats"`
	User       Stats      `json:"user"       yaml:"user"`
	Popularity Chart      `json:"popularity" yaml:"-"`
	Categories Chart      `json:"categories" yaml:"-"`
	Ratings    Chart      `json:"ratings"    yaml:"-"`
}
