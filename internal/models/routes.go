package models

import (
	"encoding/json"
	"time"
)

// Типы генератора маршрута.
const (
	GeneratorHybrid      = "hybrid"
	GeneratorLLM         = "llm"
	GeneratorAlgorithmic = "algorithmic"
)

// Attraction - достопримечательность. Координаты приходят строками (decimal).
type Attraction struct {
	ID          int64       `json:"id"                    yaml:"id"`
	Name        string      `json:"name"                  yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string      `json:"category,omitempty"    yaml:"category,omitempty"`
	Address     string      `json:"address,omitempty"     yaml:"address,omitempty"`
	Latitude    json.Number `json:"latitude"              yaml:"latitude"`
	Longitude   json.Number `json:"longitude"             yaml:"longitude"`
	Rating      json.Number `json:"rating,omitempty"      yaml:"rating,omitempty"`
}

// RouteAttraction - точка маршрута с порядком посещения.
type RouteAttraction struct {
	ID            int64      `json:"id"                       yaml:"id"`
	Order         int        `json:"order"                    yaml:"order"`
	VisitDuration int        `json:"visit_duration,omitempty" yaml:"visit_duration,omitempty"`
	Attraction    Attraction `json:"attraction"               yaml:"attraction"`
}

// Route - туристический маршрут.
type Route struct {
	ID               int64             `json:"id"                         yaml:"id"`
	Name             string            `json:"name"                       yaml:"name"`
	Description      string            `json:"description,omitempty"      yaml:"description,omitempty"`
	DurationHours    json.Number       `json:"duration_hours,omitempty"   yaml:"duration_hours,omitempty"`
	DistanceKM       json.Number       `json:"distance_km,omitempty"      yaml:"distance_km,omitempty"`
	Budget           json.Number       `json:"budget,omitempty"           yaml:"budget,omitempty"`
	AttractionsCount int               `json:"attractions_count"          yaml:"attractions_count"`
	IsFavorite       bool              `json:"is_favorite"                yaml:"is_favorite"`
	IsPublic         bool              `json:"is_public,omitempty"        yaml:"is_public,omitempty"`
	RouteAttractions []RouteAttraction `json:"route_attractions,omitempty" yaml:"route_attractions,omitempty"`
	CreatedAt        time.Time         `json:"created_at,omitzero"        yaml:"created_at,omitempty"`
}

// RouteInput - создание/обновление маршрута вручную.
type RouteInput struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	DurationHours float64 `json:"duration_hours,omitempty"`
	IsPublic      bool    `json:"is_public,omitempty"`
	Attractions   []int64 `json:"attractions,omitempty"`
}

// GenerateRouteInput - запрос генерации маршрута.
type GenerateRouteInput struct {
	Name          string  `json:"name,omitempty"`
	Description   string  `json:"description,omitempty"`
	DurationHours float64 `json:"duration_hours"`
	GeneratorType string  `json:"generator_type"`
	UseLLM        bool    `json:"use_llm"`
}

// AttractionFilter - параметры списка достопримечательностей.
type AttractionFilter struct {
	Search   string
	Category string
	Page     int
}

// Page - страница DRF-пагинации.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}
