// api - типизированные обёртки над эндпоинтами бэкенда маршрутов.
// Семантики сессии здесь нет: Bearer, refresh и инвалидацию делает шлюз.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/models"
)

// Doer - то, что умеет выполнять логические запросы (*gateway.Gateway).
type Doer interface {
	Request(ctx context.Context, call gateway.Call) (*gateway.Response, error)
}

// Client объединяет группы эндпоинтов.
type Client struct {
	Auth        *Auth
	Attractions *Attractions
	Routes      *Routes
	Analytics   *Analytics
}

func New(d Doer) *Client {
	return &Client{
		Auth:        &Auth{d: d},
		Attractions: &Attractions{d: d},
		Routes:      &Routes{d: d},
		Analytics:   &Analytics{d: d},
	}
}

func call(ctx context.Context, d Doer, c gateway.Call, out any) error {
	resp, err := d.Request(ctx, c)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	return resp.Decode(out)
}

func get(ctx context.Context, d Doer, path string, q url.Values, out any) error {
	return call(ctx, d, gateway.Call{Method: http.MethodGet, Path: path, Query: q}, out)
}

// list читает список в любой из двух форм: страница {results: [...]}
// или голый массив.
func list[T any](ctx context.Context, d Doer, path string, q url.Values) (*models.Page[T], error) {
	resp, err := d.Request(ctx, gateway.Call{Method: http.MethodGet, Path: path, Query: q})
	if err != nil {
		return nil, err
	}

	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return &models.Page[T]{Count: len(items), Results: items}, nil
	}

	var page models.Page[T]
	if err := resp.Decode(&page); err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []T{}
	}

	return &page, nil
}

func itemPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + "/" + suffix
}
