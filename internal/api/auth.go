package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pribylovaa/route-planner/internal/gateway"
	"github.com/pribylovaa/route-planner/internal/models"
)

// Auth - эндпоинты /auth/. Вход и регистрация идут как Public-вызовы.
type Auth struct {
	d Doer
}

func (a *Auth) Login(ctx context.Context, email, password string) (*models.AuthPayload, error) {
	const op = "api.Auth.Login"

	var out models.AuthPayload
	err := call(ctx, a.d, gateway.Call{
		Method: http.MethodPost,
		Path:   "/auth/login/",
		Body:   models.LoginRequest{Email: email, Password: password},
		Public: true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (a *Auth) Register(ctx context.Context, in models.RegisterInput) (*models.AuthPayload, error) {
	const op = "api.Auth.Register"

	var out models.AuthPayload
	err := call(ctx, a.d, gateway.Call{
		Method: http.MethodPost,
		Path:   "/auth/register/",
		Body:   in,
		Public: true,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Me - профиль текущего пользователя.
func (a *Auth) Me(ctx context.Context) (*models.User, error) {
	const op = "api.Auth.Me"

	var out models.User
	if err := get(ctx, a.d, "/auth/me/", nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

func (a *Auth) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	const op = "api.Auth.UpdateProfile"

	var out models.User
	err := call(ctx, a.d, gateway.Call{Method: http.MethodPut, Path: "/auth/profile/", Body: upd}, &out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}
