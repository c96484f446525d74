// Модели REST-бэкенда планировщика маршрутов (JSON в snake_case).
package models

import "time"

// User - профиль пользователя.
type User struct {
	ID        int64     `json:"id"                   yaml:"id"`
	Email     string    `json:"email"                yaml:"email"`
	Username  string    `json:"username"             yaml:"username"`
	FirstName string    `json:"first_name,omitempty" yaml:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"  yaml:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"      yaml:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"        yaml:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"  yaml:"created_at,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput - поля регистрации.
type RegisterInput struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Password2 string `json:"password2,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ProfileUpdate - частичное обновление профиля; nil-поля не отправляются.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// AuthPayload - ответ входа/регистрации.
type AuthPayload struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshPayload - ответ обмена; Refresh заполнен, если бэкенд ротирует токен.
type RefreshPayload struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}
