// errors стандартизирует исходы HTTP-вызовов к бэкенду маршрутов.
// На вход он принимает ответ (статус + тело) или транспортную ошибку,
// а на выход даёт типизированную *Error одного из видов:
//   - KindUnauthorized - сессия недействительна (после неудачного refresh);
//   - KindNetwork - ошибка транспорта, ответа нет;
//   - KindServer - 4xx/5xx без структурированного тела (кроме 401);
//   - KindValidation - 4xx со структурированным JSON-объектом.
//
// Ожидаемые HTTP-статусы никогда не превращаются в панику: шлюз
// возвращает их как значения.
package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind - вид ошибки.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindNetwork
	KindServer
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindNetwork:
		return "network_failure"
	case KindServer:
		return "server_error"
	case KindValidation:
		return "validation_error"
	default:
		return "unknown"
	}
}

// Сентинелы для errors.Is.
var (
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrNetwork      = stderrors.New("network failure")
	ErrServer       = stderrors.New("server error")
	ErrValidation   = stderrors.New("validation error")
)

// Error - исход неуспешного вызова.
// Status - HTTP-статус (0 для KindNetwork).
// Payload - сырое тело ответа, из него извлекается сообщение для пользователя.
// RequestID - X-Request-Id логического запроса (для трассировки).
type Error struct {
	Kind      Kind
	Status    int
	Payload   []byte
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())

	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с сентинелом её вида.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrValidation:
		return e.Kind == KindValidation
	}

	return false
}

// FromResponse строит ошибку по неуспешному ответу.
// Возвращает nil для статусов < 400.
//
// Поведение:
//   - 401 -> KindUnauthorized;
//   - прочие 4xx с JSON-объектом в теле -> KindValidation;
//   - всё остальное >= 400 -> KindServer.
func FromResponse(status int, body []byte, requestID string) *Error {
	if status < http.StatusBadRequest {
		return nil
	}

	e := &Error{Status: status, Payload: body, RequestID: requestID}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status < http.StatusInternalServerError && isJSONObject(body):
		e.Kind = KindValidation
	default:
		e.Kind = KindServer
	}

	return e
}

// Unauthorized - терминальная ошибка: восстановление через refresh исчерпано.
// Сохраняет тело исходного 401 и причину (например, отказ обмена refresh).
func Unauthorized(payload []byte, requestID string, cause error) *Error {
	return &Error{
		Kind:      KindUnauthorized,
		Status:    http.StatusUnauthorized,
		Payload:   payload,
		RequestID: requestID,
		Err:       cause,
	}
}

// Network - ошибка транспорта без ответа.
func Network(requestID string, cause error) *Error {
	return &Error{Kind: KindNetwork, RequestID: requestID, Err: cause}
}

// As достаёт *Error из цепочки.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}

	return nil, false
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
