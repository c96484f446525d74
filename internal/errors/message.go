package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Message извлекает человекочитаемое сообщение из тела ошибки.
//
// Порядок:
//  1. тело - JSON-строка -> она сама;
//  2. поле "error";
//  3. поле "detail";
//  4. значение первого ключа в порядке документа (массив разворачивается
//     на один уровень: берётся первый элемент);
//  5. fallback.
//
// Порядок ключей - единственный неявный контракт бэкенда, поэтому п.4
// best-effort: для вложенных объектов возвращается fallback.
func Message(payload []byte, fallback string) string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return fallback
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return nonEmpty(s, fallback)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fallback
	}

	for _, key := range []string{"error", "detail"} {
		if raw, ok := obj[key]; ok {
			if msg, ok := scalar(raw); ok && msg != "" {
				return msg
			}
		}
	}

	raw, ok := firstValue(trimmed)
	if !ok {
		return fallback
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return fallback
		}
		raw = arr[0]
	}

	if msg, ok := scalar(raw); ok {
		return nonEmpty(msg, fallback)
	}

	return fallback
}

// DisplayMessage превращает ошибку шлюза в текст для пользователя.
// Для *Error с телом применяется Message; транспортные ошибки отдают
// собственный текст; остальное - fallback.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	e, ok := As(err)
	if !ok {
		return fallback
	}

	if len(e.Payload) > 0 {
		return Message(e.Payload, fallback)
	}

	if e.Kind == KindNetwork && e.Err != nil {
		return e.Err.Error()
	}

	return fallback
}

// firstValue читает первый ключ объекта потоково, сохраняя порядок документа.
func firstValue(doc []byte) (json.RawMessage, bool) {
	dec := json.NewDecoder(bytes.NewReader(doc))

	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	// пустой объект даёт '}' вместо ключа
	key, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if _, ok := key.(string); !ok {
		return nil, false
	}

	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil && err != io.EOF {
		return nil, false
	}

	return raw, len(raw) > 0
}

// scalar приводит строку/число/bool к тексту; объекты и массивы не подходят.
func scalar(raw json.RawMessage) (string, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}

	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64, bool:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}

	return s
}
