// redact маскирует чувствительные данные перед записью в лог:
// e-mail пользователя и access/refresh-токены.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Email маскирует e-mail для логирования.
//
// Правила:
//   - Строка должна содержать РОВНО один символ '@', иначе возвращается "***";
//   - Локальная часть заменяется на первые два символа (по рунам) + "***";
//   - Если длина локальной части ≤ 2 символов - возвращается "***@<domain>";
//   - Домен возвращается без изменений.
//
// Примеры:
//
//	"foobar@example.com" -> "fo***@example.com"
//	"ab@ex.com"          -> "***@ex.com"
//	"no-at"              -> "***"
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Token возвращает отпечаток токена: по нему можно сопоставить записи
// лога между собой, но нельзя восстановить сам токен.
// Пустой токен отображается как "<none>".
func Token(tok string) string {
	if tok == "" {
		return "<none>"
	}

	sum := sha256.Sum256([]byte(tok))
	return "tok:" + hex.EncodeToString(sum[:4])
}
