// redact — маскирование чувствительных значений в логах.
// Токены и пароли никогда не пишутся в лог даже частично.
package redact

import "strings"

// Email маскирует локальную часть адреса, домен оставляет как есть.
func Email(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// JTI оставляет первые 8 символов идентификатора токена — этого достаточно
// для корреляции с registry без раскрытия полного значения.
func JTI(s string) string {
	if len(s) <= 8 {
		return s
	}

	return s[:8] + "…"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
