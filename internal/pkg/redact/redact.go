// redact предоставляет утилиты безопасного редактирования чувствительных
// данных для логов (username, токены, refresh-секреты). Цель — исключить
// утечки секретов, сохранив при этом полезный для отладки контекст.
package redact

// Username маскирует имя пользователя для логирования.
//
// Правила:
//   - Первые два символа (по рунам) сохраняются, остальное заменяется на "***";
//   - Если длина ≤ 2 символов — возвращается "***".
//
// Примеры:
//
//	"alice"   -> "al***"
//	"ab"      -> "***"
//	""        -> "***"
func Username(s string) string {
	r := []rune(s)
	if len(r) <= 2 {
		return "***"
	}

	return string(r[:2]) + "***"
}

// Token возвращает литерал-заглушку для access-токена в логах.
func Token() string { return "[REDACTED_TOKEN]" }

// Secret возвращает литерал-заглушку для refresh-секрета в логах.
func Secret() string { return "[REDACTED_SECRET]" }
