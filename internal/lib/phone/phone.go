// Package phone нормализует телефонные номера, приходящие от биллинг-провайдера.
// Провайдер присылает локальный код и номер отдельными полями в произвольном
// форматировании; локально хранится одна строка из цифр.
package phone

import "strings"

// Normalize склеивает локальный код и номер, отбрасывая все нецифровые символы.
// Пустой результат означает отсутствие телефона.
func Normalize(localCode, number string) string {
	var b strings.Builder
	for _, r := range localCode + number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
