package oracle

import (
	"fmt"
	"strings"
)

// systemPrompt is the fixed instruction set. %d is the default year.
const systemPrompt = `Ты извлекаешь информацию об отпуске из сообщений рабочего чата.

Правила:
- Найди имя сотрудника и даты начала и окончания отпуска.
- Если год не указан, используй %d.
- Если указан один день, start_date и end_date совпадают.
- Если имя в тексте не указано, используй имя автора.
- Ответ строго в виде JSON-объекта, без пояснений.
- Если сообщение не про отпуск или даты непонятны, ответь {"vacation": null}.

Формат ответа:
{"employee_name": "Имя", "start_date": "YYYY-MM-DD", "end_date": "YYYY-MM-DD"}

Пример:
Сообщение: "С 1 по 10 сентября буду в отпуске", автор: Мария
Ответ: {"employee_name": "Мария", "start_date": "%d-09-01", "end_date": "%d-09-10"}

Пример:
Сообщение: "Всем доброе утро", автор: Иван
Ответ: {"vacation": null}`

// SystemPrompt returns the instruction set for the given default year.
func SystemPrompt(year int) string {
	return fmt.Sprintf(systemPrompt, year, year, year)
}

// UserContent renders the message text and author for the request.
func UserContent(text, authorName string) string {
	var b strings.Builder
	b.WriteString("Сообщение: ")
	b.WriteString(text)
	b.WriteString("\n\nАвтор: ")
	b.WriteString(authorName)
	return b.String()
}
