// Package confirmation sends the outbound WhatsApp confirmation request for a
// meeting and keeps the watch registry in step with the meetings table.
package confirmation

import (
	"strings"
	"time"

	"agenda_backend/internal/meetings/repository"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"

	defaultLocation = "America/Sao_Paulo"
)

// DefaultTemplate is used when no template is configured.
const DefaultTemplate = `Olá, {client_name}!

Confirmação de Reunião
Data: {date}
Horário: {time}
Assunto: {title}
Local: {location}

Por favor, confirme sua presença respondendo esta mensagem com "SIM" ou "NÃO".`

// Template renders the confirmation message for a meeting.
type Template struct {
	text string
	loc  *time.Location
}

// NewTemplate parses text, falling back to DefaultTemplate when it is blank.
// A literal `\n` in text is treated as a line break so the template can be
// set from a single-line environment variable.
func NewTemplate(text string) *Template {
	text = strings.TrimSpace(text)
	if text == "" {
		text = DefaultTemplate
	}
	text = strings.ReplaceAll(text, `\n`, "\n")

	loc, err := time.LoadLocation(defaultLocation)
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}
	return &Template{text: text, loc: loc}
}

// Render fills the placeholders with the meeting's fields. Unknown
// placeholders are left untouched.
func (t *Template) Render(m repository.Meeting) string {
	startsAt := m.StartsAt.In(t.loc)
	r := strings.NewReplacer(
		"{client_name}", fallback(m.ClientName, m.Guest),
		"{guest}", m.Guest,
		"{title}", m.Title,
		"{date}", startsAt.Format(dateLayout),
		"{time}", startsAt.Format(timeLayout),
		"{location}", fallback(m.Location, "A definir"),
	)
	return r.Replace(t.text)
}

func fallback(value, alt string) string {
	if strings.TrimSpace(value) == "" {
		return alt
	}
	return value
}
