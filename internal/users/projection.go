package users

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys for the directory screen. English text doubles as the key.
const (
	msgTitle     = "Conecta2: Young and Old"
	msgHeroAlt   = "Young person helping an older person with their phone"
	msgLine      = "%s (%d)\nInterests: %s"
	msgEmpty     = "No users yet."
	msgStale     = "The list could not be updated; showing the last known users."
	msgUserCount = "%d users"
)

var supportedLocales = []language.Tag{language.Spanish, language.English}

var localeMatcher = language.NewMatcher(supportedLocales)

func init() {
	for key, text := range map[string]string{
		msgTitle:     "Conecta2: Jóvenes y Mayores",
		msgHeroAlt:   "Joven ayudando a mayor con el móvil",
		msgLine:      "%s (%d)\nIntereses: %s",
		msgEmpty:     "Todavía no hay usuarios.",
		msgStale:     "No se pudo actualizar la lista; se muestran los últimos usuarios conocidos.",
		msgUserCount: "%d usuarios",
	} {
		_ = message.SetString(language.Spanish, key, text)
		_ = message.SetString(language.English, key, key)
	}
}

// Printer renders list entries and screen labels for one locale.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter picks the closest supported locale, defaulting to Spanish.
func NewPrinter(locale string) *Printer {
	tag := language.Spanish
	if requested, err := language.Parse(locale); err == nil {
		if _, idx, conf := localeMatcher.Match(requested); conf != language.No {
			tag = supportedLocales[idx]
		}
	}
	return &Printer{tag: tag, p: message.NewPrinter(tag)}
}

// Lang returns the BCP 47 tag of the printer.
func (p *Printer) Lang() string { return p.tag.String() }

// Line projects a user into its list entry: name and age, then interests.
func (p *Printer) Line(u User) string {
	return p.p.Sprintf(msgLine, u.Name, u.Age, u.Interests)
}

// Lines projects a state in order.
func (p *Printer) Lines(state State) []string {
	out := make([]string, len(state))
	for i, u := range state {
		out[i] = p.Line(u)
	}
	return out
}

func (p *Printer) Title() string          { return p.p.Sprintf(msgTitle) }
func (p *Printer) HeroAlt() string        { return p.p.Sprintf(msgHeroAlt) }
func (p *Printer) Empty() string          { return p.p.Sprintf(msgEmpty) }
func (p *Printer) Stale() string          { return p.p.Sprintf(msgStale) }
func (p *Printer) UserCount(n int) string { return p.p.Sprintf(msgUserCount, n) }
