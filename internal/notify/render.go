package notify

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/amariwan/class-digest/internal/models"
)

//go:embed templates/agenda.html
var agendaTemplate string

// DefaultSubjectPrefix is used when no subject prefix is configured
const DefaultSubjectPrefix = "Uni Schedule"

// Message is a rendered agenda email
type Message struct {
	Subject string
	Text    string
	HTML    string
	RunID   string
}

// Renderer turns an agenda into an email
type Renderer struct {
	tmpl   *template.Template
	prefix string
}

// NewRenderer parses the embedded HTML template
func NewRenderer(subjectPrefix string) (*Renderer, error) {
	tmpl, err := template.New("agenda").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(agendaTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Renderer{tmpl: tmpl, prefix: subjectPrefix}, nil
}

// Render builds subject, HTML and plain text bodies. An empty agenda renders
// the "no classes" variant.
func (r *Renderer) Render(a models.Agenda) (*Message, error) {
	data := map[string]interface{}{
		"Date":      a.Date.Format(models.DateLayout),
		"Weekday":   a.Date.Weekday().String(),
		"Entries":   a.Entries,
		"Reasons":   a.Reasons,
		"Empty":     a.Empty(),
		"EmptyText": emptyText(a.Outcome),
	}

	var html bytes.Buffer
	if err := r.tmpl.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	return &Message{
		Subject: r.subject(a),
		Text:    renderText(a),
		HTML:    html.String(),
	}, nil
}

func (r *Renderer) subject(a models.Agenda) string {
	base := fmt.Sprintf("%s for %s", r.prefix, a.Date.Format(models.DateLayout))
	if !a.Empty() {
		return base
	}
	switch a.Outcome {
	case models.OutcomeHoliday:
		return base + ": holiday week"
	default:
		return base + ": free day"
	}
}

func emptyText(o models.Outcome) string {
	switch o {
	case models.OutcomeDayOff:
		return "No classes today, it's a day off!"
	case models.OutcomeHoliday:
		return "It's a holiday week! No classes."
	case models.OutcomePartial:
		return "No classes to attend today, everything was cancelled."
	default:
		return "No classes today!"
	}
}

// renderText is the plain text alternative for clients without HTML
func renderText(a models.Agenda) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule for %s, %s\n\n", a.Date.Weekday(), a.Date.Format(models.DateLayout))

	if len(a.Reasons) > 0 {
		fmt.Fprintf(&b, "Changes today: %s\n\n", strings.Join(a.Reasons, "; "))
	}

	if a.Empty() {
		b.WriteString(emptyText(a.Outcome))
		b.WriteString("\n")
		return b.String()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Course", "Room", "Type"})
	for _, e := range a.Entries {
		t.AppendRow(table.Row{e.Time.String(), e.Course, e.Location, e.Kind})
	}
	b.WriteString(t.Render())
	b.WriteString("\n")
	return b.String()
}
