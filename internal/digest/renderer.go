package digest

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	"nesto/internal/model"
)

const (
	emptyMessage = "Nothing planned - enjoy your free time!"
	footer       = "Sent by Nesto. Manage your digest preferences in Settings."

	// labelledPriority is the lowest priority still flagged in the mail.
	labelledPriority = model.PriorityHigh
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Document is a rendered digest mail.
type Document struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

func NewRenderer() (*Renderer, error) {
	h, err := htmltemplate.ParseFS(templateFS, "templates/digest.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html template: %w", err)
	}
	t, err := texttemplate.ParseFS(templateFS, "templates/digest.txt.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text template: %w", err)
	}
	return &Renderer{html: h, text: t}, nil
}

// Render builds the mail for user. now fixes the dates shown in the title
// and subject and should be in the configured location.
func (r *Renderer) Render(user model.User, digests []HouseholdDigest, period model.DigestPeriod, now time.Time) (Document, error) {
	v := buildView(user, digests, period, now)

	var html, text bytes.Buffer
	if err := r.html.Execute(&html, v); err != nil {
		return Document{}, fmt.Errorf("render html digest: %w", err)
	}
	if err := r.text.Execute(&text, v); err != nil {
		return Document{}, fmt.Errorf("render text digest: %w", err)
	}
	return Document{
		Subject: Subject(period, now),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// Subject returns the mail subject of a scheduled digest.
func Subject(period model.DigestPeriod, now time.Time) string {
	if period == model.PeriodWeekly {
		end := now.AddDate(0, 0, weeklySpanDays)
		return fmt.Sprintf("Nesto weekly digest - %s to %s", now.Format("Jan 02"), end.Format("Jan 02"))
	}
	return "Nesto daily digest - " + now.Format("Monday, Jan 02")
}

// SubjectForTestSend is the subject of a digest sent on request.
func SubjectForTestSend(period model.DigestPeriod) string {
	return fmt.Sprintf("[TEST] Nesto %s digest", period)
}

type view struct {
	Greeting     string
	Title        string
	Households   []householdView
	EmptyMessage string
	Footer       string
}

type householdView struct {
	Name         string
	Events       []eventLine
	TasksHeading string
	Tasks        []taskLine
	Completed    []string
}

type eventLine struct {
	When  string
	Title string
}

type taskLine struct {
	Title    string
	Due      string
	Priority string
}

func buildView(user model.User, digests []HouseholdDigest, period model.DigestPeriod, now time.Time) view {
	weekly := period == model.PeriodWeekly

	v := view{
		Greeting:     user.GreetingName(),
		EmptyMessage: emptyMessage,
		Footer:       footer,
	}
	if weekly {
		end := now.AddDate(0, 0, weeklySpanDays)
		v.Title = fmt.Sprintf("Your week ahead: %s – %s", now.Format("Jan 02"), end.Format("Jan 02"))
	} else {
		v.Title = "Your daily digest for " + now.Format("Monday, January 02")
	}

	for _, d := range digests {
		hv := householdView{Name: d.Household.Name, TasksHeading: "Reminders due today"}
		if weekly {
			hv.TasksHeading = "Reminders due this week"
		}
		for _, occ := range d.Occurrences {
			when := occ.Start.Format("15:04") + " – " + occ.End.Format("15:04")
			if weekly {
				when = occ.Start.Format("Mon Jan 02, 15:04") + " – " + occ.End.Format("15:04")
			}
			hv.Events = append(hv.Events, eventLine{When: when, Title: occ.Event.Title})
		}
		for _, t := range d.TasksDue {
			line := taskLine{Title: t.Title}
			if weekly && t.DueDate != nil {
				line.Due = t.DueDate.Format("Mon Jan 02")
			}
			if t.Priority >= model.PriorityUrgent && t.Priority <= labelledPriority {
				line.Priority = model.PriorityLabel(t.Priority)
			}
			hv.Tasks = append(hv.Tasks, line)
		}
		for _, t := range d.Completed {
			hv.Completed = append(hv.Completed, t.Title)
		}
		v.Households = append(v.Households, hv)
	}
	return v
}
