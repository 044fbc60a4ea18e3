package email

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"agency_portal/internal/domain/entities"
	"agency_portal/internal/usecase/interfaces"
)

var ErrUnknownTemplate = errors.New("no email template for event")

type messageTemplate struct {
	subject *template.Template
	body    *template.Template
}

var funcs = template.FuncMap{
	"money": func(minor int64, currency string) string {
		return fmt.Sprintf("%.2f %s", entities.MajorUnits(minor), currency)
	},
	"date": func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format("2006-01-02")
	},
}

func mustTemplate(subject, body string) messageTemplate {
	return messageTemplate{
		subject: template.Must(template.New("subject").Funcs(funcs).Parse(subject)),
		body:    template.Must(template.New("body").Funcs(funcs).Parse(body)),
	}
}

var templates = map[entities.EventType]messageTemplate{
	entities.EventSent: mustTemplate(
		`New proposal: {{.Title}}`,
		`You have a new proposal "{{.Title}}" for {{money .Value .Currency}}.
It is valid until {{date .ExpiresAt}}.
`),
	entities.EventExpiring: mustTemplate(
		`Proposal expiring soon: {{.Title}}`,
		`Your proposal "{{.Title}}" ({{money .Value .Currency}}) expires on {{date .ExpiresAt}}.
`),
	entities.EventApproved: mustTemplate(
		`Proposal approved: {{.Title}}`,
		`Thank you for approving "{{.Title}}" on {{date .ApprovedAt}}.
Invoice {{.InvoiceID}} for {{money .Value .Currency}} is now due.
`),
	entities.EventDeclined: mustTemplate(
		`Proposal declined: {{.Title}}`,
		`The proposal "{{.Title}}" was declined. No invoice will be issued.
`),
	entities.EventExpired: mustTemplate(
		`Proposal expired: {{.Title}}`,
		`The proposal "{{.Title}}" expired on {{date .ExpiresAt}}. Contact us for a revised version.
`),
}

// Render builds the subject and the RFC 5322 message for a notification.
func Render(from string, n interfaces.Notification) (string, []byte, error) {
	tmpl, ok := templates[n.Event]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, n.Event)
	}
	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, n); err != nil {
		return "", nil, err
	}
	if err := tmpl.body.Execute(&body, n); err != nil {
		return "", nil, err
	}

	subj := strings.TrimSpace(subject.String())
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", n.Recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subj)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.Write(body.Bytes())
	return subj, msg.Bytes(), nil
}
