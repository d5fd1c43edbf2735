package notify

import (
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/veloship/leadrelay/internal/db"
)

// ErrUnknownFormType is returned when rendering is asked for a form type
// the engine has no field layout for.
var ErrUnknownFormType = errors.New("unknown form type")

// missingValue is rendered for fields the visitor left blank, so the
// message shape stays identical regardless of which optional fields were
// supplied.
const missingValue = "Not provided"

// Message is a fully rendered notification, shared by every recipient of
// one event.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// fieldRow is one (label, payload key) pair surfaced in the message body.
type fieldRow struct {
	Label string
	Key   string
}

// Field layouts are fixed and ordered per form type. The "name" key is
// virtual: for quote payloads it is assembled from firstName/lastName.
var formFields = map[string][]fieldRow{
	db.FormQuote: {
		{"Name", "name"},
		{"Email", "email"},
		{"Phone", "phone"},
		{"Company", "company"},
		{"Origin", "origin"},
		{"Destination", "destination"},
		{"Shipping Method", "shippingMethod"},
		{"Message", "message"},
	},
	db.FormConsultation: {
		{"Name", "name"},
		{"Email", "email"},
		{"Phone", "phone"},
		{"Service", "service"},
		{"Message", "message"},
	},
	db.FormContact: {
		{"Name", "name"},
		{"Email", "email"},
		{"Phone", "phone"},
		{"Subject", "subject"},
		{"Message", "message"},
	},
}

var formHeadings = map[string]string{
	db.FormQuote:        "New Quote Request",
	db.FormConsultation: "New Consultation Request",
	db.FormContact:      "New Contact Message",
}

var htmlBody = template.Must(template.New("notification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  <h2>{{.Heading}}</h2>
  <table cellpadding="6" cellspacing="0" border="0">
{{- range .Rows}}
    <tr>
      <td style="font-weight: bold; vertical-align: top;">{{.Label}}</td>
      <td>{{.Value}}</td>
    </tr>
{{- end}}
  </table>
</body>
</html>
`))

type renderedRow struct {
	Label string
	Value string
}

// Render produces the subject, HTML body and plain-text body for one
// event. It is pure: same inputs, same output, no I/O. All interpolated
// values are HTML-escaped in the HTML body; the text body is the raw
// newline-joined label/value pairs.
func Render(formType string, payload map[string]string) (*Message, error) {
	fields, ok := formFields[formType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormType, formType)
	}

	name := submitterName(payload)

	rows := make([]renderedRow, 0, len(fields))
	for _, f := range fields {
		value := strings.TrimSpace(payload[f.Key])
		if f.Key == "name" {
			value = name
		}
		if value == "" {
			value = missingValue
		}
		rows = append(rows, renderedRow{Label: f.Label, Value: value})
	}

	subjectName := name
	if subjectName == "" {
		subjectName = "Website Visitor"
	}
	subject := fmt.Sprintf("%s from %s", formHeadings[formType], subjectName)

	var html strings.Builder
	err := htmlBody.Execute(&html, struct {
		Heading string
		Rows    []renderedRow
	}{
		Heading: formHeadings[formType],
		Rows:    rows,
	})
	if err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	var text strings.Builder
	for _, row := range rows {
		text.WriteString(row.Label)
		text.WriteString(": ")
		text.WriteString(row.Value)
		text.WriteString("\n")
	}

	return &Message{
		Subject: subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

// submitterName returns the visitor's name, assembling it from
// firstName/lastName when no single name field was supplied (quote forms
// collect the two parts separately).
func submitterName(payload map[string]string) string {
	if name := strings.TrimSpace(payload["name"]); name != "" {
		return name
	}
	first := strings.TrimSpace(payload["firstName"])
	last := strings.TrimSpace(payload["lastName"])
	return strings.TrimSpace(first + " " + last)
}
