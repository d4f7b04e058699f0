package core

import (
	"bytes"
	"net/mail"
	texttmpl "text/template"
)

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
	}

	ContextData struct {
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// email templates are small enough to live in code; they render text/plain bodies.
var emailTemplates = map[string]*texttmpl.Template{
	"welcome-employee": texttmpl.Must(texttmpl.New("welcome-employee").Parse(
		`Hi {{.Data.FirstName}},

Your staff account has been created. Sign in at {{.FrontendBaseURL}} with your email address.

Role: {{.Data.Role}}
`)),
	"lead-contacted": texttmpl.Must(texttmpl.New("lead-contacted").Parse(
		`Hi {{.Data.ParentName}},

Thank you for your interest in {{range $i, $t := .Data.CourseTitles}}{{if $i}}, {{end}}{{$t}}{{end}}.
Our staff will reach out to you shortly at {{.Data.ParentPhone}}.
`)),
}

// Render resolves the message's final text content, either from BodyStr
// or from its named template.
func (m *EmailMessage) Render(frontendBaseURL string) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}
	tmpl, ok := emailTemplates[m.TemplateName]
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, ContextData{FrontendBaseURL: frontendBaseURL, Data: m.TemplateData}); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0 || len(m.Cc) > 0 || len(m.Bcc) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != ""
}
