package support

import (
	"bytes"
	"fmt"
	"html/template"
)

var teamNotificationTmpl = template.Must(template.New("team").Parse(`<h2>New support request</h2>
<p><strong>From:</strong> {{.Name}} ({{.Email}})</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Ticket:</strong> {{.TicketID}}</p>
<hr>
<p>{{.Message}}</p>
<p style="color:#888;font-size:12px">IP: {{.ClientIP}} · Agent: {{.UserAgent}}</p>`))

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<h2>We received your message</h2>
<p>Hi {{.Name}},</p>
<p>Thanks for reaching out about <strong>{{.Subject}}</strong>. Your ticket
number is <strong>{{.TicketID}}</strong> and we usually reply within one
business day.</p>
<p>Your message:</p>
<blockquote>{{.Message}}</blockquote>`))

type emailData struct {
	TicketID  string
	Name      string
	Email     string
	Subject   string
	Message   string
	ClientIP  string
	UserAgent string
}

func renderTeamNotification(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := teamNotificationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render team notification: %w", err)
	}
	return buf.String(), nil
}

func renderConfirmation(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render confirmation: %w", err)
	}
	return buf.String(), nil
}
