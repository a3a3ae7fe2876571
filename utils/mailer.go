package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"brokercrm/config"

	"gopkg.in/gomail.v2"
)

// Embedded email templates
var emailTemplates = map[string]string{
	"portal_invite": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .content { margin: 20px 0; }
        .credentials { font-size: 18px; font-weight: bold; color: #3498db; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Your Client Portal Access</h2>
    </div>
    <div class="content">
        <p>Hello {{.ClientName}},</p>
        <p>Your broker has set up portal access for you. You can now view your
        policies and documents online.</p>
        <div class="credentials">Username: {{.Username}}</div>
        <p>Sign in at <a href="{{.PortalURL}}">{{.PortalURL}}</a> with the
        temporary password your broker shared with you, and change it on first
        login.</p>
    </div>
    <div class="footer">
        <p>&copy; {{.Year}} {{.FromName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
	"task_reminder": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 10px; }
        .task { font-size: 18px; font-weight: bold; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #7f8c8d; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h2>Task Due</h2>
    </div>
    <p>Hello {{.UserName}},</p>
    <p>The following task is due:</p>
    <div class="task">{{.TaskTitle}}</div>
    <p>{{.TaskDescription}}</p>
    <p>Due: {{.DueAt}}</p>
    <div class="footer">
        <p>&copy; {{.Year}} {{.FromName}}. All rights reserved.</p>
    </div>
</body>
</html>`,
}

// Mailer sends transactional and marketing email over the configured SMTP
// relay.
type Mailer struct {
	cfg config.SMTPConfig
}

func NewMailer() *Mailer {
	return &Mailer{cfg: config.AppConfig.SMTP}
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	if m.cfg.Host == "" {
		return fmt.Errorf("SMTP is not configured")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.FromEmail, m.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return d.DialAndSend(msg)
}

func (m *Mailer) renderTemplate(name string, data map[string]interface{}) (string, error) {
	tmplText, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	tmpl, err := template.New(name).Parse(tmplText)
	if err != nil {
		return "", err
	}
	data["Year"] = time.Now().Year()
	data["FromName"] = m.cfg.FromName

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendPortalInvite emails a newly provisioned portal client their username.
func (m *Mailer) SendPortalInvite(to, clientName, username string) error {
	body, err := m.renderTemplate("portal_invite", map[string]interface{}{
		"Subject":    "Your Client Portal Access",
		"ClientName": clientName,
		"Username":   username,
		"PortalURL":  config.AppConfig.PortalBaseURL,
	})
	if err != nil {
		return err
	}
	return m.send(to, "Your Client Portal Access", body)
}

// SendTaskReminder emails a staff user about a due task.
func (m *Mailer) SendTaskReminder(to, userName, taskTitle, taskDescription string, dueAt time.Time) error {
	body, err := m.renderTemplate("task_reminder", map[string]interface{}{
		"Subject":         "Task due: " + taskTitle,
		"UserName":        userName,
		"TaskTitle":       taskTitle,
		"TaskDescription": taskDescription,
		"DueAt":           dueAt.Format("Jan 2, 2006 3:04 PM"),
	})
	if err != nil {
		return err
	}
	return m.send(to, "Task due: "+taskTitle, body)
}

// SendMarketing renders a stored template body against per-client data and
// sends it.
func (m *Mailer) SendMarketing(to, subjectTmpl, bodyTmpl string, data map[string]interface{}) error {
	subject, err := renderInline("subject", subjectTmpl, data)
	if err != nil {
		return err
	}
	body, err := renderInline("body", bodyTmpl, data)
	if err != nil {
		return err
	}
	return m.send(to, subject, body)
}

func renderInline(name, text string, data map[string]interface{}) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
