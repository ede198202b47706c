package tools

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
)

// EmailSender delivers a templated email, the backend for the send_email
// tool (§4.H).
type EmailSender interface {
	Send(ctx context.Context, toEmail, templateName string, vars map[string]any) error
}

// EmailTemplates maps a template_name to its subject/body text/template
// source. Bodies use Go template syntax ({{.Field}}) against vars.
type EmailTemplates map[string]EmailTemplate

// EmailTemplate is one named email's subject and body source.
type EmailTemplate struct {
	Subject string
	Body    string
}

// SMTPConfig configures an SMTPEmailSender. No third-party mail client
// appears anywhere in the retrieval pack, so this is built on the standard
// library's net/smtp.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPEmailSender sends templated emails over SMTP with PLAIN auth.
type SMTPEmailSender struct {
	cfg       SMTPConfig
	templates EmailTemplates
	dial      func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPEmailSender builds an SMTPEmailSender.
func NewSMTPEmailSender(cfg SMTPConfig, templates EmailTemplates) *SMTPEmailSender {
	return &SMTPEmailSender{
		cfg:       cfg,
		templates: templates,
		dial:      smtp.SendMail,
	}
}

// Send renders templateName with vars and delivers it to toEmail.
func (s *SMTPEmailSender) Send(ctx context.Context, toEmail, templateName string, vars map[string]any) error {
	tmpl, ok := s.templates[templateName]
	if !ok {
		return fmt.Errorf("email: unknown template %q", templateName)
	}

	subject, err := renderTemplate(templateName+":subject", tmpl.Subject, vars)
	if err != nil {
		return err
	}
	body, err := renderTemplate(templateName+":body", tmpl.Body, vars)
	if err != nil {
		return err
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.cfg.From, toEmail, subject, body))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.dial(addr, auth, s.cfg.From, []string{toEmail}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func renderTemplate(name, source string, vars map[string]any) (string, error) {
	tmpl, err := template.New(name).Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
