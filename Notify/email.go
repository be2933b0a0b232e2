package Notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"Maintenance/Config"
	"Maintenance/Models"
)

// EmailMessage is a plain-text or HTML mail.
type EmailMessage struct {
	To      []string
	CC      []string
	Subject string
	Body    string
	IsHTML  bool
}

// Email mails submission notices to a fixed recipient list.
type Email struct {
	cfg  Config.SMTPConfig
	send func(ctx context.Context, cfg Config.SMTPConfig, msg EmailMessage) error
}

// NewEmail sends through the configured SMTP server.
func NewEmail(cfg Config.SMTPConfig) *Email {
	return &Email{cfg: cfg, send: SendEmail}
}

func (e *Email) ChecklistSubmitted(ctx context.Context, cl Models.Checklist) error {
	msg := EmailMessage{
		To:      e.cfg.Recipients,
		Subject: Subject(cl),
		Body:    Summary(cl),
	}
	if err := e.send(ctx, e.cfg, msg); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

func buildMessage(from string, msg EmailMessage) []byte {
	headers := map[string]string{
		"From":    from,
		"To":      strings.Join(msg.To, ", "),
		"Subject": msg.Subject,
	}
	if len(msg.CC) > 0 {
		headers["Cc"] = strings.Join(msg.CC, ", ")
	}
	if msg.IsHTML {
		headers["MIME-Version"] = "1.0"
		headers["Content-Type"] = "text/html; charset=UTF-8"
	} else {
		headers["Content-Type"] = "text/plain; charset=UTF-8"
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// SendEmail delivers msg. Port 465 uses implicit TLS; any other port uses
// plain SMTP with STARTTLS when the server offers it.
func SendEmail(ctx context.Context, cfg Config.SMTPConfig, msg EmailMessage) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	body := buildMessage(cfg.From, msg)
	recipients := append(append([]string{}, msg.To...), msg.CC...)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	if cfg.Port != 465 {
		return smtp.SendMail(addr, auth, cfg.From, recipients, body)
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err := client.Mail(cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, r := range recipients {
		if err := client.Rcpt(r); err != nil {
			return fmt.Errorf("failed to add recipient %s: %w", r, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data connection: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data connection: %w", err)
	}
	return client.Quit()
}
