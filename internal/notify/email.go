package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/ukydev/maintenance-hub/internal/config"
	"github.com/ukydev/maintenance-hub/internal/metrics"
	"github.com/ukydev/maintenance-hub/internal/models"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

var assignmentMail = template.Must(template.New("assignment").Parse(
	"From: {{.From}}\r\n" +
		"To: {{.To}}\r\n" +
		"Subject: [{{.Req.Priority}}] {{.Req.RequestNumber}} assigned to you\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Hello {{.Name}},\r\n\r\n" +
		"Maintenance request {{.Req.RequestNumber}} has been assigned to you.\r\n\r\n" +
		"Title:    {{.Req.Title}}\r\n" +
		"Type:     {{.Req.Type}}\r\n" +
		"Priority: {{.Req.Priority}}\r\n" +
		"{{if .Req.DueDate}}Due:      {{.Req.DueDate.Format \"2006-01-02 15:04 MST\"}}\r\n{{end}}" +
		"\r\n{{.Req.Description}}\r\n"))

// SMTPNotifier e-mails assignments to the technician's address.
type SMTPNotifier struct {
	cfg  config.SMTPConfig
	send SendFunc
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyAssignment(ctx context.Context, technician *models.User, req *models.MaintenanceRequest) error {
	if technician.Email == "" {
		return ErrNoRecipient
	}
	msg, err := n.render(technician, req)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	// smtp.SendMail has no context; give up waiting when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.cfg.From, []string{technician.Email}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			metrics.NotificationFailures.WithLabelValues("smtp").Inc()
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		metrics.NotificationFailures.WithLabelValues("smtp").Inc()
		return fmt.Errorf("send mail: %w", ctx.Err())
	}
}

func (n *SMTPNotifier) render(technician *models.User, req *models.MaintenanceRequest) ([]byte, error) {
	var buf bytes.Buffer
	err := assignmentMail.Execute(&buf, struct {
		From string
		To   string
		Name string
		Req  *models.MaintenanceRequest
	}{n.cfg.From, technician.Email, technician.FullName(), req})
	if err != nil {
		return nil, fmt.Errorf("render assignment mail: %w", err)
	}
	return buf.Bytes(), nil
}
