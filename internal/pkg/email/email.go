package email

import (
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EmailService defines the interface for email operations
type EmailService interface {
	SendRideReminder(r RideReminder) error
}

// RideReminder is the content of one reminder email
type RideReminder struct {
	ToEmail   string
	ToName    string
	RideTitle string
	GroupName string
	StartsAt  time.Time
	Meeting   string
	Link      string // path relative to the site URL
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromName  string
	FromEmail string
	UseTLS    bool   // implicit TLS, usually port 465
	BaseURL   string // site URL links are resolved against
}

// EmailServiceImpl implements EmailService
type EmailServiceImpl struct {
	config SMTPConfig
	logger zerolog.Logger
	send   func(to, msg string) error
}

// NewEmailService creates a new EmailService
func NewEmailService(config SMTPConfig, logger zerolog.Logger) *EmailServiceImpl {
	s := &EmailServiceImpl{
		config: config,
		logger: logger,
	}
	s.send = s.sendSMTP
	return s
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`<html>
<body>
	<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
		<h2 style="color: #333;">{{.RideTitle}}</h2>
		<p>Hello {{.ToName}},</p>
		<p>Your ride with {{.GroupName}} starts {{.When}}.</p>
		{{if .Meeting}}<p>Meeting point: <strong>{{.Meeting}}</strong></p>{{end}}
		<div style="text-align: center; margin: 30px 0;">
			<a href="{{.URL}}" style="background-color: #e8590c; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; font-weight: bold;">View ride</a>
		</div>
		<p>Ride safe,<br>MotoBuddies</p>
	</div>
</body>
</html>`))

// SendRideReminder sends the reminder for an upcoming ride
func (s *EmailServiceImpl) SendRideReminder(r RideReminder) error {
	url := s.absoluteURL(r.Link)

	// Without a server, log the email (for development only)
	if s.config.Host == "" {
		s.logger.Warn().
			Str("toEmail", r.ToEmail).
			Str("ride", r.RideTitle).
			Str("url", url).
			Msg("SMTP not configured - reminder email not sent")
		return nil
	}

	body, err := renderReminder(r, url)
	if err != nil {
		return err
	}
	return s.sendHTMLEmail(r.ToEmail, "Ride reminder: "+r.RideTitle, body)
}

func renderReminder(r RideReminder, url string) (string, error) {
	name := r.ToName
	if name == "" {
		name = "rider"
	}
	var sb strings.Builder
	err := reminderTemplate.Execute(&sb, map[string]string{
		"RideTitle": r.RideTitle,
		"ToName":    name,
		"GroupName": r.GroupName,
		"When":      r.StartsAt.Format("Mon 2 Jan 15:04 MST"),
		"Meeting":   r.Meeting,
		"URL":       url,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render reminder: %w", err)
	}
	return sb.String(), nil
}

func (s *EmailServiceImpl) absoluteURL(link string) string {
	if link == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimRight(s.config.BaseURL, "/") + "/" + strings.TrimLeft(link, "/")
}

// sendHTMLEmail sends an HTML email
func (s *EmailServiceImpl) sendHTMLEmail(toEmail, subject, htmlBody string) error {
	var msg strings.Builder
	msg.WriteString("From: " + s.from() + "\r\n")
	msg.WriteString("To: " + toEmail + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	if err := s.send(toEmail, msg.String()); err != nil {
		s.logger.Error().Err(err).Str("toEmail", toEmail).Msg("Failed to send email")
		return err
	}
	s.logger.Info().Str("toEmail", toEmail).Str("subject", subject).Msg("Email sent")
	return nil
}

func (s *EmailServiceImpl) from() string {
	if s.config.FromName == "" {
		return s.config.FromEmail
	}
	return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
}

func (s *EmailServiceImpl) sendSMTP(to, message string) error {
	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if !s.config.UseTLS {
		if err := smtp.SendMail(serverAddress, auth, s.config.FromEmail, []string{to}, []byte(message)); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddress, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write([]byte(message)); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	return w.Close()
}
