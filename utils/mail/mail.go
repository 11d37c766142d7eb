package mail

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"github.com/joy095/parking/config"
	"github.com/joy095/parking/logger"
	gomail "gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const bookingTemplate = "booking_confirmed.html"

// BookingEmail is the data rendered into an operator booking notification.
type BookingEmail struct {
	To           string
	CompanyName  string
	LotName      string
	SpotNumber   string
	LicensePlate string
	Start        string
	End          string
	Cost         float64
	ContactPhone string
	BookingID    string
}

// Notifier delivers booking notifications to operators.
type Notifier interface {
	SendBookingNotification(data BookingEmail) error
}

// RenderBookingEmail returns the subject and HTML body for data.
func RenderBookingEmail(data BookingEmail) (string, string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, bookingTemplate, data); err != nil {
		return "", "", fmt.Errorf("failed to execute email template: %w", err)
	}
	return fmt.Sprintf("New booking: spot %s at %s", data.SpotNumber, data.LotName), body.String(), nil
}

// SMTPNotifier sends mail through an SMTP relay with gomail.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSMTPNotifierFromEnv reads SMTP_* and FROM_EMAIL. It returns nil when
// SMTP_HOST is unset so callers can skip notifications.
func NewSMTPNotifierFromEnv() *SMTPNotifier {
	host := config.GetEnv("SMTP_HOST", "")
	if host == "" {
		logger.WarnLogger.Warn("SMTP_HOST not set, booking e-mails disabled")
		return nil
	}
	port, err := strconv.Atoi(config.GetEnv("SMTP_PORT", "587"))
	if err != nil {
		logger.ErrorLogger.Errorf("Invalid SMTP port: %v", err)
		return nil
	}
	return &SMTPNotifier{
		Host:     host,
		Port:     port,
		Username: config.GetEnv("SMTP_USERNAME", ""),
		Password: config.GetEnv("SMTP_PASSWORD", ""),
		From:     config.GetEnv("FROM_EMAIL", ""),
	}
}

func (n *SMTPNotifier) SendBookingNotification(data BookingEmail) error {
	subject, body, err := RenderBookingEmail(data)
	if err != nil {
		return err
	}

	mailer := gomail.NewMessage()
	mailer.SetHeader("From", n.From)
	mailer.SetHeader("To", data.To)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)

	dialer := gomail.NewDialer(n.Host, n.Port, n.Username, n.Password)
	dialer.TLSConfig = &tls.Config{ServerName: n.Host}

	if err := dialer.DialAndSend(mailer); err != nil {
		logger.ErrorLogger.Errorf("Failed to send email to %s: %v", data.To, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoLogger.Infof("Booking notification sent to %s", data.To)
	return nil
}
