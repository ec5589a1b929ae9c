package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

type Purpose string

const (
	PurposeVerification  Purpose = "verification"
	PurposePasswordReset Purpose = "password_reset"
	PurposeGeneric       Purpose = "generic"
)

// Sender delivers a rendered HTML message.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type smtpSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTPConfig) Sender {
	return &smtpSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *smtpSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail to %s: %w", to, ctx.Err())
	}
}

// logSender stands in for SMTP in development and prints the message instead.
type logSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) Sender {
	return &logSender{log: log}
}

func (s *logSender) Send(_ context.Context, to, subject, htmlBody string) error {
	s.log.Info().Str("to", to).Str("subject", subject).Str("body", htmlBody).Msg("mail not sent, SMTP is not configured")
	return nil
}

type otpContent struct {
	Subject string
	Title   string
	Message string
}

var otpContents = map[Purpose]otpContent{
	PurposeVerification: {
		Subject: "Verify Your Email - SparkVest",
		Title:   "Verify Your Email",
		Message: "Thank you for registering with SparkVest. To complete your registration, please use the following verification code:",
	},
	PurposePasswordReset: {
		Subject: "Password Reset - SparkVest",
		Title:   "Reset Your Password",
		Message: "You requested to reset your password. Please use the following verification code to proceed:",
	},
	PurposeGeneric: {
		Subject: "Verification Code - SparkVest",
		Title:   "Your Verification Code",
		Message: "Please use the following verification code:",
	},
}

var otpTemplate = template.Must(template.New("otp").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">
  <div style="text-align: center; margin-bottom: 20px;"><h1 style="color: #3D5BA9;">SparkVest</h1></div>
  <div style="padding: 20px; background-color: #f9f9f9; border-radius: 5px;">
    <h2 style="margin-top: 0;">{{.Title}}</h2>
    <p>{{.Message}}</p>
    <div style="text-align: center; margin: 30px 0;">
      <div style="font-size: 24px; font-weight: bold; letter-spacing: 5px; padding: 15px; background-color: #efefef; border-radius: 5px;">{{.Code}}</div>
    </div>
    <p>This code will expire in {{.ExpiresIn}}.</p>
    <p>If you did not request this verification, please ignore this email.</p>
  </div>
  <div style="margin-top: 20px; text-align: center; color: #888; font-size: 12px;"><p>&copy; {{.Year}} SparkVest. All rights reserved.</p></div>
</div>`))

// Gateway renders transactional messages and hands them to a Sender.
type Gateway struct {
	sender  Sender
	codeTTL time.Duration
}

func NewGateway(sender Sender, codeTTL time.Duration) *Gateway {
	return &Gateway{sender: sender, codeTTL: codeTTL}
}

func (g *Gateway) SendOTP(ctx context.Context, to string, purpose Purpose, code string) error {
	subject, body, err := RenderOTP(purpose, code, g.codeTTL, time.Now())
	if err != nil {
		return err
	}
	return g.sender.Send(ctx, to, subject, body)
}

// RenderOTP returns subject and HTML body for a one-time code message.
func RenderOTP(purpose Purpose, code string, ttl time.Duration, now time.Time) (string, string, error) {
	content, ok := otpContents[purpose]
	if !ok {
		content = otpContents[PurposeGeneric]
	}

	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, map[string]any{
		"Title":     content.Title,
		"Message":   content.Message,
		"Code":      code,
		"ExpiresIn": humanizeMinutes(ttl),
		"Year":      now.Year(),
	})
	if err != nil {
		return "", "", fmt.Errorf("render otp mail: %w", err)
	}
	return content.Subject, buf.String(), nil
}

func humanizeMinutes(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
