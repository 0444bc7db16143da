package email

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/Dan9191/fund-advisor/internal/config"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// SendFunc delivers a composed email. It matches (*email.Email).Send.
type SendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   SendFunc
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// WithSendFunc replaces the SMTP delivery, for tests.
func (s *Sender) WithSendFunc(fn SendFunc) *Sender {
	s.send = fn
	return s
}

// ComposePortfolioSaved builds the confirmation mail for a saved portfolio.
func ComposePortfolioSaved(from string, inv *models.Investor, p *models.Portfolio) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{inv.Email}
	e.Subject = fmt.Sprintf("Portfolio saved: %s", p.Name)

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", inv.Name)
	fmt.Fprintf(&body, "Your portfolio %q (ID %d) was saved on %s.\n\n", p.Name, p.ID, p.CreatedAt)
	total := 0.0
	for _, f := range p.Funds {
		fmt.Fprintf(&body, "  - %s: %.2f (expected return %.2f%%)\n", f.FundName, f.Amount, f.ExpectedReturn)
		total += f.Amount
	}
	fmt.Fprintf(&body, "\nTotal invested: %.2f\n", total)
	body.WriteString("\nBest regards,\nFund Advisor")
	e.Text = []byte(body.String())
	return e
}

// SendPortfolioSaved sends the confirmation mail for a saved portfolio.
func (s *Sender) SendPortfolioSaved(inv *models.Investor, p *models.Portfolio) error {
	e := ComposePortfolioSaved(s.cfg.SenderEmail, inv, p)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	start := time.Now()
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", inv.Email, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithField("duration", time.Since(start)).Infof("Email sent to %s: %s", inv.Email, e.Subject)
	return nil
}
