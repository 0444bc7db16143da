package email

import (
	"errors"
	"io"
	"net/smtp"
	"strings"
	"testing"

	"github.com/Dan9191/fund-advisor/internal/config"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

func testInvestor() *models.Investor {
	inv := &models.Investor{ID: 3}
	inv.Name = "Asha Rao"
	inv.Email = "asha@example.com"
	return inv
}

func testPortfolio() *models.Portfolio {
	return &models.Portfolio{
		ID:        12,
		Name:      "Portfolio for 3 - 2026-10-19",
		CreatedAt: "2026-10-19 10:00:00",
		Funds: []models.Fund{
			{FundName: "Large Cap Equity Fund", Amount: 70000, ExpectedReturn: 12},
			{FundName: "Liquid Fund", Amount: 30000, ExpectedReturn: 6},
		},
	}
}

func TestComposePortfolioSaved(t *testing.T) {
	e := ComposePortfolioSaved("advisor@example.com", testInvestor(), testPortfolio())
	if len(e.To) != 1 || e.To[0] != "asha@example.com" {
		t.Fatalf("unexpected recipients %v", e.To)
	}
	body := string(e.Text)
	for _, want := range []string{"Dear Asha Rao", "(ID 12)", "Liquid Fund: 30000.00", "Total invested: 100000.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestSendPortfolioSaved(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: "25", SenderEmail: "advisor@example.com"}

	var gotAddr string
	s := NewSender(cfg, log).WithSendFunc(func(e *email.Email, addr string, auth smtp.Auth) error {
		gotAddr = addr
		if auth != nil {
			t.Error("expected no auth without SMTP username")
		}
		return nil
	})
	if err := s.SendPortfolioSaved(testInvestor(), testPortfolio()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "smtp.example.com:25" {
		t.Errorf("addr = %q", gotAddr)
	}

	s.WithSendFunc(func(*email.Email, string, smtp.Auth) error { return errors.New("refused") })
	if err := s.SendPortfolioSaved(testInvestor(), testPortfolio()); err == nil {
		t.Error("expected delivery error")
	}
}
