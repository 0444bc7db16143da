package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/fund-advisor/internal/config"
	"github.com/Dan9191/fund-advisor/internal/events"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/repository"
	"github.com/Dan9191/fund-advisor/internal/risk"
	"github.com/sirupsen/logrus"
)

const timestampLayout = "2006-01-02 15:04:05"

var (
	// ErrInvestorNotFound is returned for unknown investor ids.
	ErrInvestorNotFound = errors.New("Investor not found")
	// ErrPortfolioNotFound is returned when an investor never saved a portfolio.
	ErrPortfolioNotFound = errors.New("No portfolio found for this investor.")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("An investor with this email already exists")
	// ErrPreconditionFailed is returned when a conditional save lost a race.
	ErrPreconditionFailed = errors.New("Portfolio was modified concurrently; reload and try again.")
)

// ValidationError reports a malformed request payload.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Mailer sends investor notifications.
type Mailer interface {
	SendPortfolioSaved(inv *models.Investor, p *models.Portfolio) error
}

// Service handles business logic
type Service struct {
	repo      *repository.Repository
	log       *logrus.Logger
	config    *config.Config
	publisher events.Publisher
	mailer    Mailer
	now       func() time.Time
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:      repo,
		log:       log,
		config:    cfg,
		publisher: events.NewNoopPublisher(),
		now:       time.Now,
	}
}

// WithPublisher sets the sink for portfolio events.
func (s *Service) WithPublisher(p events.Publisher) *Service {
	s.publisher = p
	return s
}

// WithMailer enables email notifications.
func (s *Service) WithMailer(m Mailer) *Service {
	s.mailer = m
	return s
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// RegisterInvestor validates and scores a registration and stores it.
func (s *Service) RegisterInvestor(ctx context.Context, req *models.InvestorRequest) (*models.Investor, error) {
	if err := req.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}

	scores := risk.Evaluate(req)
	inv := &models.Investor{
		InvestorRequest: *req,
		RiskScore:       scores.RiskScore,
		ProfileScore:    scores.ProfileScore,
		CombinedScore:   scores.CombinedScore,
		RiskTolerance:   scores.Tolerance,
		CreatedAt:       s.timestamp(),
	}
	if err := s.repo.CreateInvestor(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"investor_id": inv.ID, "tolerance": inv.RiskTolerance}).
		Infof("Investor registered: %s", inv.Email)
	return inv, nil
}

// ListInvestors returns the investor list with each risk category.
func (s *Service) ListInvestors(ctx context.Context) ([]models.InvestorSummary, error) {
	investors, err := s.repo.ListInvestors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve investors: %w", err)
	}
	out := make([]models.InvestorSummary, 0, len(investors))
	for i := range investors {
		inv := &investors[i]
		cat := categoryOf(inv)
		out = append(out, models.InvestorSummary{
			ID:               inv.ID,
			Name:             inv.Name,
			Email:            inv.Email,
			Age:              inv.Age,
			RiskTolerance:    inv.RiskTolerance,
			RiskCategory:     cat.Name,
			RiskCategoryCode: cat.Code,
		})
	}
	return out, nil
}

func demographicOf(inv *models.Investor) int {
	return risk.DemographicScore(inv.EducationLevel, inv.OccupationType, inv.AnnualIncomeRange, inv.EquityExperience)
}

func categoryOf(inv *models.Investor) risk.Category {
	return risk.Categorize(inv.RiskScore, demographicOf(inv))
}

func (s *Service) investor(ctx context.Context, id int64) (*models.Investor, error) {
	inv, err := s.repo.GetInvestor(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvestorNotFound
	}
	return inv, err
}
