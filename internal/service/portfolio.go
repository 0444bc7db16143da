package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/fund-advisor/internal/events"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/repository"
	"github.com/Dan9191/fund-advisor/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const unknownAssetClass = "N/A"

// Precondition carries the conditional request headers of a save.
type Precondition struct {
	IfMatch     string
	IfNoneMatch string
}

// check compares the precondition with the portfolio currently stored.
func (pc Precondition) check(current *models.Portfolio, secret string) error {
	if current == nil {
		if pc.IfMatch != "" {
			return ErrPreconditionFailed
		}
		return nil
	}
	if pc.IfNoneMatch == "*" {
		return ErrPreconditionFailed
	}
	if pc.IfMatch != "" && !utils.MatchETag(pc.IfMatch, fingerprintOf(current, secret)) {
		return ErrPreconditionFailed
	}
	return nil
}

func holdingsOf(p *models.Portfolio) []models.Holding {
	h := make([]models.Holding, 0, len(p.Funds))
	for _, f := range p.Funds {
		h = append(h, models.NewHolding(f.FundName, f.Amount))
	}
	models.SortHoldings(h)
	return h
}

func fingerprintOf(p *models.Portfolio, secret string) string {
	return utils.Fingerprint(holdingsOf(p), secret)
}

// LatestPortfolio returns the newest portfolio of an investor together with
// its fingerprint.
func (s *Service) LatestPortfolio(ctx context.Context, investorID int64) (*models.PortfolioView, string, error) {
	inv, err := s.investor(ctx, investorID)
	if err != nil {
		return nil, "", err
	}
	p, err := s.repo.LatestPortfolio(ctx, investorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrPortfolioNotFound
	}
	if err != nil {
		return nil, "", err
	}

	view := &models.PortfolioView{
		PortfolioID:   p.ID,
		InvestorName:  inv.Name,
		PortfolioName: p.Name,
		CreatedAt:     p.CreatedAt,
		Funds:         make([]models.PortfolioFund, 0, len(p.Funds)),
	}
	for _, f := range p.Funds {
		class, err := s.repo.AssetClassOf(ctx, f.FundName)
		if errors.Is(err, repository.ErrNotFound) {
			class = unknownAssetClass
		} else if err != nil {
			return nil, "", err
		}
		view.Funds = append(view.Funds, models.PortfolioFund{
			FundName:       f.FundName,
			AssetClass:     class,
			Amount:         f.Amount,
			ExpectedReturn: f.ExpectedReturn,
		})
	}
	return view, fingerprintOf(p, s.config.FingerprintSecret), nil
}

// SavePortfolio appends a new portfolio for the investor. The write happens
// only if the precondition holds against the portfolio stored at commit time.
func (s *Service) SavePortfolio(ctx context.Context, investorID int64, req *models.SavePortfolioRequest, pc Precondition) (*models.Portfolio, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", &ValidationError{Err: err}
	}
	inv, err := s.investor(ctx, investorID)
	if err != nil {
		return nil, "", err
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Portfolio for %d - %s", investorID, s.now().UTC().Format("2006-01-02"))
	}
	p := &models.Portfolio{
		InvestorID: investorID,
		Name:       name,
		CreatedAt:  s.timestamp(),
		Funds:      make([]models.Fund, 0, len(req.Funds)),
	}
	for _, f := range req.Funds {
		p.Funds = append(p.Funds, models.Fund{
			FundName:       f.FundName,
			Amount:         f.Amount,
			ExpectedReturn: f.ExpectedReturn,
		})
	}

	secret := s.config.FingerprintSecret
	err = s.repo.CreatePortfolio(ctx, p, func(current *models.Portfolio) error {
		return pc.check(current, secret)
	})
	if err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			s.log.WithField("investor_id", investorID).Warn("Portfolio save rejected: precondition failed")
		}
		return nil, "", err
	}

	s.log.WithFields(logrus.Fields{"investor_id": investorID, "portfolio_id": p.ID, "funds": len(p.Funds)}).
		Info("Portfolio saved")
	s.notify(ctx, inv, p)
	return p, fingerprintOf(p, secret), nil
}

// notify fans out the saved event. Delivery failures are logged only.
func (s *Service) notify(ctx context.Context, inv *models.Investor, p *models.Portfolio) {
	total := decimal.Zero
	for _, f := range p.Funds {
		total = total.Add(decimal.NewFromFloat(f.Amount))
	}
	evt := &events.PortfolioSaved{
		InvestorID:  inv.ID,
		PortfolioID: p.ID,
		Name:        p.Name,
		FundCount:   len(p.Funds),
		Total:       total.Round(2).InexactFloat64(),
		SavedAt:     p.CreatedAt,
	}
	if err := s.publisher.PublishPortfolioSaved(ctx, evt); err != nil {
		s.log.Errorf("Failed to publish portfolio event: %v", err)
	}
	if s.mailer != nil {
		if err := s.mailer.SendPortfolioSaved(inv, p); err != nil {
			s.log.Errorf("Failed to notify investor %d: %v", inv.ID, err)
		}
	}
}

// PortfolioDocument returns the latest stored portfolio and its owner, for
// exports.
func (s *Service) PortfolioDocument(ctx context.Context, investorID int64) (*models.Investor, *models.PortfolioView, error) {
	inv, err := s.investor(ctx, investorID)
	if err != nil {
		return nil, nil, err
	}
	view, _, err := s.LatestPortfolio(ctx, investorID)
	if err != nil {
		return nil, nil, err
	}
	return inv, view, nil
}

// DriftReport describes an investor whose saved portfolio no longer matches
// the current recommendations.
type DriftReport struct {
	InvestorID  int64
	PortfolioID int64
	Saved       []models.Holding
	Recommended []models.Holding
}

// DriftCheck compares every saved portfolio with a fresh recommendation.
func (s *Service) DriftCheck(ctx context.Context) ([]DriftReport, error) {
	ids, err := s.repo.InvestorsWithPortfolios(ctx)
	if err != nil {
		return nil, err
	}

	var reports []DriftReport
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		inv, err := s.investor(ctx, id)
		if err != nil {
			return reports, fmt.Errorf("failed to load investor %d: %w", id, err)
		}
		set, err := s.recommendFor(ctx, inv)
		if err != nil {
			return reports, fmt.Errorf("failed to recommend for investor %d: %w", id, err)
		}
		p, err := s.repo.LatestPortfolio(ctx, id)
		if err != nil {
			return reports, fmt.Errorf("failed to load portfolio of investor %d: %w", id, err)
		}

		saved, recommended := holdingsOf(p), set.Recommendations.Holdings()
		if models.EqualHoldings(saved, recommended) {
			continue
		}
		s.log.WithFields(logrus.Fields{"investor_id": id, "portfolio_id": p.ID}).
			Info("Saved portfolio drifted from recommendations")
		reports = append(reports, DriftReport{
			InvestorID:  id,
			PortfolioID: p.ID,
			Saved:       saved,
			Recommended: recommended,
		})
	}
	return reports, nil
}
