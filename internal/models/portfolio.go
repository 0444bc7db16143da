package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Portfolio is a saved set of fund allocations for an investor.
type Portfolio struct {
	ID         int64
	InvestorID int64
	Name       string
	CreatedAt  string
	Funds      []Fund
}

// Fund is one allocation of a saved portfolio.
type Fund struct {
	ID             int64
	PortfolioID    int64
	FundName       string
	Amount         float64
	ExpectedReturn float64
}

// PortfolioView is the API representation of the latest portfolio of an
// investor.
type PortfolioView struct {
	PortfolioID   int64           `json:"portfolio_id"`
	InvestorName  string          `json:"investor_name"`
	PortfolioName string          `json:"portfolio_name"`
	CreatedAt     string          `json:"created_at"`
	Funds         []PortfolioFund `json:"funds"`
}

// PortfolioFund is a fund line of a PortfolioView.
type PortfolioFund struct {
	FundName       string  `json:"fund_name"`
	AssetClass     string  `json:"asset_class"`
	Amount         float64 `json:"amount"`
	ExpectedReturn float64 `json:"expected_return"`
}

// Validate rejects payloads that are missing the fields a view needs.
func (p *PortfolioView) Validate() error {
	if p.Funds == nil {
		return fmt.Errorf("portfolio has no funds field")
	}
	for i, f := range p.Funds {
		if f.FundName == "" {
			return fmt.Errorf("portfolio fund %d has no fund_name", i)
		}
	}
	return nil
}

// Holdings returns the sorted {fund_name, amount} pairs of the portfolio.
func (p *PortfolioView) Holdings() []Holding {
	h := make([]Holding, 0, len(p.Funds))
	for _, f := range p.Funds {
		h = append(h, NewHolding(f.FundName, f.Amount))
	}
	SortHoldings(h)
	return h
}

// ErrNoFunds is returned for a save request without fund lines.
var ErrNoFunds = errors.New("No funds provided")

// SavePortfolioRequest is the full replacement payload for a portfolio.
type SavePortfolioRequest struct {
	Name  string      `json:"name"`
	Funds []FundInput `json:"funds"`
}

// FundInput is a fund line of a SavePortfolioRequest.
type FundInput struct {
	FundName       string  `json:"fund_name"`
	Amount         float64 `json:"amount"`
	ExpectedReturn float64 `json:"expected_return"`
}

// Validate checks the save payload.
func (r *SavePortfolioRequest) Validate() error {
	if len(r.Funds) == 0 {
		return ErrNoFunds
	}
	for i, f := range r.Funds {
		if f.FundName == "" {
			return fmt.Errorf("fund %d has no fund_name", i)
		}
		if f.Amount < 0 {
			return fmt.Errorf("fund %q has a negative amount", f.FundName)
		}
	}
	return nil
}

// Holdings returns the sorted {fund_name, amount} pairs of the request.
func (r *SavePortfolioRequest) Holdings() []Holding {
	h := make([]Holding, 0, len(r.Funds))
	for _, f := range r.Funds {
		h = append(h, NewHolding(f.FundName, f.Amount))
	}
	SortHoldings(h)
	return h
}

// SavePortfolioResponse is returned after a portfolio was written.
type SavePortfolioResponse struct {
	Message     string `json:"message"`
	PortfolioID int64  `json:"portfolio_id"`
}

// Holding is the part of a fund line that decides whether two portfolios
// are the same.
type Holding struct {
	FundName string          `json:"fund_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewHolding builds a Holding from a decoded JSON amount.
func NewHolding(name string, amount float64) Holding {
	return Holding{FundName: name, Amount: decimal.NewFromFloat(amount)}
}

// SortHoldings orders holdings by fund name, then by amount.
func SortHoldings(h []Holding) {
	sort.SliceStable(h, func(i, j int) bool {
		if h[i].FundName != h[j].FundName {
			return h[i].FundName < h[j].FundName
		}
		return h[i].Amount.LessThan(h[j].Amount)
	})
}

// EqualHoldings compares two sorted holding lists element by element.
func EqualHoldings(a, b []Holding) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].FundName != b[i].FundName || !a[i].Amount.Equal(b[i].Amount) {
			return false
		}
	}
	return true
}
