// Package view maps the controller state to a tree of headings, fields and
// tables. Building the tree is pure; the web templates and the terminal
// renderer only walk it.
package view

import (
	"fmt"
	"sort"

	"github.com/Dan9191/fund-advisor/internal/advisor"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/shopspring/decimal"
)

// Field is a labelled value, e.g. "Portfolio Name: Growth".
type Field struct {
	Label string
	Value string
}

// Row is a table row. Strong rows are rendered in bold.
type Row struct {
	Cells  []string
	Strong bool
}

// Total is the footer of a money table.
type Total struct {
	Label string
	Value string
	// Column is the index of the cell the value is aligned under.
	Column int
}

// Table is a titled grid.
type Table struct {
	Title  string
	Header []string
	Rows   []Row
	Total  *Total
	// Notice replaces the grid when there are no rows to show.
	Notice string
}

// Content is the body of a card.
type Content struct {
	Heading string
	Fields  []Field
	Tables  []Table
}

// Card is the rendered form of an investor card.
type Card struct {
	ID      int64
	Name    string
	Details []Field
	Banner  advisor.Banner
	// Kind is one of the advisor.Content names.
	Kind        string
	Text        string
	Body        *Content
	SaveEnabled bool
}

// Page is the whole investor list.
type Page struct {
	ListError string
	Cards     []Card
}

// Page builds the view of a session snapshot.
func (f *Formatter) Page(st advisor.State) Page {
	p := Page{ListError: st.ListError, Cards: make([]Card, 0, len(st.Cards))}
	for _, c := range st.Cards {
		p.Cards = append(p.Cards, f.Card(c))
	}
	return p
}

// Card builds the view of one investor card.
func (f *Formatter) Card(c advisor.Card) Card {
	inv := c.Investor
	v := Card{
		ID:   inv.ID,
		Name: inv.Name,
		Details: []Field{
			{Label: "Email", Value: inv.Email},
			{Label: "Risk Tolerance", Value: inv.RiskTolerance},
			{Label: "Risk Category", Value: fmt.Sprintf("%s (%s)", inv.RiskCategory, inv.RiskCategoryCode)},
		},
		Banner:      c.Banner,
		Kind:        c.Content.String(),
		Text:        c.Text,
		SaveEnabled: c.SaveEnabled,
	}
	switch {
	case c.Content == advisor.ContentRecommendations && c.Recommendations != nil:
		body := f.Recommendations(c.Recommendations)
		v.Body = &body
	case c.Content == advisor.ContentPortfolio && c.Portfolio != nil:
		body := f.Portfolio(c.Portfolio)
		v.Body = &body
	}
	return v
}

// Recommendations builds the analysis of a recommendation set: the risk
// profile, the asset allocation and the suggested funds.
func (f *Formatter) Recommendations(set *models.RecommendationSet) Content {
	ra := set.RiskAssessment
	risk := Table{
		Title:  "Risk Profile",
		Header: []string{"Metric", "Value"},
		Rows: []Row{
			{Cells: []string{"Risk Score", fmt.Sprint(ra.RiskScore)}},
			{Cells: []string{"Demographic Score", fmt.Sprint(ra.DemographicScore)}},
			{Cells: []string{"Risk Category", fmt.Sprintf("%s (%s)", ra.RiskCategory, ra.RiskCategoryCode)}},
			{Cells: []string{"Final Risk Tolerance", ra.RiskTolerance}, Strong: true},
		},
	}

	plan := set.AssetAllocation
	alloc := Table{
		Title:  fmt.Sprintf("Recommended Asset Allocation (Total Investment: %s)", f.Money(plan.TotalInvestment)),
		Header: []string{"Asset Class", "Allocation (%)", "Amount (" + f.symbol + ")"},
	}
	for _, class := range strategyOrder(plan.Strategy) {
		alloc.Rows = append(alloc.Rows, Row{Cells: []string{
			f.AssetClass(class),
			f.Percent(plan.Strategy[class]),
			f.Money(plan.Amounts[class]),
		}})
	}

	funds := Table{
		Title:  "Fund Recommendations",
		Header: []string{"Asset Class", "Fund Name", "Amount (" + f.symbol + ")", "Return (%)"},
	}
	if len(set.Recommendations) == 0 {
		funds.Header = nil
		funds.Notice = advisor.MsgNoSuitableFunds
	} else {
		for _, r := range set.Recommendations {
			funds.Rows = append(funds.Rows, Row{Cells: []string{
				f.AssetClass(r.AssetClass),
				r.FundName,
				f.Money(r.RecommendedInvestment),
				Number(r.ExpectedReturn),
			}})
		}
		funds.Total = &Total{
			Label:  "Total Recommended Investment:",
			Value:  f.MoneyDecimal(RecommendationTotal(set.Recommendations)),
			Column: 2,
		}
	}

	return Content{
		Heading: "Comprehensive Analysis for " + set.InvestorProfile.Name,
		Tables:  []Table{risk, alloc, funds},
	}
}

// Portfolio builds the view of a saved portfolio.
func (f *Formatter) Portfolio(p *models.PortfolioView) Content {
	funds := Table{
		Title:  "Saved Funds",
		Header: []string{"Asset Class", "Fund Name", "Amount (" + f.symbol + ")", "Expected Return (%)"},
		Total: &Total{
			Label:  "Total Portfolio Value:",
			Value:  f.MoneyDecimal(PortfolioTotal(p)),
			Column: 2,
		},
	}
	for _, fund := range p.Funds {
		funds.Rows = append(funds.Rows, Row{Cells: []string{
			f.AssetClass(fund.AssetClass),
			fund.FundName,
			f.Money(fund.Amount),
			Number(fund.ExpectedReturn),
		}})
	}
	return Content{
		Heading: "Portfolio for " + p.InvestorName,
		Fields: []Field{
			{Label: "Portfolio Name", Value: p.PortfolioName},
			{Label: "Created On", Value: p.CreatedAt},
		},
		Tables: []Table{funds},
	}
}

// RecommendationTotal sums the recommended amounts. The total reported by
// the server is not used.
func RecommendationTotal(rs models.Recommendations) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rs {
		total = total.Add(decimal.NewFromFloat(r.RecommendedInvestment))
	}
	return total
}

// PortfolioTotal sums the fund amounts of a portfolio.
func PortfolioTotal(p *models.PortfolioView) decimal.Decimal {
	total := decimal.Zero
	for _, fund := range p.Funds {
		total = total.Add(decimal.NewFromFloat(fund.Amount))
	}
	return total
}

// strategyOrder lists asset classes by descending weight, then by id.
func strategyOrder(strategy map[string]float64) []string {
	classes := make([]string, 0, len(strategy))
	for class := range strategy {
		classes = append(classes, class)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := strategy[classes[i]], strategy[classes[j]]
		if a != b {
			return a > b
		}
		return classes[i] < classes[j]
	})
	return classes
}
