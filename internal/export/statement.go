// Package export renders saved portfolios as XML statements.
package export

import (
	"fmt"
	"time"

	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
)

const rootTag = "portfolioStatement"

// Summary is what ReadStatement extracts from a statement document.
type Summary struct {
	InvestorName  string
	PortfolioID   int64
	PortfolioName string
	GeneratedAt   string
	Funds         []models.PortfolioFund
	Total         decimal.Decimal
}

// Statement builds the XML statement of a portfolio.
func Statement(inv *models.Investor, view *models.PortfolioView, generatedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(rootTag)
	root.CreateAttr("generated", generatedAt.UTC().Format(time.RFC3339))

	investor := root.CreateElement("investor")
	investor.CreateAttr("id", fmt.Sprintf("%d", inv.ID))
	investor.CreateAttr("email", inv.Email)
	investor.SetText(inv.Name)

	portfolio := root.CreateElement("portfolio")
	portfolio.CreateAttr("id", fmt.Sprintf("%d", view.PortfolioID))
	portfolio.CreateAttr("name", view.PortfolioName)
	portfolio.CreateAttr("created", view.CreatedAt)

	total := decimal.Zero
	for _, f := range view.Funds {
		fund := portfolio.CreateElement("fund")
		fund.CreateAttr("assetClass", f.AssetClass)
		fund.CreateAttr("expectedReturn", decimal.NewFromFloat(f.ExpectedReturn).StringFixed(2))
		fund.CreateElement("name").SetText(f.FundName)
		amount := decimal.NewFromFloat(f.Amount)
		fund.CreateElement("amount").SetText(amount.StringFixed(2))
		total = total.Add(amount)
	}
	root.CreateElement("total").SetText(total.StringFixed(2))

	doc.Indent(2)
	return doc
}

// ReadStatement parses a statement produced by Statement.
func ReadStatement(raw []byte) (*Summary, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %v", err)
	}

	root := doc.SelectElement(rootTag)
	if root == nil {
		return nil, fmt.Errorf("no %s element found in XML", rootTag)
	}
	s := &Summary{GeneratedAt: root.SelectAttrValue("generated", "")}
	if inv := root.FindElement("./investor"); inv != nil {
		s.InvestorName = inv.Text()
	}

	portfolio := root.FindElement("./portfolio")
	if portfolio == nil {
		return nil, fmt.Errorf("portfolio element not found in XML")
	}
	s.PortfolioName = portfolio.SelectAttrValue("name", "")
	if _, err := fmt.Sscanf(portfolio.SelectAttrValue("id", ""), "%d", &s.PortfolioID); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio id: %v", err)
	}

	for _, el := range portfolio.FindElements("./fund") {
		f := models.PortfolioFund{AssetClass: el.SelectAttrValue("assetClass", "")}
		if name := el.FindElement("./name"); name != nil {
			f.FundName = name.Text()
		}
		amount := el.FindElement("./amount")
		if amount == nil {
			return nil, fmt.Errorf("amount element not found for fund %q", f.FundName)
		}
		if _, err := fmt.Sscanf(amount.Text(), "%f", &f.Amount); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %v", err)
		}
		if _, err := fmt.Sscanf(el.SelectAttrValue("expectedReturn", "0"), "%f", &f.ExpectedReturn); err != nil {
			return nil, fmt.Errorf("failed to parse expected return: %v", err)
		}
		s.Funds = append(s.Funds, f)
	}

	totalEl := root.FindElement("./total")
	if totalEl == nil {
		return nil, fmt.Errorf("total element not found in XML")
	}
	total, err := decimal.NewFromString(totalEl.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse total: %v", err)
	}
	s.Total = total
	return s, nil
}
