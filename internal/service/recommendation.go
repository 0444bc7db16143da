package service

import (
	"context"

	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/shopspring/decimal"
)

const fallbackProfile = "Conservative"

// Recommend builds the risk assessment, allocation and fund picks for an
// investor.
func (s *Service) Recommend(ctx context.Context, investorID int64) (*models.RecommendationSet, error) {
	inv, err := s.investor(ctx, investorID)
	if err != nil {
		return nil, err
	}
	return s.recommendFor(ctx, inv)
}

func (s *Service) recommendFor(ctx context.Context, inv *models.Investor) (*models.RecommendationSet, error) {
	allocations, err := s.repo.AllocationsFor(ctx, inv.RiskTolerance)
	if err != nil {
		return nil, err
	}
	if len(allocations) == 0 {
		if allocations, err = s.repo.AllocationsFor(ctx, fallbackProfile); err != nil {
			return nil, err
		}
	}

	plan := models.AllocationPlan{
		TotalInvestment: inv.InvestmentAmount,
		Strategy:        make(map[string]float64, len(allocations)),
		Amounts:         make(map[string]float64, len(allocations)),
	}
	recs := models.Recommendations{}
	for _, a := range allocations {
		amount := decimal.NewFromFloat(inv.InvestmentAmount).
			Mul(decimal.NewFromFloat(a.Percentage)).
			Div(decimal.NewFromInt(100))
		rounded := amount.Round(2).InexactFloat64()
		plan.Strategy[a.AssetClass] = a.Percentage
		plan.Amounts[a.AssetClass] = rounded

		if !amount.IsPositive() {
			continue
		}
		funds, err := s.repo.FundsByAssetClass(ctx, a.AssetClass)
		if err != nil {
			return nil, err
		}
		best, ok := pickFund(funds, amount.InexactFloat64())
		if !ok {
			continue
		}
		recs = append(recs, models.Recommendation{
			AssetClass:            a.AssetClass,
			FundName:              best.FundName,
			RecommendedInvestment: rounded,
			ExpectedReturn:        best.ExpectedReturn,
		})
	}

	demo := demographicOf(inv)
	cat := categoryOf(inv)
	set := &models.RecommendationSet{
		InvestorProfile: models.InvestorProfile{
			Name:              inv.Name,
			Age:               inv.Age,
			EducationLevel:    inv.EducationLevel,
			OccupationType:    inv.OccupationType,
			AnnualIncomeRange: inv.AnnualIncomeRange,
			EquityExperience:  inv.EquityExperience,
			InvestmentHorizon: inv.InvestmentHorizon,
			FinancialGoals:    inv.FinancialGoals,
		},
		RiskAssessment: models.RiskAssessment{
			RiskScore:        inv.RiskScore,
			DemographicScore: demo,
			CombinedScore:    inv.RiskScore + demo,
			RiskCategory:     cat.Name,
			RiskCategoryCode: cat.Code,
			RiskTolerance:    inv.RiskTolerance,
		},
		AssetAllocation:   plan,
		FinancialAnalysis: analyze(inv),
		Recommendations:   recs,
	}
	return set, nil
}

// pickFund returns the affordable fund with the highest expected return,
// or the fund with the lowest minimum investment when none is affordable.
func pickFund(funds []models.FundMaster, amount float64) (models.FundMaster, bool) {
	if len(funds) == 0 {
		return models.FundMaster{}, false
	}
	var best *models.FundMaster
	for i := range funds {
		f := &funds[i]
		if f.MinInvestment > amount {
			continue
		}
		if best == nil || f.ExpectedReturn > best.ExpectedReturn {
			best = f
		}
	}
	if best != nil {
		return *best, true
	}
	cheapest := &funds[0]
	for i := range funds[1:] {
		if f := &funds[i+1]; f.MinInvestment < cheapest.MinInvestment {
			cheapest = f
		}
	}
	return *cheapest, true
}

func analyze(inv *models.Investor) models.FinancialAnalysis {
	fa := models.FinancialAnalysis{
		MonthlyIncome:   inv.MonthlyIncome,
		MonthlyExpenses: inv.MonthlyExpenses,
		MonthlySurplus:  inv.MonthlyIncome - inv.MonthlyExpenses,
		NetWorth:        inv.ExistingAssets - inv.ExistingLiabilities,
		EmergencyFund:   inv.EmergencyFund,
		FinancialHealth: "Good",
		HealthWarnings:  []string{},
	}
	ratio := 0.0
	if inv.MonthlyIncome > 0 {
		ratio = inv.ExistingLiabilities / inv.MonthlyIncome
	}
	fa.DebtToIncomeRatio = decimal.NewFromFloat(ratio * 100).Round(2).InexactFloat64()

	if ratio > 0.4 {
		fa.FinancialHealth = "Needs Attention"
		fa.HealthWarnings = append(fa.HealthWarnings, "High debt-to-income ratio. Consider reducing debt before investing.")
	}
	if inv.EmergencyFund < inv.MonthlyExpenses*6 {
		fa.FinancialHealth = "Needs Attention"
		fa.HealthWarnings = append(fa.HealthWarnings, "Insufficient emergency fund. Maintain 6 months of expenses as emergency fund.")
	}
	if fa.MonthlySurplus < 0 {
		fa.FinancialHealth = "Poor"
		fa.HealthWarnings = append(fa.HealthWarnings, "Monthly expenses exceed income. Focus on budgeting before investing.")
	}
	return fa
}
