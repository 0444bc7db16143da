package models

import "fmt"

// RecommendationSet is the full advisory answer for one investor.
type RecommendationSet struct {
	InvestorProfile   InvestorProfile   `json:"investor_profile"`
	RiskAssessment    RiskAssessment    `json:"risk_assessment"`
	AssetAllocation   AllocationPlan    `json:"asset_allocation"`
	FinancialAnalysis FinancialAnalysis `json:"financial_analysis"`
	Recommendations   Recommendations   `json:"recommendations"`
}

// InvestorProfile echoes the investor attributes the advice was based on.
type InvestorProfile struct {
	Name              string `json:"name"`
	Age               int    `json:"age"`
	EducationLevel    string `json:"education_level"`
	OccupationType    string `json:"occupation_type"`
	AnnualIncomeRange string `json:"annual_income_range"`
	EquityExperience  string `json:"equity_experience"`
	InvestmentHorizon string `json:"investment_horizon"`
	FinancialGoals    string `json:"financial_goals"`
}

// RiskAssessment holds the scores and the resulting category.
type RiskAssessment struct {
	RiskScore        int    `json:"risk_score"`
	DemographicScore int    `json:"demographic_score"`
	CombinedScore    int    `json:"combined_score"`
	RiskCategory     string `json:"risk_category"`
	RiskCategoryCode string `json:"risk_category_code"`
	RiskTolerance    string `json:"risk_tolerance"`
}

// AllocationPlan splits the investment amount across asset classes.
type AllocationPlan struct {
	TotalInvestment float64            `json:"total_investment"`
	Strategy        map[string]float64 `json:"strategy"`
	Amounts         map[string]float64 `json:"amounts"`
}

// FinancialAnalysis is a short health check of the investor's finances.
type FinancialAnalysis struct {
	MonthlyIncome     float64  `json:"monthly_income"`
	MonthlyExpenses   float64  `json:"monthly_expenses"`
	MonthlySurplus    float64  `json:"monthly_surplus"`
	NetWorth          float64  `json:"net_worth"`
	DebtToIncomeRatio float64  `json:"debt_to_income_ratio"`
	EmergencyFund     float64  `json:"emergency_fund"`
	FinancialHealth   string   `json:"financial_health"`
	HealthWarnings    []string `json:"health_warnings"`
}

// Recommendation is a fund suggested for one asset class.
type Recommendation struct {
	AssetClass            string  `json:"asset_class"`
	FundName              string  `json:"fund_name"`
	RecommendedInvestment float64 `json:"recommended_investment"`
	ExpectedReturn        float64 `json:"expected_return"`
}

// Recommendations is an ordered list of fund suggestions.
type Recommendations []Recommendation

// Holdings returns the sorted {fund_name, amount} pairs the list would save.
func (rs Recommendations) Holdings() []Holding {
	h := make([]Holding, 0, len(rs))
	for _, r := range rs {
		h = append(h, NewHolding(r.FundName, r.RecommendedInvestment))
	}
	SortHoldings(h)
	return h
}

// FundInputs converts the list into the lines of a save request, keeping
// the recommendation order.
func (rs Recommendations) FundInputs() []FundInput {
	funds := make([]FundInput, 0, len(rs))
	for _, r := range rs {
		funds = append(funds, FundInput{
			FundName:       r.FundName,
			Amount:         r.RecommendedInvestment,
			ExpectedReturn: r.ExpectedReturn,
		})
	}
	return funds
}

// Validate rejects sets whose shape would leave gaps in the rendered view.
func (s *RecommendationSet) Validate() error {
	if s.InvestorProfile.Name == "" {
		return fmt.Errorf("investor_profile.name is missing")
	}
	if s.RiskAssessment.RiskCategory == "" {
		return fmt.Errorf("risk_assessment.risk_category is missing")
	}
	if s.AssetAllocation.Strategy == nil {
		return fmt.Errorf("asset_allocation.strategy is missing")
	}
	for i, r := range s.Recommendations {
		if r.FundName == "" {
			return fmt.Errorf("recommendation %d has no fund_name", i)
		}
		if r.RecommendedInvestment < 0 {
			return fmt.Errorf("recommendation %q has a negative amount", r.FundName)
		}
	}
	return nil
}

// ErrorResponse is the body of every non-2xx API answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is the body of a successful write without other payload.
type MessageResponse struct {
	Message string `json:"message"`
}
