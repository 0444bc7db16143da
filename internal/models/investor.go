package models

import (
	"fmt"
	"net/mail"
	"strings"
)

// InvestorRequest is the registration payload: demographics, finances and
// the answers to the risk and profile questionnaires.
type InvestorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Age   int    `json:"age"`

	EducationLevel    string `json:"education_level"`
	OccupationType    string `json:"occupation_type"`
	AnnualIncomeRange string `json:"annual_income_range"`

	MonthlyIncome       float64 `json:"monthly_income"`
	MonthlyExpenses     float64 `json:"monthly_expenses"`
	ExistingAssets      float64 `json:"existing_assets"`
	ExistingLiabilities float64 `json:"existing_liabilities"`
	EmergencyFund       float64 `json:"emergency_fund"`

	InvestmentAmount  float64 `json:"investment_amount"`
	InvestmentHorizon string  `json:"investment_horizon"`
	RequiredReturn    float64 `json:"required_return"`
	EquityExperience  string  `json:"equity_experience"`
	FinancialGoals    string  `json:"financial_goals"`

	RiskQ1       string `json:"risk_q1"`
	RiskQ1Reason string `json:"risk_q1_reason,omitempty"`
	RiskQ2       string `json:"risk_q2"`
	RiskQ3       string `json:"risk_q3"`
	RiskQ4       string `json:"risk_q4"`
	RiskQ5       string `json:"risk_q5"`
	RiskQ6       string `json:"risk_q6"`
	RiskQ7       string `json:"risk_q7"`
	RiskQ8       string `json:"risk_q8"`
	RiskQ8Reason string `json:"risk_q8_reason,omitempty"`
	RiskQ9       string `json:"risk_q9"`
	RiskQ10      string `json:"risk_q10"`
	RiskQ11      string `json:"risk_q11"`
	RiskQ12      string `json:"risk_q12"`

	ProfileQ1 string `json:"profile_q1"`
	ProfileQ2 string `json:"profile_q2"`
	ProfileQ3 string `json:"profile_q3"`
	ProfileQ4 string `json:"profile_q4"`
	ProfileQ5 string `json:"profile_q5"`
	ProfileQ6 string `json:"profile_q6"`
	ProfileQ7 string `json:"profile_q7"`
}

// RiskAnswers returns the twelve risk questionnaire answers in order.
func (r *InvestorRequest) RiskAnswers() []string {
	return []string{
		r.RiskQ1, r.RiskQ2, r.RiskQ3, r.RiskQ4, r.RiskQ5, r.RiskQ6,
		r.RiskQ7, r.RiskQ8, r.RiskQ9, r.RiskQ10, r.RiskQ11, r.RiskQ12,
	}
}

// ProfileAnswers returns the seven profile questionnaire answers in order.
func (r *InvestorRequest) ProfileAnswers() []string {
	return []string{
		r.ProfileQ1, r.ProfileQ2, r.ProfileQ3, r.ProfileQ4,
		r.ProfileQ5, r.ProfileQ6, r.ProfileQ7,
	}
}

// Validate checks the payload shape before anything is scored or stored.
func (r *InvestorRequest) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"name", r.Name},
		{"email", r.Email},
		{"education_level", r.EducationLevel},
		{"occupation_type", r.OccupationType},
		{"annual_income_range", r.AnnualIncomeRange},
		{"investment_horizon", r.InvestmentHorizon},
		{"equity_experience", r.EquityExperience},
		{"financial_goals", r.FinancialGoals},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("email is invalid: %s", r.Email)
	}
	if r.Age <= 0 {
		return fmt.Errorf("age must be positive")
	}
	amounts := []struct {
		name  string
		value float64
	}{
		{"monthly_income", r.MonthlyIncome},
		{"monthly_expenses", r.MonthlyExpenses},
		{"existing_assets", r.ExistingAssets},
		{"existing_liabilities", r.ExistingLiabilities},
		{"emergency_fund", r.EmergencyFund},
		{"investment_amount", r.InvestmentAmount},
	}
	for _, a := range amounts {
		if a.value < 0 {
			return fmt.Errorf("%s must not be negative", a.name)
		}
	}
	for i, answer := range r.RiskAnswers() {
		if !validAnswer(answer) {
			return fmt.Errorf("risk_q%d must be one of A, B, C, D", i+1)
		}
	}
	for i, answer := range r.ProfileAnswers() {
		if !validAnswer(answer) {
			return fmt.Errorf("profile_q%d must be one of A, B, C, D", i+1)
		}
	}
	return nil
}

func validAnswer(a string) bool {
	return a == "A" || a == "B" || a == "C" || a == "D"
}

// Investor is a registered investor together with the scores computed at
// registration time.
type Investor struct {
	ID int64 `json:"id"`
	InvestorRequest
	RiskScore     int    `json:"risk_score"`
	ProfileScore  int    `json:"profile_score"`
	CombinedScore int    `json:"combined_score"`
	RiskTolerance string `json:"risk_tolerance"`
	CreatedAt     string `json:"created_at"`
}

// InvestorSummary is an entry of the investor list.
type InvestorSummary struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Age              int    `json:"age"`
	RiskTolerance    string `json:"risk_tolerance"`
	RiskCategory     string `json:"risk_category"`
	RiskCategoryCode string `json:"risk_category_code"`
}

// Validate rejects list entries a card cannot be built from.
func (s *InvestorSummary) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("investor id must be positive, got %d", s.ID)
	}
	if s.Name == "" {
		return fmt.Errorf("investor %d has no name", s.ID)
	}
	return nil
}
