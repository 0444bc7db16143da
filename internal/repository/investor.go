package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/models"
)

const investorColumns = `id, name, email, age, education_level, occupation_type, annual_income_range,
	monthly_income, monthly_expenses, existing_assets, existing_liabilities, emergency_fund,
	investment_amount, investment_horizon, required_return, equity_experience, financial_goals,
	risk_answers, COALESCE(risk_q1_reason, ''), COALESCE(risk_q8_reason, ''), profile_answers,
	risk_score, profile_score, combined_score, risk_tolerance, created_at`

// CreateInvestor stores a scored investor. It returns ErrDuplicateEmail if
// the email is taken.
func (r *Repository) CreateInvestor(ctx context.Context, inv *models.Investor) error {
	if _, err := r.FindInvestorByEmail(ctx, inv.Email); err == nil {
		return ErrDuplicateEmail
	} else if err != ErrNotFound {
		return err
	}

	query := `
		INSERT INTO investors (name, email, age, education_level, occupation_type, annual_income_range,
			monthly_income, monthly_expenses, existing_assets, existing_liabilities, emergency_fund,
			investment_amount, investment_horizon, required_return, equity_experience, financial_goals,
			risk_answers, risk_q1_reason, risk_q8_reason, profile_answers,
			risk_score, profile_score, combined_score, risk_tolerance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		inv.Name, inv.Email, inv.Age, inv.EducationLevel, inv.OccupationType, inv.AnnualIncomeRange,
		inv.MonthlyIncome, inv.MonthlyExpenses, inv.ExistingAssets, inv.ExistingLiabilities, inv.EmergencyFund,
		inv.InvestmentAmount, inv.InvestmentHorizon, inv.RequiredReturn, inv.EquityExperience, inv.FinancialGoals,
		strings.Join(inv.RiskAnswers(), ""), inv.RiskQ1Reason, inv.RiskQ8Reason, strings.Join(inv.ProfileAnswers(), ""),
		inv.RiskScore, inv.ProfileScore, inv.CombinedScore, inv.RiskTolerance, inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return fmt.Errorf("failed to create investor: %w", err)
	}
	return nil
}

// FindInvestorByEmail retrieves an investor by email
func (r *Repository) FindInvestorByEmail(ctx context.Context, email string) (*models.Investor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+investorColumns+` FROM investors WHERE email = $1`, email)
	return scanInvestor(row)
}

// GetInvestor retrieves an investor by id
func (r *Repository) GetInvestor(ctx context.Context, id int64) (*models.Investor, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+investorColumns+` FROM investors WHERE id = $1`, id)
	return scanInvestor(row)
}

// ListInvestors returns every investor in registration order.
func (r *Repository) ListInvestors(ctx context.Context) ([]models.Investor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+investorColumns+` FROM investors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list investors: %w", err)
	}
	defer rows.Close()

	var out []models.Investor
	for rows.Next() {
		inv, err := scanInvestor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvestor(s scanner) (*models.Investor, error) {
	inv := &models.Investor{}
	var riskAnswers, profileAnswers string
	err := s.Scan(&inv.ID, &inv.Name, &inv.Email, &inv.Age, &inv.EducationLevel, &inv.OccupationType, &inv.AnnualIncomeRange,
		&inv.MonthlyIncome, &inv.MonthlyExpenses, &inv.ExistingAssets, &inv.ExistingLiabilities, &inv.EmergencyFund,
		&inv.InvestmentAmount, &inv.InvestmentHorizon, &inv.RequiredReturn, &inv.EquityExperience, &inv.FinancialGoals,
		&riskAnswers, &inv.RiskQ1Reason, &inv.RiskQ8Reason, &profileAnswers,
		&inv.RiskScore, &inv.ProfileScore, &inv.CombinedScore, &inv.RiskTolerance, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan investor: %w", err)
	}
	setAnswers(inv, riskAnswers, profileAnswers)
	return inv, nil
}

func setAnswers(inv *models.Investor, risk, profile string) {
	r := padAnswers(risk, 12)
	inv.RiskQ1, inv.RiskQ2, inv.RiskQ3, inv.RiskQ4 = r[0], r[1], r[2], r[3]
	inv.RiskQ5, inv.RiskQ6, inv.RiskQ7, inv.RiskQ8 = r[4], r[5], r[6], r[7]
	inv.RiskQ9, inv.RiskQ10, inv.RiskQ11, inv.RiskQ12 = r[8], r[9], r[10], r[11]

	p := padAnswers(profile, 7)
	inv.ProfileQ1, inv.ProfileQ2, inv.ProfileQ3, inv.ProfileQ4 = p[0], p[1], p[2], p[3]
	inv.ProfileQ5, inv.ProfileQ6, inv.ProfileQ7 = p[4], p[5], p[6]
}

func padAnswers(s string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(s); i++ {
		out[i] = s[i : i+1]
	}
	return out
}
