package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/fund-advisor/internal/models"
)

// LatestPortfolio returns the most recent portfolio of an investor with its
// funds, or ErrNotFound.
func (r *Repository) LatestPortfolio(ctx context.Context, investorID int64) (*models.Portfolio, error) {
	return latestPortfolio(ctx, r.db, investorID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func latestPortfolio(ctx context.Context, q querier, investorID int64) (*models.Portfolio, error) {
	p := &models.Portfolio{}
	query := `
		SELECT id, investor_id, name, created_at
		FROM portfolios
		WHERE investor_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	err := q.QueryRowContext(ctx, query, investorID).Scan(&p.ID, &p.InvestorID, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find portfolio: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, portfolio_id, fund_name, amount, expected_return FROM funds WHERE portfolio_id = $1 ORDER BY id`,
		p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio funds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var f models.Fund
		if err := rows.Scan(&f.ID, &f.PortfolioID, &f.FundName, &f.Amount, &f.ExpectedReturn); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		p.Funds = append(p.Funds, f)
	}
	return p, rows.Err()
}

// CreatePortfolio stores a new portfolio and its funds in one transaction.
// check is called inside the transaction with the current latest portfolio
// (nil if none); a non-nil error from it aborts the write.
func (r *Repository) CreatePortfolio(ctx context.Context, p *models.Portfolio, check func(current *models.Portfolio) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if r.driver == "postgres" {
		// serialize concurrent saves of the same investor
		if _, err := tx.ExecContext(ctx, `SELECT id FROM investors WHERE id = $1 FOR UPDATE`, p.InvestorID); err != nil {
			return fmt.Errorf("failed to lock investor: %w", err)
		}
	}

	if check != nil {
		current, err := latestPortfolio(ctx, tx, p.InvestorID)
		if err != nil && err != ErrNotFound {
			return err
		}
		if err := check(current); err != nil {
			return err
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO portfolios (investor_id, name, created_at) VALUES ($1, $2, $3) RETURNING id`,
		p.InvestorID, p.Name, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	for i := range p.Funds {
		f := &p.Funds[i]
		f.PortfolioID = p.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO funds (portfolio_id, fund_name, amount, expected_return) VALUES ($1, $2, $3, $4) RETURNING id`,
			f.PortfolioID, f.FundName, f.Amount, f.ExpectedReturn).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("failed to create fund: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio: %w", err)
	}
	return nil
}

// InvestorsWithPortfolios lists the ids of investors that saved at least
// one portfolio.
func (r *Repository) InvestorsWithPortfolios(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT investor_id FROM portfolios ORDER BY investor_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio owners: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan investor id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
