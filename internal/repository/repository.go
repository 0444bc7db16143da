package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/models"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when an investor email is already registered.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// Repository provides database operations
type Repository struct {
	db     *sql.DB
	driver string
}

// Open opens a database for the configured driver: "sqlite" or "postgres".
func Open(driver, conn string) (*sql.DB, error) {
	db, err := sql.Open(driver, conn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		// one connection keeps in-memory databases shared and serializes writers
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, driver: driver}
}

// Migrate creates the schema if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	idType, floatType := "INTEGER PRIMARY KEY AUTOINCREMENT", "REAL"
	if r.driver == "postgres" {
		idType, floatType = "BIGSERIAL PRIMARY KEY", "DOUBLE PRECISION"
	}
	rep := strings.NewReplacer("{{id}}", idType, "{{float}}", floatType)
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, rep.Replace(stmt)); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS fund_master (
		id              {{id}},
		fund_name       TEXT NOT NULL UNIQUE,
		asset_class     TEXT NOT NULL,
		category        TEXT,
		expected_return {{float}} NOT NULL,
		risk_level      TEXT,
		min_investment  {{float}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS asset_allocation (
		id           {{id}},
		risk_profile TEXT NOT NULL,
		asset_class  TEXT NOT NULL,
		percentage   {{float}} NOT NULL,
		UNIQUE (risk_profile, asset_class)
	)`,
	`CREATE TABLE IF NOT EXISTS investors (
		id                   {{id}},
		name                 TEXT NOT NULL,
		email                TEXT NOT NULL UNIQUE,
		age                  INTEGER NOT NULL,
		education_level      TEXT NOT NULL,
		occupation_type      TEXT NOT NULL,
		annual_income_range  TEXT NOT NULL,
		monthly_income       {{float}} NOT NULL,
		monthly_expenses     {{float}} NOT NULL,
		existing_assets      {{float}} NOT NULL,
		existing_liabilities {{float}} NOT NULL,
		emergency_fund       {{float}} NOT NULL,
		investment_amount    {{float}} NOT NULL,
		investment_horizon   TEXT NOT NULL,
		required_return      {{float}} NOT NULL,
		equity_experience    TEXT NOT NULL,
		financial_goals      TEXT NOT NULL,
		risk_answers         TEXT NOT NULL,
		risk_q1_reason       TEXT,
		risk_q8_reason       TEXT,
		profile_answers      TEXT NOT NULL,
		risk_score           INTEGER NOT NULL,
		profile_score        INTEGER NOT NULL,
		combined_score       INTEGER NOT NULL,
		risk_tolerance       TEXT NOT NULL,
		created_at           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS portfolios (
		id          {{id}},
		investor_id BIGINT NOT NULL REFERENCES investors(id),
		name        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_portfolios_investor ON portfolios(investor_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS funds (
		id              {{id}},
		portfolio_id    BIGINT NOT NULL REFERENCES portfolios(id),
		fund_name       TEXT NOT NULL,
		amount          {{float}} NOT NULL,
		expected_return {{float}} NOT NULL
	)`,
}

// FundExists reports whether a fund with the given name is in the master list.
func (r *Repository) FundExists(ctx context.Context, fundName string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fund_master WHERE fund_name = $1`, fundName).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check fund: %w", err)
	}
	return n > 0, nil
}

// CreateFund adds a fund to the master list.
func (r *Repository) CreateFund(ctx context.Context, f *models.FundMaster) error {
	query := `
		INSERT INTO fund_master (fund_name, asset_class, category, expected_return, risk_level, min_investment)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, f.FundName, f.AssetClass, f.Category, f.ExpectedReturn, f.RiskLevel, f.MinInvestment).
		Scan(&f.ID)
	if err != nil {
		return fmt.Errorf("failed to create fund: %w", err)
	}
	return nil
}

// FundsByAssetClass lists the master funds of an asset class.
func (r *Repository) FundsByAssetClass(ctx context.Context, assetClass string) ([]models.FundMaster, error) {
	query := `
		SELECT id, fund_name, asset_class, COALESCE(category, ''), expected_return, COALESCE(risk_level, ''), min_investment
		FROM fund_master
		WHERE asset_class = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, assetClass)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []models.FundMaster
	for rows.Next() {
		var f models.FundMaster
		if err := rows.Scan(&f.ID, &f.FundName, &f.AssetClass, &f.Category, &f.ExpectedReturn, &f.RiskLevel, &f.MinInvestment); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// AssetClassOf returns the asset class of a master fund, or ErrNotFound.
func (r *Repository) AssetClassOf(ctx context.Context, fundName string) (string, error) {
	var class string
	err := r.db.QueryRowContext(ctx, `SELECT asset_class FROM fund_master WHERE fund_name = $1`, fundName).Scan(&class)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find fund: %w", err)
	}
	return class, nil
}

// AllocationExists reports whether the matrix has a row for the pair.
func (r *Repository) AllocationExists(ctx context.Context, riskProfile, assetClass string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM asset_allocation WHERE risk_profile = $1 AND asset_class = $2`,
		riskProfile, assetClass).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check allocation: %w", err)
	}
	return n > 0, nil
}

// CreateAllocation adds a row to the allocation matrix.
func (r *Repository) CreateAllocation(ctx context.Context, a *models.AssetAllocation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO asset_allocation (risk_profile, asset_class, percentage) VALUES ($1, $2, $3)`,
		a.RiskProfile, a.AssetClass, a.Percentage)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

// AllocationsFor returns the allocation matrix rows of a risk profile.
func (r *Repository) AllocationsFor(ctx context.Context, riskProfile string) ([]models.AssetAllocation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT risk_profile, asset_class, percentage FROM asset_allocation WHERE risk_profile = $1 ORDER BY id`,
		riskProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var out []models.AssetAllocation
	for rows.Next() {
		var a models.AssetAllocation
		if err := rows.Scan(&a.RiskProfile, &a.AssetClass, &a.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
