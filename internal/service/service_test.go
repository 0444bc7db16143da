package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/fund-advisor/internal/config"
	"github.com/Dan9191/fund-advisor/internal/events"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/repository"
	"github.com/Dan9191/fund-advisor/internal/seed"
	"github.com/Dan9191/fund-advisor/internal/utils"
	"github.com/sirupsen/logrus"
)

var fixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	events []*events.PortfolioSaved
}

func (p *recordingPublisher) PublishPortfolioSaved(_ context.Context, evt *events.PortfolioSaved) error {
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMailer struct {
	sent int
	err  error
}

func (m *recordingMailer) SendPortfolioSaved(*models.Investor, *models.Portfolio) error {
	m.sent++
	return m.err
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := repository.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx := context.Background()
	repo := repository.NewRepository(db, "sqlite")
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := seed.Populate(ctx, repo, log); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := &config.Config{FingerprintSecret: "test-secret"}
	return NewService(repo, log, cfg).WithClock(func() time.Time { return fixedNow })
}

func moderateRequest(email string) *models.InvestorRequest {
	return &models.InvestorRequest{
		Name:                "Asha Rao",
		Email:               email,
		Age:                 34,
		EducationLevel:      "Graduate",
		OccupationType:      "Salaried – Private sector",
		AnnualIncomeRange:   "Between Rs 5 – 10 lacs",
		MonthlyIncome:       100000,
		MonthlyExpenses:     40000,
		ExistingAssets:      500000,
		ExistingLiabilities: 20000,
		EmergencyFund:       300000,
		InvestmentAmount:    100000,
		InvestmentHorizon:   "5-7 years",
		RequiredReturn:      12,
		EquityExperience:    "None",
		FinancialGoals:      "Retirement",
		RiskQ1:              "C", RiskQ2: "C", RiskQ3: "C", RiskQ4: "C", RiskQ5: "C", RiskQ6: "C",
		RiskQ7: "B", RiskQ8: "B", RiskQ9: "B", RiskQ10: "B", RiskQ11: "B", RiskQ12: "B",
		ProfileQ1: "A", ProfileQ2: "B", ProfileQ3: "C", ProfileQ4: "D", ProfileQ5: "A", ProfileQ6: "A", ProfileQ7: "A",
	}
}

func TestRegisterInvestor(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	inv, err := s.RegisterInvestor(ctx, moderateRequest("asha@example.com"))
	if err != nil {
		t.Fatalf("RegisterInvestor: %v", err)
	}
	if inv.ID == 0 {
		t.Error("expected an id")
	}
	if inv.RiskScore != 300 || inv.RiskTolerance != "Moderate" {
		t.Errorf("got score %d tolerance %q", inv.RiskScore, inv.RiskTolerance)
	}
	if inv.CreatedAt != "2026-10-19 09:30:00" {
		t.Errorf("CreatedAt = %q", inv.CreatedAt)
	}

	_, err = s.RegisterInvestor(ctx, moderateRequest("asha@example.com"))
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate email: got %v", err)
	}

	bad := moderateRequest("other@example.com")
	bad.RiskQ3 = "E"
	_, err = s.RegisterInvestor(ctx, bad)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected validation error, got %v", err)
	}

	list, err := s.ListInvestors(ctx)
	if err != nil {
		t.Fatalf("ListInvestors: %v", err)
	}
	if len(list) != 1 || list[0].RiskCategory != "Moderate Investor" || list[0].RiskCategoryCode != "MI" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestRecommend(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	inv, err := s.RegisterInvestor(ctx, moderateRequest("asha@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	set, err := s.Recommend(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	want := []models.Recommendation{
		{AssetClass: "equity", FundName: "Small Cap Equity Fund", RecommendedInvestment: 50000, ExpectedReturn: 16},
		{AssetClass: "hybrid_baf", FundName: "Aggressive Hybrid Fund", RecommendedInvestment: 25000, ExpectedReturn: 11},
		{AssetClass: "debt_arbitrage", FundName: "Corporate Bond Fund", RecommendedInvestment: 15000, ExpectedReturn: 7},
		{AssetClass: "international_equity", FundName: "US Equity Fund", RecommendedInvestment: 5000, ExpectedReturn: 11},
		{AssetClass: "gold", FundName: "Gold ETF", RecommendedInvestment: 5000, ExpectedReturn: 7},
	}
	if len(set.Recommendations) != len(want) {
		t.Fatalf("got %d recommendations, want %d", len(set.Recommendations), len(want))
	}
	for i := range want {
		if set.Recommendations[i] != want[i] {
			t.Errorf("recommendation %d = %+v, want %+v", i, set.Recommendations[i], want[i])
		}
	}
	if set.AssetAllocation.Strategy["equity"] != 50 || set.AssetAllocation.Amounts["gold"] != 5000 {
		t.Errorf("unexpected allocation %+v", set.AssetAllocation)
	}
	if set.RiskAssessment.CombinedScore != 305 || set.RiskAssessment.DemographicScore != 5 {
		t.Errorf("unexpected assessment %+v", set.RiskAssessment)
	}
	if set.FinancialAnalysis.FinancialHealth != "Good" || set.FinancialAnalysis.DebtToIncomeRatio != 20 {
		t.Errorf("unexpected analysis %+v", set.FinancialAnalysis)
	}
	if err := set.Validate(); err != nil {
		t.Errorf("set does not validate: %v", err)
	}

	if _, err := s.Recommend(ctx, 999); !errors.Is(err, ErrInvestorNotFound) {
		t.Errorf("unknown investor: got %v", err)
	}
}

func TestPickFund(t *testing.T) {
	funds := []models.FundMaster{
		{FundName: "A", ExpectedReturn: 10, MinInvestment: 5000},
		{FundName: "B", ExpectedReturn: 12, MinInvestment: 3000},
		{FundName: "C", ExpectedReturn: 14, MinInvestment: 2000},
	}
	if f, _ := pickFund(funds, 4000); f.FundName != "C" {
		t.Errorf("affordable pick = %s, want C", f.FundName)
	}
	if f, _ := pickFund(funds, 1000); f.FundName != "C" {
		t.Errorf("fallback pick = %s, want cheapest C", f.FundName)
	}
	if _, ok := pickFund(nil, 1000); ok {
		t.Error("expected no pick from an empty list")
	}
}

func TestAnalyzeWarnings(t *testing.T) {
	inv := &models.Investor{}
	inv.MonthlyIncome = 50000
	inv.MonthlyExpenses = 60000
	inv.ExistingLiabilities = 30000
	inv.EmergencyFund = 0

	fa := analyze(inv)
	if fa.FinancialHealth != "Poor" {
		t.Errorf("health = %q, want Poor", fa.FinancialHealth)
	}
	if len(fa.HealthWarnings) != 3 {
		t.Errorf("got %d warnings, want 3: %v", len(fa.HealthWarnings), fa.HealthWarnings)
	}
	if fa.DebtToIncomeRatio != 60 || fa.MonthlySurplus != -10000 {
		t.Errorf("unexpected numbers %+v", fa)
	}
}

func TestSavePortfolioPreconditions(t *testing.T) {
	s := newTestService(t)
	pub := &recordingPublisher{}
	mailer := &recordingMailer{err: errors.New("smtp down")}
	s.WithPublisher(pub).WithMailer(mailer)
	ctx := context.Background()

	inv, err := s.RegisterInvestor(ctx, moderateRequest("asha@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.LatestPortfolio(ctx, inv.ID); !errors.Is(err, ErrPortfolioNotFound) {
		t.Fatalf("expected no portfolio, got %v", err)
	}

	req := &models.SavePortfolioRequest{Funds: []models.FundInput{
		{FundName: "Large Cap Equity Fund", Amount: 60000, ExpectedReturn: 12},
		{FundName: "Liquid Fund", Amount: 40000, ExpectedReturn: 6},
	}}

	if _, _, err := s.SavePortfolio(ctx, inv.ID, req, Precondition{IfMatch: `"stale"`}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("If-Match without portfolio: got %v", err)
	}

	p, etag, err := s.SavePortfolio(ctx, inv.ID, req, Precondition{IfNoneMatch: "*"})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if p.Name != "Portfolio for 1 - 2026-10-19" {
		t.Errorf("default name = %q", p.Name)
	}
	if len(pub.events) != 1 || pub.events[0].Total != 100000 || pub.events[0].FundCount != 2 {
		t.Errorf("unexpected events %+v", pub.events)
	}
	if mailer.sent != 1 {
		t.Errorf("mailer called %d times", mailer.sent)
	}

	if _, _, err := s.SavePortfolio(ctx, inv.ID, req, Precondition{IfNoneMatch: "*"}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("If-None-Match with portfolio: got %v", err)
	}
	if _, _, err := s.SavePortfolio(ctx, inv.ID, req, Precondition{IfMatch: `"0000"`}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("stale If-Match: got %v", err)
	}

	view, fp, err := s.LatestPortfolio(ctx, inv.ID)
	if err != nil {
		t.Fatalf("LatestPortfolio: %v", err)
	}
	if fp != etag {
		t.Errorf("fingerprint %q differs from save result %q", fp, etag)
	}
	if view.InvestorName != "Asha Rao" || view.PortfolioID != p.ID || len(view.Funds) != 2 {
		t.Errorf("unexpected view %+v", view)
	}
	if view.Funds[0].AssetClass != "equity" || view.Funds[1].AssetClass != "debt_arbitrage" {
		t.Errorf("unexpected asset classes %+v", view.Funds)
	}

	req2 := &models.SavePortfolioRequest{Name: "Rebalanced", Funds: []models.FundInput{
		{FundName: "Private Fund", Amount: 100000, ExpectedReturn: 9},
	}}
	p2, _, err := s.SavePortfolio(ctx, inv.ID, req2, Precondition{IfMatch: utils.ETag(fp)})
	if err != nil {
		t.Fatalf("conditional save: %v", err)
	}
	view, _, err = s.LatestPortfolio(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if view.PortfolioID != p2.ID || view.PortfolioName != "Rebalanced" {
		t.Errorf("latest is %d %q, want %d", view.PortfolioID, view.PortfolioName, p2.ID)
	}
	if view.Funds[0].AssetClass != "N/A" {
		t.Errorf("unknown fund asset class = %q", view.Funds[0].AssetClass)
	}

	if _, _, err := s.SavePortfolio(ctx, inv.ID, &models.SavePortfolioRequest{}, Precondition{}); err == nil {
		t.Error("expected validation error for empty funds")
	}
	if _, _, err := s.SavePortfolio(ctx, 42, req, Precondition{}); !errors.Is(err, ErrInvestorNotFound) {
		t.Errorf("unknown investor: got %v", err)
	}
}

func TestDriftCheck(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	a, err := s.RegisterInvestor(ctx, moderateRequest("a@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.RegisterInvestor(ctx, moderateRequest("b@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	set, err := s.Recommend(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := s.SavePortfolio(ctx, a.ID, &models.SavePortfolioRequest{Funds: set.Recommendations.FundInputs()}, Precondition{}); err != nil {
		t.Fatal(err)
	}
	stale := &models.SavePortfolioRequest{Funds: []models.FundInput{{FundName: "Liquid Fund", Amount: 100000, ExpectedReturn: 6}}}
	if _, _, err := s.SavePortfolio(ctx, b.ID, stale, Precondition{}); err != nil {
		t.Fatal(err)
	}

	reports, err := s.DriftCheck(ctx)
	if err != nil {
		t.Fatalf("DriftCheck: %v", err)
	}
	if len(reports) != 1 || reports[0].InvestorID != b.ID {
		t.Fatalf("unexpected reports %+v", reports)
	}
	if len(reports[0].Saved) != 1 || len(reports[0].Recommended) != 5 {
		t.Errorf("unexpected holdings in %+v", reports[0])
	}
}
