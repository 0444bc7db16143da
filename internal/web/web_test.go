package web

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/fund-advisor/internal/client"
	"github.com/Dan9191/fund-advisor/internal/models"
	"github.com/Dan9191/fund-advisor/internal/view"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type stubAPI struct {
	mu        sync.Mutex
	investors []models.InvestorSummary
	created   []*models.InvestorRequest
	saved     int
	createErr error
}

func (s *stubAPI) ListInvestors(ctx context.Context) ([]models.InvestorSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.InvestorSummary(nil), s.investors...), nil
}

func (s *stubAPI) CreateInvestor(ctx context.Context, req *models.InvestorRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created = append(s.created, req)
	s.investors = append(s.investors, models.InvestorSummary{ID: int64(len(s.investors) + 1), Name: req.Name, Email: req.Email})
	return "Investor created successfully", nil
}

func (s *stubAPI) Recommendations(ctx context.Context, id int64) (*models.RecommendationSet, error) {
	return &models.RecommendationSet{
		InvestorProfile: models.InvestorProfile{Name: "Asha <Rao>"},
		RiskAssessment:  models.RiskAssessment{RiskCategory: "Moderate Investor", RiskCategoryCode: "MI", RiskTolerance: "Moderate"},
		AssetAllocation: models.AllocationPlan{
			TotalInvestment: 100000,
			Strategy:        map[string]float64{"equity": 100},
			Amounts:         map[string]float64{"equity": 100000},
		},
		Recommendations: models.Recommendations{
			{AssetClass: "equity", FundName: "Small Cap Equity Fund", RecommendedInvestment: 100000, ExpectedReturn: 16},
		},
	}, nil
}

func (s *stubAPI) Portfolio(ctx context.Context, id int64) (*client.Portfolio, error) {
	return nil, &client.APIError{Status: http.StatusNotFound, Message: "No portfolio found for this investor."}
}

func (s *stubAPI) SavePortfolio(ctx context.Context, id int64, req *models.SavePortfolioRequest, cond client.Condition) (*models.SavePortfolioResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved++
	return &models.SavePortfolioResponse{Message: "Portfolio created successfully", PortfolioID: 41}, nil
}

func newTestServer(t *testing.T, api *stubAPI) (*Server, *httptest.Server, *http.Client) {
	t.Helper()
	f, err := view.NewFormatter("en-IN", "INR")
	if err != nil {
		t.Fatal(err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	srv, err := NewServer(api, f, log)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	r := mux.NewRouter()
	srv.Register(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	jar, _ := cookiejar.New(nil)
	return srv, ts, &http.Client{Jar: jar}
}

func get(t *testing.T, c *http.Client, u string) string {
	t.Helper()
	resp, err := c.Get(u)
	return body(t, resp, err)
}

func post(t *testing.T, c *http.Client, u string, form url.Values) string {
	t.Helper()
	resp, err := c.PostForm(u, form)
	return body(t, resp, err)
}

func body(t *testing.T, resp *http.Response, err error) string {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestDashboardFlow(t *testing.T) {
	api := &stubAPI{investors: []models.InvestorSummary{{ID: 1, Name: "Asha Rao", Email: "asha@example.com"}}}
	_, ts, c := newTestServer(t, api)

	page := get(t, c, ts.URL+"/")
	if !strings.Contains(page, `id="investor-1"`) {
		t.Fatalf("investor card missing:\n%s", page)
	}
	if !strings.Contains(page, `class="save-portfolio-btn" disabled`) {
		t.Error("save should start disabled")
	}

	page = post(t, c, ts.URL+"/ui/investors/1/save", nil)
	if !strings.Contains(page, "Please get the latest recommendations before saving.") {
		t.Error("save guard message missing")
	}

	page = post(t, c, ts.URL+"/ui/investors/1/recommendations", nil)
	for _, want := range []string{"Comprehensive Analysis for Asha &lt;Rao&gt;", "₹1,00,000", "Total Recommended Investment:"} {
		if !strings.Contains(page, want) {
			t.Errorf("page misses %q", want)
		}
	}
	if strings.Contains(page, `class="save-portfolio-btn" disabled`) {
		t.Error("save should be enabled after recommendations")
	}

	page = post(t, c, ts.URL+"/ui/investors/1/save", nil)
	if !strings.Contains(page, "Portfolio saved successfully! Portfolio ID: 41") {
		t.Errorf("save result missing:\n%s", page)
	}
	api.mu.Lock()
	saved := api.saved
	api.mu.Unlock()
	if saved != 1 {
		t.Errorf("saved %d times", saved)
	}

	resp, err := c.PostForm(ts.URL+"/ui/investors/99/portfolio", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown investor status = %d", resp.StatusCode)
	}
}

func TestSessionsAreSeparate(t *testing.T) {
	api := &stubAPI{investors: []models.InvestorSummary{{ID: 1, Name: "Asha Rao"}}}
	_, ts, c := newTestServer(t, api)
	get(t, c, ts.URL+"/")
	post(t, c, ts.URL+"/ui/investors/1/recommendations", nil)

	jar, _ := cookiejar.New(nil)
	other := &http.Client{Jar: jar}
	page := get(t, other, ts.URL+"/")
	if strings.Contains(page, "Comprehensive Analysis") {
		t.Error("second browser sees the first browser's recommendations")
	}
}

func registrationForm() url.Values {
	form := url.Values{
		"name":                {"Ravi Kumar"},
		"email":               {"ravi@example.com"},
		"age":                 {"34"},
		"education_level":     {"Graduate"},
		"occupation_type":     {"Business"},
		"annual_income_range": {"Above Rs 50 lacs"},
		"monthly_income":      {"150000"},
		"investment_amount":   {"100000"},
		"investment_horizon":  {"5+ years"},
		"equity_experience":   {"None"},
		"financial_goals":     {"Retirement"},
	}
	for _, q := range append(questionNames("risk_q", 12), questionNames("profile_q", 7)...) {
		form.Set(q, "B")
	}
	return form
}

func TestRegisterInvestor(t *testing.T) {
	api := &stubAPI{}
	_, ts, c := newTestServer(t, api)

	page := post(t, c, ts.URL+"/ui/investors", registrationForm())
	if !strings.Contains(page, `role="alert">Investor created successfully<`) {
		t.Errorf("success alert missing:\n%s", page)
	}
	if !strings.Contains(page, `id="investor-1"`) {
		t.Error("list was not reloaded")
	}
	if strings.Contains(page, `value="Ravi Kumar"`) {
		t.Error("form was not reset")
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.created) != 1 || api.created[0].Age != 34 || api.created[0].MonthlyIncome != 150000 {
		t.Errorf("unexpected payload %+v", api.created)
	}
}

func TestRegisterInvestorFailureKeepsForm(t *testing.T) {
	api := &stubAPI{createErr: &client.APIError{Status: http.StatusBadRequest, Message: "email already exists"}}
	_, ts, c := newTestServer(t, api)

	page := post(t, c, ts.URL+"/ui/investors", registrationForm())
	if !strings.Contains(page, `role="alert">Error: email already exists<`) {
		t.Errorf("error alert missing:\n%s", page)
	}
	if !strings.Contains(page, `value="Ravi Kumar"`) {
		t.Error("form values were lost")
	}
	if !strings.Contains(page, `<option selected>Business</option>`) {
		t.Error("selected occupation was lost")
	}
}

func TestDecodeInvestor(t *testing.T) {
	form := registrationForm()
	form.Set("age", "thirty")
	if _, err := decodeInvestor(form); err == nil || err.Error() != "age must be a number" {
		t.Errorf("err = %v", err)
	}
	form.Set("age", "30.5")
	if _, err := decodeInvestor(form); err == nil || !strings.Contains(err.Error(), "whole number") {
		t.Errorf("err = %v", err)
	}
	form.Set("age", "30")
	req, err := decodeInvestor(form)
	if err != nil {
		t.Fatalf("decodeInvestor: %v", err)
	}
	if req.RiskQ12 != "B" || req.ProfileQ7 != "B" || req.InvestmentHorizon != "5+ years" {
		t.Errorf("unexpected request %+v", req)
	}
}

func TestSweep(t *testing.T) {
	api := &stubAPI{}
	srv, ts, c := newTestServer(t, api)
	get(t, c, ts.URL+"/")

	if n := srv.Sweep(time.Hour); n != 0 {
		t.Errorf("swept %d fresh sessions", n)
	}
	srv.clock = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if n := srv.Sweep(time.Hour); n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}
}
