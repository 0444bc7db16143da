package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/fund-advisor/internal/models"
)

func TestListInvestors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/investors" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{"id":1,"name":"Asha","email":"a@example.com","risk_tolerance":"Moderate","risk_category":"Moderate Investor","risk_category_code":"MI"}]`))
	}))
	defer srv.Close()

	list, err := New(srv.URL).ListInvestors(context.Background())
	if err != nil {
		t.Fatalf("ListInvestors: %v", err)
	}
	if len(list) != 1 || list[0].RiskCategoryCode != "MI" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestSchemaMismatchFailsFast(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(c *Client) error
	}{
		{"investor without name", `[{"id":1}]`, func(c *Client) error {
			_, err := c.ListInvestors(context.Background())
			return err
		}},
		{"recommendations without profile", `{"recommendations":[]}`, func(c *Client) error {
			_, err := c.Recommendations(context.Background(), 1)
			return err
		}},
		{"portfolio without funds", `{"portfolio_id":1}`, func(c *Client) error {
			_, err := c.Portfolio(context.Background(), 1)
			return err
		}},
		{"not json", `<html>`, func(c *Client) error {
			_, err := c.ListInvestors(context.Background())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			if err := tt.call(New(srv.URL)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/investors":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"email already exists"}`))
		case "/api/portfolio/4":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"No portfolio found for this investor."}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`bad gateway`))
		}
	}))
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	_, err := c.CreateInvestor(ctx, &models.InvestorRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Message != "email already exists" {
		t.Errorf("unexpected error %#v", err)
	}

	_, err = c.Portfolio(ctx, 4)
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	_, err = c.Recommendations(ctx, 9)
	if got := Message(err, "Server error"); got != "Server error" {
		t.Errorf("fallback message = %q", got)
	}
	if IsNotFound(err) {
		t.Error("502 reported as not found")
	}
}

func TestSavePortfolioSendsConditionAndToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("If-None-Match"); got != "*" {
			t.Errorf("If-None-Match = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var req models.SavePortfolioRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Name != "Portfolio for 3 - 2026-10-19" || len(req.Funds) != 1 {
			t.Errorf("unexpected payload %+v", req)
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Portfolio created successfully","portfolio_id":12}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithToken("tok"))
	resp, err := c.SavePortfolio(context.Background(), 3, &models.SavePortfolioRequest{
		Name:  "Portfolio for 3 - 2026-10-19",
		Funds: []models.FundInput{{FundName: "Gold ETF", Amount: 100, ExpectedReturn: 7}},
	}, Condition{IfNoneMatch: "*"})
	if err != nil {
		t.Fatalf("SavePortfolio: %v", err)
	}
	if resp.PortfolioID != 12 {
		t.Errorf("portfolio_id = %d", resp.PortfolioID)
	}
}

func TestPortfolioCapturesETag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"fp"`)
		w.Write([]byte(`{"portfolio_id":2,"investor_name":"Asha","portfolio_name":"P","created_at":"2026-10-19 09:30:00","funds":[{"fund_name":"Gold ETF","asset_class":"gold","amount":5000,"expected_return":7}]}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL).Portfolio(context.Background(), 2)
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if p.ETag != `"fp"` || p.View.Funds[0].AssetClass != "gold" {
		t.Errorf("unexpected portfolio %+v", p)
	}
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).ListInvestors(context.Background())
	if err == nil || !strings.Contains(err.Error(), "send GET request") {
		t.Errorf("expected timeout error, got %v", err)
	}
}
