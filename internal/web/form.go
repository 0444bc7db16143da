package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/models"
)

// numericFields are the registration inputs sent as JSON numbers.
var numericFields = map[string]bool{
	"age":                  true,
	"monthly_income":       true,
	"monthly_expenses":     true,
	"existing_assets":      true,
	"existing_liabilities": true,
	"emergency_fund":       true,
	"investment_amount":    true,
	"required_return":      true,
}

// decodeInvestor maps the registration form onto the request payload. Form
// fields are named after the JSON keys of models.InvestorRequest. Empty
// numbers are left at zero for the server to reject.
func decodeInvestor(form url.Values) (*models.InvestorRequest, error) {
	fields := make(map[string]interface{}, len(form))
	for key := range form {
		v := strings.TrimSpace(form.Get(key))
		if !numericFields[key] {
			fields[key] = v
			continue
		}
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		fields[key] = n
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var req models.InvestorRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%s must be a whole number", typeErr.Field)
		}
		return nil, err
	}
	return &req, nil
}
