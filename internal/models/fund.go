package models

// FundMaster is a fund that can be recommended.
type FundMaster struct {
	ID             int64   `json:"id" yaml:"-"`
	FundName       string  `json:"fund_name" yaml:"fund_name"`
	AssetClass     string  `json:"asset_class" yaml:"asset_class"`
	Category       string  `json:"category" yaml:"category"`
	ExpectedReturn float64 `json:"expected_return" yaml:"expected_return"`
	RiskLevel      string  `json:"risk_level" yaml:"risk_level"`
	MinInvestment  float64 `json:"min_investment" yaml:"min_investment"`
}

// AssetAllocation is one row of the allocation matrix: the share of an
// asset class for a risk profile.
type AssetAllocation struct {
	RiskProfile string  `json:"risk_profile" yaml:"risk_profile"`
	AssetClass  string  `json:"asset_class" yaml:"asset_class"`
	Percentage  float64 `json:"percentage" yaml:"percentage"`
}
