// Package risk scores investor questionnaires and maps the scores onto a
// risk category.
package risk

import (
	"sort"
	"strings"

	"github.com/Dan9191/fund-advisor/internal/models"
)

// Category is a risk category with its short code.
type Category struct {
	Name string
	Code string
}

var (
	Conservative = Category{Name: "Conservative Investor", Code: "CON I"}
	Cautious     = Category{Name: "Cautious Investor", Code: "CAU I"}
	Moderate     = Category{Name: "Moderate Investor", Code: "MI"}
	Aggressive   = Category{Name: "Aggressive Investor", Code: "AI"}
)

// maxDemographicScore caps the demographic score of the category matrix.
const maxDemographicScore = 7

var answerScores = map[string]int{"A": 1, "B": 2, "C": 3, "D": 4}

var educationScores = map[string]int{
	"High School":                   0,
	"Some College but not graduate": 1,
	"Graduate":                      2,
	"Post Graduate":                 3,
}

var occupationScores = map[string]int{
	"Retired":                   0,
	"Salaried – Govt":           1,
	"Salaried – Private sector": 2,
	"Self Employed":             3,
	"Business":                  4,
}

var incomeScores = map[string]int{
	"Upto Rs 5 lacs":         0,
	"Between Rs 5 – 10 lacs": 1,
	"Between Rs 10 20 lacs":  2,
	"Between Rs 20 -50 lacs": 3,
	"Above Rs 50 lacs":       4,
}

var experienceScores = map[string]int{
	"None":              0,
	"Less than 3 years": 1,
	"More than 3 years": 2,
}

// Choices lists the scored answers of each demographic field, keyed by the
// JSON name of the field and ordered from the lowest score.
func Choices() map[string][]string {
	return map[string][]string{
		"education_level":     byScore(educationScores),
		"occupation_type":     byScore(occupationScores),
		"annual_income_range": byScore(incomeScores),
		"equity_experience":   byScore(experienceScores),
	}
}

func byScore(scores map[string]int) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return scores[keys[i]] < scores[keys[j]] })
	return keys
}

// Scores are the values stored with an investor at registration.
type Scores struct {
	RiskScore        int
	ProfileScore     int
	CombinedScore    int
	DemographicScore int
	Category         Category
	Tolerance        string
}

// Evaluate computes every score of a registration payload.
func Evaluate(req *models.InvestorRequest) Scores {
	s := Scores{
		RiskScore:        RiskScore(req.RiskAnswers()),
		ProfileScore:     sumAnswers(req.ProfileAnswers()),
		DemographicScore: DemographicScore(req.EducationLevel, req.OccupationType, req.AnnualIncomeRange, req.EquityExperience),
	}
	s.CombinedScore = s.RiskScore + s.ProfileScore
	s.Category = Categorize(s.RiskScore, s.DemographicScore)
	s.Tolerance = Tolerance(s.Category)
	return s
}

// RiskScore sums the questionnaire answers (A=1 .. D=4) on a 120-480 scale.
func RiskScore(answers []string) int {
	return sumAnswers(answers) * 10
}

func sumAnswers(answers []string) int {
	total := 0
	for _, a := range answers {
		total += answerScores[a]
	}
	return total
}

// DemographicScore scores education, occupation, income and equity
// experience. Unknown values score zero.
func DemographicScore(education, occupation, income, experience string) int {
	score := educationScores[education] +
		occupationScores[occupation] +
		incomeScores[income] +
		experienceScores[experience]
	return min(score, maxDemographicScore)
}

// Categorize applies the risk score / demographic score matrix.
func Categorize(riskScore, demoScore int) Category {
	switch {
	case riskScore <= 150:
		if demoScore <= 5 {
			return Conservative
		}
		return Cautious
	case riskScore <= 200:
		switch {
		case demoScore <= 1:
			return Conservative
		case demoScore <= 5:
			return Cautious
		default:
			return Moderate
		}
	case riskScore <= 300:
		switch {
		case demoScore <= 1:
			return Cautious
		case demoScore <= 5:
			return Moderate
		default:
			return Aggressive
		}
	default:
		switch demoScore {
		case 0:
			return Cautious
		case 1:
			return Moderate
		default:
			return Aggressive
		}
	}
}

// Tolerance is the allocation profile of a category: Conservative,
// Cautious, Moderate or Aggressive.
func Tolerance(c Category) string {
	switch {
	case strings.Contains(c.Name, "Conservative"):
		return "Conservative"
	case strings.Contains(c.Name, "Cautious"):
		return "Cautious"
	case strings.Contains(c.Name, "Moderate"):
		return "Moderate"
	default:
		return "Aggressive"
	}
}
